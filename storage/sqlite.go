package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"ticket-bot/config"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	Path     string
	Defaults config.TicketsConfig
	db       *sql.DB
}

func (s *SQLiteStore) Init() error {
	_ = os.MkdirAll(filepath.Dir(s.Path), 0755)

	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		return fmt.Errorf("sqlite open: %w", err)
	}
	s.db = db

	schema := `
	CREATE TABLE IF NOT EXISTS guild_settings (
		guild_id    TEXT PRIMARY KEY,
		log_channel TEXT NOT NULL DEFAULT '',
		max_open    INTEGER NOT NULL DEFAULT 50
	);

	CREATE TABLE IF NOT EXISTS ticket_categories (
		guild_id    TEXT NOT NULL,
		name        TEXT NOT NULL,
		staff_roles TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (guild_id, name)
	);
	CREATE INDEX IF NOT EXISTS idx_ticket_categories_guild ON ticket_categories(guild_id);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return fmt.Errorf("sqlite schema: %w", err)
	}
	log.Printf("[DB] SQLite initialised at %s", s.Path)
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) GetSettings(ctx context.Context, guildID string) (*GuildSettings, error) {
	gs := defaultSettings(guildID, s.Defaults)

	row := s.db.QueryRowContext(ctx,
		"SELECT log_channel, max_open FROM guild_settings WHERE guild_id = ?", guildID)
	err := row.Scan(&gs.LogChannel, &gs.Limit)
	if errors.Is(err, sql.ErrNoRows) {
		return gs, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT name, staff_roles FROM ticket_categories WHERE guild_id = ? ORDER BY name", guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []config.TicketCategory
	for rows.Next() {
		var name, roles string
		if err := rows.Scan(&name, &roles); err != nil {
			continue
		}
		cats = append(cats, config.TicketCategory{Name: name, StaffRoles: splitRoles(roles)})
	}
	gs.Categories = cats
	return gs, nil
}

func (s *SQLiteStore) SaveSettings(ctx context.Context, gs *GuildSettings) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO guild_settings (guild_id, log_channel, max_open) VALUES (?, ?, ?)
		 ON CONFLICT(guild_id) DO UPDATE SET log_channel = excluded.log_channel, max_open = excluded.max_open`,
		gs.GuildID, gs.LogChannel, gs.Limit)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM ticket_categories WHERE guild_id = ?", gs.GuildID); err != nil {
		return err
	}
	for _, c := range gs.Categories {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO ticket_categories (guild_id, name, staff_roles) VALUES (?, ?, ?)",
			gs.GuildID, c.Name, strings.Join(c.StaffRoles, ","))
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func splitRoles(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
