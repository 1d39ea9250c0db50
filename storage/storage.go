package storage

import (
	"context"
	"fmt"

	"ticket-bot/config"
)

var DB Store

// GuildSettings is the per-guild ticket configuration. Guilds without a
// stored row fall back to the config.json defaults.
type GuildSettings struct {
	GuildID    string                  `json:"guild_id"    bson:"guild_id"`
	LogChannel string                  `json:"log_channel" bson:"log_channel"`
	Limit      int                     `json:"limit"       bson:"limit"`
	Categories []config.TicketCategory `json:"categories"  bson:"categories"`
}

type Store interface {
	Init() error
	Close() error

	// GetSettings never returns a nil settings value on success; guilds
	// with no stored row get the defaults the store was built with.
	GetSettings(ctx context.Context, guildID string) (*GuildSettings, error)
	SaveSettings(ctx context.Context, s *GuildSettings) error
}

func InitDB(cfg *config.Config) error {
	switch cfg.Database.Driver {
	case "sqlite":
		db := &SQLiteStore{Path: cfg.Database.SQLite.Path, Defaults: cfg.Tickets}
		if err := db.Init(); err != nil {
			return err
		}
		DB = db
		return nil

	case "mongodb":
		db := &MongoStore{URI: cfg.Database.MongoDB.URI, DBName: cfg.Database.MongoDB.Database, Defaults: cfg.Tickets}
		if err := db.Init(); err != nil {
			return err
		}
		DB = db
		return nil

	default:
		return fmt.Errorf("unsupported database driver: %s (use \"sqlite\" or \"mongodb\")", cfg.Database.Driver)
	}
}

func defaultSettings(guildID string, d config.TicketsConfig) *GuildSettings {
	return &GuildSettings{
		GuildID:    guildID,
		LogChannel: d.LogChannel,
		Limit:      d.Limit,
		Categories: append([]config.TicketCategory(nil), d.Categories...),
	}
}
