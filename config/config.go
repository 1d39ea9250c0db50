package config

import (
	"encoding/json"
	"os"
)

type Config struct {
	Discord  DiscordConfig  `json:"discord"`
	Database DatabaseConfig `json:"database"`
	Tickets  TicketsConfig  `json:"tickets"`
	Events   EventsConfig   `json:"events"`
	Lang     LangConfig     `json:"lang"`
}

type DiscordConfig struct {
	Token   string `json:"token"`
	GuildID string `json:"guild_id"`
}

type DatabaseConfig struct {
	Driver  string        `json:"driver"`
	SQLite  SQLiteConfig  `json:"sqlite"`
	MongoDB MongoDBConfig `json:"mongodb"`
}

type SQLiteConfig struct {
	Path string `json:"path"`
}

type MongoDBConfig struct {
	URI      string `json:"uri"`
	Database string `json:"database"`
}

// TicketsConfig carries the defaults used for guilds that have never run
// /ticket setup. Per-guild values in the settings store take priority.
type TicketsConfig struct {
	LogChannel string           `json:"log_channel"`
	Limit      int              `json:"limit"`
	Categories []TicketCategory `json:"categories"`
}

type TicketCategory struct {
	Name       string   `json:"name"`
	StaffRoles []string `json:"staff_roles"`
}

type EventsConfig struct {
	Enabled  bool   `json:"enabled"`
	URL      string `json:"url"`
	Exchange string `json:"exchange"`
}

type LangConfig struct {
	Path string `json:"path"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.Tickets.Limit <= 0 {
		cfg.Tickets.Limit = 50
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.SQLite.Path == "" {
		cfg.Database.SQLite.Path = "data/bot.db"
	}
	if cfg.Database.MongoDB.Database == "" {
		cfg.Database.MongoDB.Database = "ticketbot"
	}
	if cfg.Events.Exchange == "" {
		cfg.Events.Exchange = "tickets"
	}
	if cfg.Lang.Path == "" {
		cfg.Lang.Path = "lang.yml"
	}
	return &cfg, nil
}

func SaveConfig(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
