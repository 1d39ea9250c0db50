package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"ticket-bot/config"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type MongoStore struct {
	URI      string
	DBName   string
	Defaults config.TicketsConfig

	client   *mongo.Client
	settings *mongo.Collection
}

func (m *MongoStore) Init() error {
	if m.URI == "" || m.DBName == "" {
		return fmt.Errorf("database.mongodb.uri and database.mongodb.database must be set in config.json to use driver=mongodb")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(m.URI))
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	m.client = client
	m.settings = client.Database(m.DBName).Collection("guild_settings")

	m.settings.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "guild_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	log.Printf("[DB] MongoDB initialised (db %s)", m.DBName)
	return nil
}

func (m *MongoStore) Close() error {
	if m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *MongoStore) GetSettings(ctx context.Context, guildID string) (*GuildSettings, error) {
	var gs GuildSettings
	err := m.settings.FindOne(ctx, bson.M{"guild_id": guildID}).Decode(&gs)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return defaultSettings(guildID, m.Defaults), nil
	}
	if err != nil {
		return nil, err
	}
	if gs.Limit <= 0 {
		gs.Limit = m.Defaults.Limit
	}
	return &gs, nil
}

func (m *MongoStore) SaveSettings(ctx context.Context, gs *GuildSettings) error {
	_, err := m.settings.ReplaceOne(
		ctx,
		bson.M{"guild_id": gs.GuildID},
		gs,
		options.Replace().SetUpsert(true),
	)
	return err
}
