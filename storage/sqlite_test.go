package storage

import (
	"context"
	"path/filepath"
	"testing"

	"ticket-bot/config"

	"github.com/stretchr/testify/assert"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := &SQLiteStore{
		Path:     filepath.Join(t.TempDir(), "test.db"),
		Defaults: config.TicketsConfig{Limit: 25, LogChannel: "default-log"},
	}
	assert.NoError(t, s.Init())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetSettingsFallsBackToDefaults(t *testing.T) {
	s := newTestStore(t)

	gs, err := s.GetSettings(context.Background(), "g1")
	assert.NoError(t, err)
	assert.Equal(t, "g1", gs.GuildID)
	assert.Equal(t, 25, gs.Limit)
	assert.Equal(t, "default-log", gs.LogChannel)
}

func TestSettingsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := &GuildSettings{
		GuildID:    "g1",
		LogChannel: "log1",
		Limit:      5,
		Categories: []config.TicketCategory{
			{Name: "Sales", StaffRoles: []string{"r1", "r2"}},
			{Name: "VIP"},
		},
	}
	assert.NoError(t, s.SaveSettings(ctx, in))

	got, err := s.GetSettings(ctx, "g1")
	assert.NoError(t, err)
	assert.Equal(t, "log1", got.LogChannel)
	assert.Equal(t, 5, got.Limit)
	assert.Len(t, got.Categories, 2)
	assert.Equal(t, "Sales", got.Categories[0].Name)
	assert.Equal(t, []string{"r1", "r2"}, got.Categories[0].StaffRoles)
	assert.Empty(t, got.Categories[1].StaffRoles)

	// Other guilds are untouched.
	other, err := s.GetSettings(ctx, "g2")
	assert.NoError(t, err)
	assert.Equal(t, "default-log", other.LogChannel)
}

func TestSaveSettingsReplacesCategories(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &GuildSettings{GuildID: "g1", Limit: 5, Categories: []config.TicketCategory{{Name: "Old"}}}
	assert.NoError(t, s.SaveSettings(ctx, first))

	second := &GuildSettings{GuildID: "g1", Limit: 7, Categories: []config.TicketCategory{{Name: "New"}}}
	assert.NoError(t, s.SaveSettings(ctx, second))

	got, err := s.GetSettings(ctx, "g1")
	assert.NoError(t, err)
	assert.Equal(t, 7, got.Limit)
	assert.Len(t, got.Categories, 1)
	assert.Equal(t, "New", got.Categories[0].Name)
}

func TestSplitRoles(t *testing.T) {
	assert.Nil(t, splitRoles(""))
	assert.Equal(t, []string{"a"}, splitRoles("a"))
	assert.Equal(t, []string{"a", "b"}, splitRoles("a, b"))
	assert.Equal(t, []string{"a", "b"}, splitRoles("a,,b,"))
}
