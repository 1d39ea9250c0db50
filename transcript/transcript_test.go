package transcript

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

// fakeHistory serves messages newest-first, the way the API pages them.
type fakeHistory struct {
	msgs  []*discordgo.Message
	calls int
}

func (f *fakeHistory) ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	f.calls++
	start := 0
	if beforeID != "" {
		for i, m := range f.msgs {
			if m.ID == beforeID {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(f.msgs) {
		end = len(f.msgs)
	}
	return f.msgs[start:end], nil
}

func newHistory(n int) *fakeHistory {
	h := &fakeHistory{}
	for i := n; i >= 1; i-- {
		h.msgs = append(h.msgs, &discordgo.Message{
			ID:        fmt.Sprintf("%d", i),
			Content:   fmt.Sprintf("message %d", i),
			Author:    &discordgo.User{Username: "alice"},
			Timestamp: time.Date(2024, 1, 1, 0, 0, i%60, 0, time.UTC),
		})
	}
	return h
}

func TestExportPaginatesFullHistory(t *testing.T) {
	h := newHistory(250)
	ch := &discordgo.Channel{ID: "c1", Name: "ticket-alice-1"}

	a, err := Export(context.Background(), h, ch)
	assert.NoError(t, err)
	assert.Equal(t, "transcript-ticket-alice-1.html", a.Filename)
	assert.GreaterOrEqual(t, h.calls, 3, "250 messages need three pages")

	html := string(a.HTML)
	assert.Contains(t, html, "250 messages")
	assert.Contains(t, html, "message 1")
	assert.Contains(t, html, "message 250")

	// Chronological order: oldest first.
	assert.Less(t, strings.Index(html, "message 1</div>"), strings.Index(html, "message 250</div>"))
}

func TestExportEmptyChannel(t *testing.T) {
	a, err := Export(context.Background(), &fakeHistory{}, &discordgo.Channel{ID: "c1", Name: "ticket-x"})
	assert.NoError(t, err)
	assert.Contains(t, string(a.HTML), "0 messages")
}

func TestExportEscapesContent(t *testing.T) {
	h := &fakeHistory{msgs: []*discordgo.Message{{
		ID:      "1",
		Content: "<script>alert(1)</script>",
		Author:  &discordgo.User{Username: "mallory"},
	}}}

	a, err := Export(context.Background(), h, &discordgo.Channel{ID: "c1", Name: "ticket-x"})
	assert.NoError(t, err)
	assert.NotContains(t, string(a.HTML), "<script>alert")
	assert.Contains(t, string(a.HTML), "&lt;script&gt;")
}

func TestExportRendersAttachmentsAndEmbeds(t *testing.T) {
	h := &fakeHistory{msgs: []*discordgo.Message{{
		ID:      "1",
		Content: "see attached",
		Author:  &discordgo.User{Username: "alice"},
		Attachments: []*discordgo.MessageAttachment{
			{Filename: "error.log", URL: "https://cdn.example.com/error.log"},
		},
		Embeds: []*discordgo.MessageEmbed{
			{Title: "Build failed", Description: "exit status 1"},
		},
	}}}

	a, err := Export(context.Background(), h, &discordgo.Channel{ID: "c1", Name: "ticket-x"})
	assert.NoError(t, err)

	html := string(a.HTML)
	assert.Contains(t, html, "error.log")
	assert.Contains(t, html, "https://cdn.example.com/error.log")
	assert.Contains(t, html, "Build failed")
}

func TestArchiveFileIsReusable(t *testing.T) {
	a := &Archive{Filename: "t.html", HTML: []byte("<html></html>")}

	f1 := a.File()
	f2 := a.File()
	assert.NotSame(t, f1.Reader, f2.Reader, "each attachment gets a fresh reader")
	assert.Equal(t, "text/html; charset=utf-8", f1.ContentType)
}
