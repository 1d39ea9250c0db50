package ticket

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

const (
	// NamePrefix marks ticket channels by naming convention.
	NamePrefix = "ticket-"

	// topicPrefix opens the pipe-delimited metadata string stored in the
	// channel topic: ticket|<ownerUserID>|<categoryName>. The topic is the
	// only place ticket ownership is persisted.
	topicPrefix = "ticket|"

	// DefaultCategory is used when a ticket was opened without choosing a
	// category, or when the topic carries none.
	DefaultCategory = "Default"
)

// Metadata is the decoded form of a ticket channel topic.
type Metadata struct {
	OwnerID  string
	Category string
}

// EncodeTopic builds the topic string written at channel creation.
func EncodeTopic(ownerID, category string) string {
	if category == "" {
		category = DefaultCategory
	}
	return topicPrefix + ownerID + "|" + category
}

// ParseTopic decodes a channel topic. The second return is false when the
// topic is absent or not ticket metadata; such channels are not tickets.
func ParseTopic(topic string) (Metadata, bool) {
	if !strings.HasPrefix(topic, topicPrefix) {
		return Metadata{}, false
	}
	parts := strings.Split(topic, "|")
	if len(parts) < 2 || parts[1] == "" {
		return Metadata{}, false
	}
	m := Metadata{OwnerID: parts[1], Category: DefaultCategory}
	if len(parts) > 2 && parts[2] != "" {
		m.Category = parts[2]
	}
	return m, true
}

// IsTicketChannel reports whether ch is a ticket channel: a guild text
// channel named ticket-* whose topic carries ticket metadata.
func IsTicketChannel(ch *discordgo.Channel) bool {
	if ch == nil || ch.Type != discordgo.ChannelTypeGuildText {
		return false
	}
	if !strings.HasPrefix(ch.Name, NamePrefix) {
		return false
	}
	return strings.HasPrefix(ch.Topic, topicPrefix)
}

// ListTicketChannels filters a guild's cached channel list down to ticket
// channels, keyed by channel ID.
func ListTicketChannels(chs []*discordgo.Channel) map[string]*discordgo.Channel {
	out := make(map[string]*discordgo.Channel)
	for _, ch := range chs {
		if IsTicketChannel(ch) {
			out[ch.ID] = ch
		}
	}
	return out
}

// FindTicketForUser returns the ticket channel owned by userID, or nil.
func FindTicketForUser(chs []*discordgo.Channel, userID string) *discordgo.Channel {
	for _, ch := range chs {
		if !IsTicketChannel(ch) {
			continue
		}
		if m, ok := ParseTopic(ch.Topic); ok && m.OwnerID == userID {
			return ch
		}
	}
	return nil
}
