package ticket

import (
	"context"
	"fmt"
	"log"
	"time"

	"ticket-bot/storage"
	"ticket-bot/transcript"

	"github.com/bwmarrin/discordgo"
)

type CloseResult int

const (
	CloseSuccess CloseResult = iota
	CloseMissingPermissions
	CloseError
)

// DeliveryOutcome records what happened to a best-effort send. Failures are
// never fatal to the close, but they are reported rather than silently
// dropped so callers and tests can see them.
type DeliveryOutcome int

const (
	DeliverySkipped DeliveryOutcome = iota
	DeliverySent
	DeliveryFailed
)

type CloseReport struct {
	Result        CloseResult
	TranscriptURL string
	OwnerDM       DeliveryOutcome
}

// SettingsSource is the read side of the settings store. storage.Store
// satisfies it.
type SettingsSource interface {
	GetSettings(ctx context.Context, guildID string) (*storage.GuildSettings, error)
}

// Publisher mirrors events.Publisher; nil disables event emission.
type Publisher interface {
	TicketOpened(guildID, channelID, channelName, ownerID, category string)
	TicketClosed(guildID, channelID, channelName, ownerID, actorID, category string)
}

type ExportFunc func(ctx context.Context, ch *discordgo.Channel) (*transcript.Archive, error)

// Closer archives and deletes ticket channels.
type Closer struct {
	Dir    Directory
	Store  SettingsSource
	Export ExportFunc
	Events Publisher
}

// Closing a ticket deletes its channel and reads the full history out of it.
const closePerms int64 = discordgo.PermissionManageChannels | discordgo.PermissionReadMessageHistory

// Close archives ch to the configured log channel, deletes it and notifies
// the owner. The permission gate runs before any side effect; everything
// after it sits behind one failure boundary that degrades to CloseError.
func (c *Closer) Close(ctx context.Context, ch *discordgo.Channel, closedBy *discordgo.User, reason string) CloseReport {
	perms, err := c.Dir.BotChannelPermissions(ch.ID)
	if err != nil || perms&closePerms != closePerms {
		return CloseReport{Result: CloseMissingPermissions}
	}

	rep, err := c.close(ctx, ch, closedBy, reason)
	if err != nil {
		log.Printf("[Ticket] close %s: %v", ch.Name, err)
		rep.Result = CloseError
		return rep
	}
	rep.Result = CloseSuccess
	return rep
}

func (c *Closer) close(ctx context.Context, ch *discordgo.Channel, closedBy *discordgo.User, reason string) (CloseReport, error) {
	var rep CloseReport

	settings, err := c.Store.GetSettings(ctx, ch.GuildID)
	if err != nil {
		return rep, fmt.Errorf("load settings: %w", err)
	}

	details, ok := ResolveDetails(c.Dir, ch.Topic)
	if !ok {
		details = &Details{Category: DefaultCategory}
	}

	archive, err := c.Export(ctx, ch)
	if err != nil {
		return rep, fmt.Errorf("export transcript: %w", err)
	}

	// Post the raw transcript first; the hosted attachment URL becomes the
	// canonical link. Resolution failures leave the link unavailable.
	if settings.LogChannel != "" {
		msg, err := c.Dir.SendMessage(settings.LogChannel, &discordgo.MessageSend{
			Files: []*discordgo.File{archive.File()},
		})
		if err == nil && len(msg.Attachments) > 0 {
			rep.TranscriptURL = msg.Attachments[0].URL
		}
	}

	if err := c.Dir.DeleteChannel(ch.ID); err != nil {
		return rep, fmt.Errorf("delete channel: %w", err)
	}

	embed := c.summaryEmbed(ch, details, closedBy, reason, rep.TranscriptURL)

	if settings.LogChannel != "" {
		send := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}
		if rep.TranscriptURL == "" {
			send.Files = []*discordgo.File{archive.File()}
		}
		_, _ = c.Dir.SendMessage(settings.LogChannel, send)
	}

	rep.OwnerDM = DeliverySkipped
	if details.Owner != nil {
		// DMs may be closed; delivery failure never fails the close.
		if _, err := c.Dir.DirectMessage(details.Owner.ID, &discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{c.dmEmbed(ch, details, embed)},
		}); err != nil {
			rep.OwnerDM = DeliveryFailed
		} else {
			rep.OwnerDM = DeliverySent
		}
	}

	if c.Events != nil {
		ownerID := ""
		if details.Owner != nil {
			ownerID = details.Owner.ID
		}
		actorID := ""
		if closedBy != nil {
			actorID = closedBy.ID
		}
		c.Events.TicketClosed(ch.GuildID, ch.ID, ch.Name, ownerID, actorID, details.Category)
	}

	return rep, nil
}

func (c *Closer) summaryEmbed(ch *discordgo.Channel, details *Details, closedBy *discordgo.User, reason, transcriptURL string) *discordgo.MessageEmbed {
	opener := "Unknown"
	if details.Owner != nil {
		opener = details.Owner.Username
	}
	closer := "Unknown"
	if closedBy != nil {
		closer = closedBy.Username
	}
	link := "Not available"
	if transcriptURL != "" {
		link = fmt.Sprintf("[View](%s)", transcriptURL)
	}

	embed := &discordgo.MessageEmbed{
		Title: "Ticket Closed",
		Color: 0xED4245,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Ticket", Value: ch.Name, Inline: true},
			{Name: "Opened By", Value: opener, Inline: true},
			{Name: "Closed By", Value: closer, Inline: true},
			{Name: "Transcript", Value: link, Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if reason != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Reason", Value: reason, Inline: true})
	}
	return embed
}

func (c *Closer) dmEmbed(ch *discordgo.Channel, details *Details, base *discordgo.MessageEmbed) *discordgo.MessageEmbed {
	dm := *base
	dm.Description = fmt.Sprintf("Category: %s", details.Category)
	if g, err := c.Dir.Guild(ch.GuildID); err == nil {
		dm.Description = fmt.Sprintf("Server: %s\nCategory: %s", g.Name, details.Category)
		if g.Icon != "" {
			dm.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: g.IconURL("")}
		}
	}
	return &dm
}
