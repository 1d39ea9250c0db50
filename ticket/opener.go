package ticket

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Component custom IDs are wire contracts: interactions carrying them are
// routed back into this workflow.
const (
	CloseButtonID  = "TICKET_CLOSE"
	CategoryMenuID = "ticket-menu"
)

var (
	ErrMissingPermissions = errors.New("bot is missing the Manage Channels permission")
	ErrLimitReached       = errors.New("open ticket limit reached")

	// ErrPromptTimeout is returned by Prompter implementations when the
	// user never picks a category. No channel is created.
	ErrPromptTimeout = errors.New("category selection timed out")
)

// AlreadyOpenError rejects a second ticket for the same user and carries
// the existing channel so the caller can link it.
type AlreadyOpenError struct {
	ChannelID string
}

func (e *AlreadyOpenError) Error() string {
	return "user already has an open ticket"
}

// Prompter asks the requesting user to pick one of the configured category
// names. The interactive implementation lives with the handlers; tests use
// a canned one.
type Prompter interface {
	SelectCategory(ctx context.Context, names []string) (string, error)
}

type OpenRequest struct {
	GuildID string
	User    *discordgo.User
	// Prompt is consulted only when the guild defines categories; nil
	// skips the menu and files the ticket under the default category.
	Prompt Prompter
}

// Opener creates ticket channels.
type Opener struct {
	Dir    Directory
	Store  SettingsSource
	Events Publisher
}

// Open runs the guarded creation flow: permission, duplicate and limit
// gates, optional category selection, then channel creation with computed
// permission overwrites and a welcome message.
func (o *Opener) Open(ctx context.Context, req OpenRequest) (*discordgo.Channel, error) {
	perms, err := o.Dir.BotGuildPermissions(req.GuildID)
	if err != nil || perms&discordgo.PermissionManageChannels == 0 {
		return nil, ErrMissingPermissions
	}

	settings, err := o.Store.GetSettings(ctx, req.GuildID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	chs, err := o.Dir.GuildChannels(req.GuildID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	if existing := FindTicketForUser(chs, req.User.ID); existing != nil {
		return nil, &AlreadyOpenError{ChannelID: existing.ID}
	}

	open := ListTicketChannels(chs)
	if settings.Limit > 0 && len(open) >= settings.Limit {
		return nil, ErrLimitReached
	}

	category := DefaultCategory
	var staffRoles []string
	if len(settings.Categories) > 0 && req.Prompt != nil {
		names := make([]string, len(settings.Categories))
		for i, c := range settings.Categories {
			names[i] = c.Name
		}
		chosen, err := req.Prompt.SelectCategory(ctx, names)
		if err != nil {
			return nil, err
		}
		category = chosen
		for _, c := range settings.Categories {
			if c.Name == chosen {
				staffRoles = c.StaffRoles
				break
			}
		}
	}

	overwrites, err := o.overwrites(req.GuildID, req.User.ID, staffRoles)
	if err != nil {
		return nil, err
	}

	ch, err := o.Dir.CreateChannel(req.GuildID, discordgo.GuildChannelCreateData{
		Name:                 fmt.Sprintf("%s%s-%d", NamePrefix, channelSlug(req.User.Username), len(open)+1),
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                EncodeTopic(req.User.ID, category),
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}

	o.welcome(ch, req.User)

	if o.Events != nil {
		o.Events.TicketOpened(req.GuildID, ch.ID, ch.Name, req.User.ID, category)
	}
	return ch, nil
}

const memberPerms int64 = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionReadMessageHistory

func (o *Opener) overwrites(guildID, userID string, staffRoles []string) ([]*discordgo.PermissionOverwrite, error) {
	overwrites := []*discordgo.PermissionOverwrite{
		{ID: guildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
		{ID: userID, Type: discordgo.PermissionOverwriteTypeMember, Allow: memberPerms},
	}

	if botRole, err := o.Dir.BotHighestRole(guildID); err == nil {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID: botRole.ID, Type: discordgo.PermissionOverwriteTypeRole, Allow: memberPerms,
		})
	}

	// Staff role IDs come from stored settings and may be stale; only
	// roles that still exist get an overwrite.
	if len(staffRoles) > 0 {
		roles, err := o.Dir.GuildRoles(guildID)
		if err != nil {
			return nil, fmt.Errorf("list roles: %w", err)
		}
		valid := make(map[string]bool, len(roles))
		for _, r := range roles {
			valid[r.ID] = true
		}
		for _, id := range staffRoles {
			if valid[id] {
				overwrites = append(overwrites, &discordgo.PermissionOverwrite{
					ID: id, Type: discordgo.PermissionOverwriteTypeRole, Allow: memberPerms,
				})
			}
		}
	}
	return overwrites, nil
}

func (o *Opener) welcome(ch *discordgo.Channel, user *discordgo.User) {
	_, _ = o.Dir.SendMessage(ch.ID, &discordgo.MessageSend{
		Content: fmt.Sprintf("<@%s>", user.ID),
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "Support Ticket",
			Description: "Please describe your issue and a staff member will assist you shortly.",
			Color:       0x57F287,
		}},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Close Ticket",
						Style:    discordgo.DangerButton,
						CustomID: CloseButtonID,
						Emoji:    &discordgo.ComponentEmoji{Name: "🔒"},
					},
				},
			},
		},
	})
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9_-]`)

func channelSlug(username string) string {
	slug := slugInvalid.ReplaceAllString(strings.ToLower(username), "-")
	if len(slug) > 16 {
		slug = slug[:16]
	}
	if slug == "" {
		slug = "ticket"
	}
	return slug
}
