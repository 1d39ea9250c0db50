package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"ticket-bot/config"
	"ticket-bot/lang"
	"ticket-bot/storage"
	"ticket-bot/ticket"
	"ticket-bot/transcript"

	"github.com/bwmarrin/discordgo"
)

const menuTimeout = 60 * time.Second

func ticketCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{Name: "new", Description: "Open a support ticket"},
		{Name: "close", Description: "Close the current ticket"},
		{
			Name:                     "ticket",
			Description:              "Ticket system management",
			DefaultMemberPermissions: &adminPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name: "setup", Description: "Update the ticket settings for this server",
					Type: discordgo.ApplicationCommandOptionSubCommand,
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionChannel, Name: "log-channel", Description: "Channel for closure summaries and transcripts"},
						{Type: discordgo.ApplicationCommandOptionInteger, Name: "limit", Description: "Maximum open tickets for this server"},
						{Type: discordgo.ApplicationCommandOptionString, Name: "categories", Description: "Categories as Name:roleID;roleID,Name2:roleID"},
					},
				},
				{
					Name: "list", Description: "List all open tickets",
					Type: discordgo.ApplicationCommandOptionSubCommand,
				},
				{
					Name: "closeall", Description: "Close every open ticket",
					Type: discordgo.ApplicationCommandOptionSubCommand,
				},
			},
		},
	}
}

func newCloser(s *discordgo.Session) *ticket.Closer {
	return &ticket.Closer{
		Dir:   ticket.NewSessionDirectory(s),
		Store: storage.DB,
		Export: func(ctx context.Context, ch *discordgo.Channel) (*transcript.Archive, error) {
			return transcript.Export(ctx, s, ch)
		},
		Events: EventBus,
	}
}

func handleNewTicket(s *discordgo.Session, i *discordgo.InteractionCreate) {
	deferEphemeral(s, i)

	opener := &ticket.Opener{
		Dir:    ticket.NewSessionDirectory(s),
		Store:  storage.DB,
		Events: EventBus,
	}
	ch, err := opener.Open(context.Background(), ticket.OpenRequest{
		GuildID: i.GuildID,
		User:    i.Member.User,
		Prompt:  &menuPrompter{s: s, i: i},
	})
	if err != nil {
		var exists *ticket.AlreadyOpenError
		switch {
		case errors.As(err, &exists):
			editResponse(s, i, lang.T("ticket_exists", "channel", exists.ChannelID))
		case errors.Is(err, ticket.ErrMissingPermissions):
			editResponse(s, i, lang.T("ticket_no_permission"))
		case errors.Is(err, ticket.ErrLimitReached):
			editResponse(s, i, lang.T("ticket_limit"))
		case errors.Is(err, ticket.ErrPromptTimeout):
			editResponse(s, i, lang.T("ticket_menu_timeout"))
		default:
			log.Printf("[Ticket] open for %s: %v", i.Member.User.ID, err)
			editResponse(s, i, lang.T("ticket_create_failed"))
		}
		return
	}

	editResponse(s, i, lang.T("ticket_created", "channel", ch.ID))
}

func handleCloseTicket(s *discordgo.Session, i *discordgo.InteractionCreate) {
	deferEphemeral(s, i)

	dir := ticket.NewSessionDirectory(s)
	ch, err := dir.Channel(i.ChannelID)
	if err != nil || !ticket.IsTicketChannel(ch) {
		editResponse(s, i, lang.T("ticket_not_ticket"))
		return
	}

	rep := newCloser(s).Close(context.Background(), ch, i.Member.User, "")
	switch rep.Result {
	case ticket.CloseSuccess:
		editResponse(s, i, lang.T("ticket_closed"))
	case ticket.CloseMissingPermissions:
		editResponse(s, i, lang.T("ticket_close_no_perms"))
	default:
		editResponse(s, i, lang.T("ticket_close_failed"))
	}
}

func handleTicketAdmin(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !isAdmin(i) {
		respond(s, i, lang.T("admin_only"), true)
		return
	}

	sub := i.ApplicationCommandData().Options[0]
	switch sub.Name {
	case "setup":
		handleTicketSetup(s, i, sub.Options)
	case "list":
		handleTicketList(s, i)
	case "closeall":
		handleTicketCloseAll(s, i)
	}
}

func handleTicketSetup(s *discordgo.Session, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	ctx := context.Background()
	om := subOptMap(opts)

	gs, err := storage.DB.GetSettings(ctx, i.GuildID)
	if err != nil {
		respond(s, i, fmt.Sprintf("Failed to load settings: %v", err), true)
		return
	}
	if lc, ok := om["log-channel"]; ok {
		gs.LogChannel = lc.ChannelValue(s).ID
	}
	if l, ok := om["limit"]; ok {
		gs.Limit = int(l.IntValue())
	}
	if c, ok := om["categories"]; ok {
		gs.Categories = parseCategories(c.StringValue())
	}

	if err := storage.DB.SaveSettings(ctx, gs); err != nil {
		respond(s, i, fmt.Sprintf("Failed to save settings: %v", err), true)
		return
	}
	respond(s, i, lang.T("ticket_setup_done"), true)
}

// parseCategories decodes "Sales:roleID;roleID,Support:roleID". Categories
// without roles are allowed; staff access then comes from nothing beyond
// the requester and the bot.
func parseCategories(raw string) []config.TicketCategory {
	var out []config.TicketCategory
	for _, part := range strings.Split(raw, ",") {
		name, roles, _ := strings.Cut(strings.TrimSpace(part), ":")
		cat := config.TicketCategory{Name: strings.TrimSpace(name)}
		if cat.Name == "" {
			continue
		}
		for _, r := range strings.Split(roles, ";") {
			if r = strings.TrimSpace(r); r != "" {
				cat.StaffRoles = append(cat.StaffRoles, r)
			}
		}
		out = append(out, cat)
	}
	return out
}

func handleTicketList(s *discordgo.Session, i *discordgo.InteractionCreate) {
	dir := ticket.NewSessionDirectory(s)
	chs, err := dir.GuildChannels(i.GuildID)
	if err != nil {
		respond(s, i, fmt.Sprintf("Failed to list channels: %v", err), true)
		return
	}

	tickets := ticket.ListTicketChannels(chs)
	if len(tickets) == 0 {
		respond(s, i, lang.T("ticket_list_empty"), true)
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("**Open Tickets** (%d):\n", len(tickets)))
	for _, ch := range tickets {
		if m, ok := ticket.ParseTopic(ch.Topic); ok {
			sb.WriteString(fmt.Sprintf("• <#%s> — <@%s> [%s]\n", ch.ID, m.OwnerID, m.Category))
		}
	}
	respond(s, i, sb.String(), true)
}

func handleTicketCloseAll(s *discordgo.Session, i *discordgo.InteractionCreate) {
	deferEphemeral(s, i)

	succeeded, failed := newCloser(s).CloseAll(context.Background(), i.GuildID, i.Member.User, "Bulk close by staff")
	editResponse(s, i, lang.T("ticket_closeall_done",
		"closed", strconv.Itoa(succeeded),
		"failed", strconv.Itoa(failed)))
}

// Pending category menus, keyed by guild:user. A second /new from the same
// user replaces the wait; the stale menu just times out.
var (
	menuMu   sync.Mutex
	menuWait = make(map[string]chan string)
)

func menuKey(guildID, userID string) string {
	return guildID + ":" + userID
}

type menuPrompter struct {
	s *discordgo.Session
	i *discordgo.InteractionCreate
}

func (p *menuPrompter) SelectCategory(ctx context.Context, names []string) (string, error) {
	opts := make([]discordgo.SelectMenuOption, 0, len(names))
	for _, n := range names {
		opts = append(opts, discordgo.SelectMenuOption{Label: n, Value: n})
	}

	content := lang.T("ticket_pick_category")
	components := []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					MenuType:    discordgo.StringSelectMenu,
					CustomID:    ticket.CategoryMenuID,
					Placeholder: "Select a category...",
					Options:     opts,
				},
			},
		},
	}
	_, err := p.s.InteractionResponseEdit(p.i.Interaction, &discordgo.WebhookEdit{
		Content:    &content,
		Components: &components,
	})
	if err != nil {
		return "", fmt.Errorf("send category menu: %w", err)
	}

	key := menuKey(p.i.GuildID, p.i.Member.User.ID)
	wait := make(chan string, 1)
	menuMu.Lock()
	menuWait[key] = wait
	menuMu.Unlock()
	defer func() {
		menuMu.Lock()
		delete(menuWait, key)
		menuMu.Unlock()
	}()

	select {
	case v := <-wait:
		return v, nil
	case <-time.After(menuTimeout):
		return "", ticket.ErrPromptTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func handleCategorySelect(s *discordgo.Session, i *discordgo.InteractionCreate) {
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})

	vals := i.MessageComponentData().Values
	if len(vals) == 0 || i.Member == nil {
		return
	}

	menuMu.Lock()
	wait := menuWait[menuKey(i.GuildID, i.Member.User.ID)]
	menuMu.Unlock()
	if wait != nil {
		select {
		case wait <- vals[0]:
		default:
		}
	}
}
