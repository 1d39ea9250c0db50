package ticket

import (
	"context"
	"errors"
	"fmt"

	"ticket-bot/storage"
	"ticket-bot/transcript"

	"github.com/bwmarrin/discordgo"
)

type fakeDir struct {
	guild      *discordgo.Guild
	channels   []*discordgo.Channel
	roles      []*discordgo.Role
	botUser    *discordgo.User
	botRoleID  string
	guildPerms int64
	chanPerms  map[string]int64
	users      map[string]*discordgo.User

	hostTranscripts bool
	dmFail          bool
	deleteFail      map[string]bool

	created []discordgo.GuildChannelCreateData
	deleted []string
	sent    map[string][]*discordgo.MessageSend
	dms     map[string][]*discordgo.MessageSend
}

func newFakeDir() *fakeDir {
	return &fakeDir{
		guild:     &discordgo.Guild{ID: "guild1", Name: "Test Guild"},
		botUser:   &discordgo.User{ID: "bot1", Username: "ticketbot"},
		chanPerms: make(map[string]int64),
		users:     make(map[string]*discordgo.User),
		sent:      make(map[string][]*discordgo.MessageSend),
		dms:       make(map[string][]*discordgo.MessageSend),
	}
}

func (d *fakeDir) Guild(guildID string) (*discordgo.Guild, error) {
	if d.guild == nil {
		return nil, errors.New("no guild")
	}
	return d.guild, nil
}

func (d *fakeDir) GuildChannels(guildID string) ([]*discordgo.Channel, error) {
	return d.channels, nil
}

func (d *fakeDir) GuildRoles(guildID string) ([]*discordgo.Role, error) {
	return d.roles, nil
}

func (d *fakeDir) Channel(channelID string) (*discordgo.Channel, error) {
	for _, ch := range d.channels {
		if ch.ID == channelID {
			return ch, nil
		}
	}
	return nil, errors.New("unknown channel")
}

func (d *fakeDir) BotUser() *discordgo.User { return d.botUser }

func (d *fakeDir) BotGuildPermissions(guildID string) (int64, error) {
	return d.guildPerms, nil
}

func (d *fakeDir) BotChannelPermissions(channelID string) (int64, error) {
	return d.chanPerms[channelID], nil
}

func (d *fakeDir) BotHighestRole(guildID string) (*discordgo.Role, error) {
	for _, r := range d.roles {
		if r.ID == d.botRoleID {
			return r, nil
		}
	}
	return nil, errors.New("bot has no roles")
}

func (d *fakeDir) User(userID string) (*discordgo.User, error) {
	if u, ok := d.users[userID]; ok {
		return u, nil
	}
	return nil, errors.New("unknown user")
}

func (d *fakeDir) CreateChannel(guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error) {
	d.created = append(d.created, data)
	ch := &discordgo.Channel{
		ID:      fmt.Sprintf("created%d", len(d.created)),
		GuildID: guildID,
		Name:    data.Name,
		Topic:   data.Topic,
		Type:    data.Type,
	}
	d.channels = append(d.channels, ch)
	return ch, nil
}

func (d *fakeDir) DeleteChannel(channelID string) error {
	if d.deleteFail[channelID] {
		return errors.New("delete refused")
	}
	d.deleted = append(d.deleted, channelID)
	return nil
}

func (d *fakeDir) SendMessage(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	d.sent[channelID] = append(d.sent[channelID], msg)
	m := &discordgo.Message{ID: "m1", ChannelID: channelID}
	if d.hostTranscripts && len(msg.Files) > 0 {
		m.Attachments = []*discordgo.MessageAttachment{
			{URL: "https://cdn.example.com/" + msg.Files[0].Name},
		}
	}
	return m, nil
}

func (d *fakeDir) DirectMessage(userID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	if d.dmFail {
		return nil, errors.New("cannot send messages to this user")
	}
	d.dms[userID] = append(d.dms[userID], msg)
	return &discordgo.Message{ID: "dm1"}, nil
}

// sentCount tallies every channel message the fake saw.
func (d *fakeDir) sentCount() int {
	n := 0
	for _, msgs := range d.sent {
		n += len(msgs)
	}
	return n
}

type fakeStore struct {
	settings *storage.GuildSettings
	err      error
}

func (f *fakeStore) GetSettings(ctx context.Context, guildID string) (*storage.GuildSettings, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.settings != nil {
		return f.settings, nil
	}
	return &storage.GuildSettings{GuildID: guildID, Limit: 50}, nil
}

func stubExport(ctx context.Context, ch *discordgo.Channel) (*transcript.Archive, error) {
	return &transcript.Archive{
		Filename: "transcript-" + ch.Name + ".html",
		HTML:     []byte("<html></html>"),
	}, nil
}

type fakePrompter struct {
	choice string
	err    error
	asked  []string
	calls  int
}

func (p *fakePrompter) SelectCategory(ctx context.Context, names []string) (string, error) {
	p.calls++
	p.asked = names
	if p.err != nil {
		return "", p.err
	}
	return p.choice, nil
}

type recordingPublisher struct {
	opened []string
	closed []string
}

func (r *recordingPublisher) TicketOpened(guildID, channelID, channelName, ownerID, category string) {
	r.opened = append(r.opened, channelName+"/"+category)
}

func (r *recordingPublisher) TicketClosed(guildID, channelID, channelName, ownerID, actorID, category string) {
	r.closed = append(r.closed, channelName+"/"+category)
}

func ticketChannel(id, owner, category string) *discordgo.Channel {
	return &discordgo.Channel{
		ID:      id,
		GuildID: "guild1",
		Name:    NamePrefix + "user-" + id,
		Topic:   EncodeTopic(owner, category),
		Type:    discordgo.ChannelTypeGuildText,
	}
}
