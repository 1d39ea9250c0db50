package ticket

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Directory is the slice of the Discord API the ticket workflow needs.
// Guild, channel and role reads come from the session cache; user lookups
// and all mutations go to the API. Tests substitute an in-memory fake.
type Directory interface {
	Guild(guildID string) (*discordgo.Guild, error)
	GuildChannels(guildID string) ([]*discordgo.Channel, error)
	GuildRoles(guildID string) ([]*discordgo.Role, error)
	Channel(channelID string) (*discordgo.Channel, error)

	BotUser() *discordgo.User
	BotGuildPermissions(guildID string) (int64, error)
	BotChannelPermissions(channelID string) (int64, error)
	BotHighestRole(guildID string) (*discordgo.Role, error)

	// User is an uncached fetch by ID.
	User(userID string) (*discordgo.User, error)

	CreateChannel(guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error)
	DeleteChannel(channelID string) error

	SendMessage(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
	DirectMessage(userID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
}

type sessionDirectory struct {
	s *discordgo.Session
}

// NewSessionDirectory wraps a connected discordgo session as a Directory.
func NewSessionDirectory(s *discordgo.Session) Directory {
	return &sessionDirectory{s: s}
}

func (d *sessionDirectory) Guild(guildID string) (*discordgo.Guild, error) {
	if g, err := d.s.State.Guild(guildID); err == nil {
		return g, nil
	}
	return d.s.Guild(guildID)
}

func (d *sessionDirectory) GuildChannels(guildID string) ([]*discordgo.Channel, error) {
	if g, err := d.s.State.Guild(guildID); err == nil && len(g.Channels) > 0 {
		return g.Channels, nil
	}
	return d.s.GuildChannels(guildID)
}

func (d *sessionDirectory) GuildRoles(guildID string) ([]*discordgo.Role, error) {
	if g, err := d.s.State.Guild(guildID); err == nil && len(g.Roles) > 0 {
		return g.Roles, nil
	}
	return d.s.GuildRoles(guildID)
}

func (d *sessionDirectory) Channel(channelID string) (*discordgo.Channel, error) {
	if ch, err := d.s.State.Channel(channelID); err == nil {
		return ch, nil
	}
	return d.s.Channel(channelID)
}

func (d *sessionDirectory) BotUser() *discordgo.User {
	if d.s.State != nil {
		return d.s.State.User
	}
	return nil
}

func (d *sessionDirectory) botMember(guildID string) (*discordgo.Member, error) {
	bot := d.BotUser()
	if bot == nil {
		return nil, fmt.Errorf("session state has no bot user")
	}
	if m, err := d.s.State.Member(guildID, bot.ID); err == nil {
		return m, nil
	}
	return d.s.GuildMember(guildID, bot.ID)
}

func (d *sessionDirectory) BotGuildPermissions(guildID string) (int64, error) {
	member, err := d.botMember(guildID)
	if err != nil {
		return 0, err
	}
	roles, err := d.GuildRoles(guildID)
	if err != nil {
		return 0, err
	}

	held := make(map[string]bool, len(member.Roles))
	for _, id := range member.Roles {
		held[id] = true
	}

	var perms int64
	for _, r := range roles {
		// The @everyone role shares the guild ID and applies to every member.
		if r.ID == guildID || held[r.ID] {
			perms |= r.Permissions
		}
	}
	return perms, nil
}

func (d *sessionDirectory) BotChannelPermissions(channelID string) (int64, error) {
	bot := d.BotUser()
	if bot == nil {
		return 0, fmt.Errorf("session state has no bot user")
	}
	return d.s.UserChannelPermissions(bot.ID, channelID)
}

func (d *sessionDirectory) BotHighestRole(guildID string) (*discordgo.Role, error) {
	member, err := d.botMember(guildID)
	if err != nil {
		return nil, err
	}
	roles, err := d.GuildRoles(guildID)
	if err != nil {
		return nil, err
	}

	held := make(map[string]bool, len(member.Roles))
	for _, id := range member.Roles {
		held[id] = true
	}

	var highest *discordgo.Role
	for _, r := range roles {
		if !held[r.ID] {
			continue
		}
		if highest == nil || r.Position > highest.Position {
			highest = r
		}
	}
	if highest == nil {
		return nil, fmt.Errorf("bot has no roles in guild %s", guildID)
	}
	return highest, nil
}

func (d *sessionDirectory) User(userID string) (*discordgo.User, error) {
	return d.s.User(userID)
}

func (d *sessionDirectory) CreateChannel(guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error) {
	return d.s.GuildChannelCreateComplex(guildID, data)
}

func (d *sessionDirectory) DeleteChannel(channelID string) error {
	_, err := d.s.ChannelDelete(channelID)
	return err
}

func (d *sessionDirectory) SendMessage(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	return d.s.ChannelMessageSendComplex(channelID, msg)
}

func (d *sessionDirectory) DirectMessage(userID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	dm, err := d.s.UserChannelCreate(userID)
	if err != nil {
		return nil, err
	}
	return d.s.ChannelMessageSendComplex(dm.ID, msg)
}
