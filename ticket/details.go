package ticket

import "github.com/bwmarrin/discordgo"

// Details is the resolved, ephemeral view of a ticket: the owner fetched by
// ID and the category name. It is recomputed from the topic on demand and
// never stored. A nil Owner means the remote fetch failed; the category is
// still usable and closure summaries render "Unknown" for the opener.
type Details struct {
	Owner    *discordgo.User
	Category string
}

// ResolveDetails decodes a ticket topic and resolves its owner through the
// directory. The second return is false when the topic is not ticket
// metadata.
func ResolveDetails(dir Directory, topic string) (*Details, bool) {
	m, ok := ParseTopic(topic)
	if !ok {
		return nil, false
	}

	d := &Details{Category: m.Category}
	if u, err := dir.User(m.OwnerID); err == nil {
		d.Owner = u
	}
	return d, true
}
