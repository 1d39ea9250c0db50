package ticket

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// CloseAll closes every ticket channel in the guild and tallies the
// results. A failing close does not stop the sweep.
//
// Closures run strictly sequentially: each one deletes a channel and
// uploads a transcript, and fanning those out in parallel would burst
// straight into the API rate limit.
func (c *Closer) CloseAll(ctx context.Context, guildID string, closedBy *discordgo.User, reason string) (succeeded, failed int) {
	chs, err := c.Dir.GuildChannels(guildID)
	if err != nil {
		return 0, 0
	}

	for _, ch := range ListTicketChannels(chs) {
		if rep := c.Close(ctx, ch, closedBy, reason); rep.Result == CloseSuccess {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}
