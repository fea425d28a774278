package notify

import "github.com/bwmarrin/discordgo"

// Batch splits groups into sendable messages of at most size embeds and
// maxEmbedChars characters. A group's mention rides on its first message.
func Batch(groups []Group, size int) []*discordgo.MessageSend {
	if size <= 0 || size > 10 {
		size = 10
	}
	var out []*discordgo.MessageSend
	for _, g := range groups {
		var (
			cur   *discordgo.MessageSend
			chars int
			first = true
		)
		for _, e := range g.Embeds {
			n := embedSize(e)
			if cur == nil || len(cur.Embeds) == size || chars+n > maxEmbedChars {
				cur = &discordgo.MessageSend{}
				if first {
					cur.Content = g.Content
					first = false
				}
				out = append(out, cur)
				chars = 0
			}
			cur.Embeds = append(cur.Embeds, e)
			chars += n
		}
	}
	return out
}
