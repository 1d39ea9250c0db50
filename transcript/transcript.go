package transcript

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/bwmarrin/discordgo"
)

// History is the message-history slice of the Discord API the exporter
// reads. *discordgo.Session satisfies it.
type History interface {
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
}

// Archive is a rendered transcript. The bytes are kept so the file can be
// attached more than once (Discord consumes the reader on upload).
type Archive struct {
	Filename string
	HTML     []byte
}

// File returns a fresh attachment for the archive.
func (a *Archive) File() *discordgo.File {
	return &discordgo.File{
		Name:        a.Filename,
		ContentType: "text/html; charset=utf-8",
		Reader:      bytes.NewReader(a.HTML),
	}
}

const pageSize = 100

// Export renders the full message history of a channel as an HTML
// transcript. History is paginated oldest-first with no message cap.
func Export(ctx context.Context, h History, ch *discordgo.Channel) (*Archive, error) {
	var all []*discordgo.Message
	before := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, err := h.ChannelMessages(ch.ID, pageSize, before, "", "")
		if err != nil {
			return nil, fmt.Errorf("fetch history: %w", err)
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
		if len(batch) < pageSize {
			break
		}
		before = batch[len(batch)-1].ID
	}

	// Pages arrive newest-first; render chronologically.
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}

	html, err := render(ch, all)
	if err != nil {
		return nil, err
	}
	return &Archive{Filename: "transcript-" + ch.Name + ".html", HTML: html}, nil
}

type pageData struct {
	ChannelName string
	ExportedAt  string
	Messages    []messageData
}

type messageData struct {
	Author      string
	Timestamp   string
	Content     string
	Attachments []attachmentData
	Embeds      []embedData
}

type attachmentData struct {
	Name string
	URL  string
}

type embedData struct {
	Title       string
	Description string
}

func render(ch *discordgo.Channel, msgs []*discordgo.Message) ([]byte, error) {
	data := pageData{
		ChannelName: ch.Name,
		ExportedAt:  time.Now().UTC().Format(time.RFC1123),
	}
	for _, m := range msgs {
		author := "Unknown"
		if m.Author != nil {
			author = m.Author.Username
		}
		md := messageData{
			Author:    author,
			Timestamp: m.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			Content:   m.Content,
		}
		for _, a := range m.Attachments {
			md.Attachments = append(md.Attachments, attachmentData{Name: a.Filename, URL: a.URL})
		}
		for _, e := range m.Embeds {
			md.Embeds = append(md.Embeds, embedData{Title: e.Title, Description: e.Description})
		}
		data.Messages = append(data.Messages, md)
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render transcript: %w", err)
	}
	return buf.Bytes(), nil
}

var page = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>#{{.ChannelName}}</title>
<style>
body { background: #36393f; color: #dcddde; font-family: sans-serif; margin: 0; padding: 1em; }
h1 { color: #fff; font-size: 1.2em; border-bottom: 1px solid #4f545c; padding-bottom: .5em; }
.msg { padding: .4em 0; }
.author { color: #fff; font-weight: bold; }
.ts { color: #72767d; font-size: .8em; margin-left: .5em; }
.embed { border-left: 4px solid #4f545c; background: #2f3136; margin: .3em 0; padding: .4em .6em; }
.embed-title { color: #fff; font-weight: bold; }
a { color: #00aff4; }
</style>
</head>
<body>
<h1>#{{.ChannelName}}</h1>
<p class="ts">Exported {{.ExportedAt}} &middot; {{len .Messages}} messages</p>
{{range .Messages}}<div class="msg">
<span class="author">{{.Author}}</span><span class="ts">{{.Timestamp}}</span>
<div>{{.Content}}</div>
{{range .Embeds}}<div class="embed">{{if .Title}}<div class="embed-title">{{.Title}}</div>{{end}}{{.Description}}</div>
{{end}}{{range .Attachments}}<div><a href="{{.URL}}">&#128206; {{.Name}}</a></div>
{{end}}</div>
{{end}}</body>
</html>
`))
