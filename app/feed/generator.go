package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lysyi3m/vod-comb/app/vod"
)

const (
	thumbnailWidth  = "640"
	thumbnailHeight = "360"
)

// Generator renders the recorded VODs of a channel as RSS 2.0.
type Generator struct {
	baseURL string
	version string
}

// NewGenerator takes the public base URL used for the atom:link self
// reference; an empty base URL omits it.
func NewGenerator(baseURL, version string) *Generator {
	return &Generator{baseURL: strings.TrimRight(baseURL, "/"), version: version}
}

func (g *Generator) Run(channel string, records []vod.Record) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", fmt.Sprintf("%s VODs", channel), 4)
	g.writeElement(&buf, "link", channelLink(channel, records), 4)
	g.writeElement(&buf, "description", fmt.Sprintf("Past broadcasts of %s", channel), 4)

	if g.baseURL != "" {
		selfLink := fmt.Sprintf("%s/feeds/%s", g.baseURL, channel)
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(selfLink)))
	}

	lastBuildDate := time.Now().In(time.Local)
	if len(records) > 0 {
		if published, ok := publishedAt(records[0]); ok {
			lastBuildDate = published
		}
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("VOD-Comb/%s", g.version), 4)
	if len(records) > 0 {
		g.writeElement(&buf, "language", records[0].Language, 4)
	}

	for _, record := range records {
		g.writeItem(&buf, record)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, record vod.Record) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"false\">")
	xml.EscapeText(buf, []byte(record.ID))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", record.Title, 6)
	g.writeElement(buf, "link", record.URL, 6)
	g.writeElement(buf, "description", cmp.Or(record.Description, "No description available"), 6)

	if record.HiddenURL.Subdomain != "" {
		playlist := html.EscapeString(record.HiddenURL.PlaylistURL())
		buf.WriteString("      <content:encoded><![CDATA[")
		buf.WriteString(fmt.Sprintf(`<p>Duration: %s</p><p><a href="%s">%s</a></p>`,
			html.EscapeString(record.Duration), playlist, playlist))
		buf.WriteString("]]></content:encoded>\n")
	}

	if published, ok := publishedAt(record); ok {
		g.writeElement(buf, "pubDate", published.Format(time.RFC1123Z), 6)
	}

	g.writeElement(buf, "author", record.UserName, 6)

	if record.ThumbnailURL != "" {
		buf.WriteString(fmt.Sprintf("      <enclosure url=\"%s\" length=\"0\" type=\"image/jpeg\" />\n",
			html.EscapeString(thumbnailURL(record.ThumbnailURL))))
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func channelLink(channel string, records []vod.Record) string {
	login := channel
	if len(records) > 0 && records[0].UserLogin != "" {
		login = records[0].UserLogin
	}
	return "https://www.twitch.tv/" + cases.Lower(language.Und).String(login)
}

func publishedAt(record vod.Record) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, cmp.Or(record.PublishedAt, record.CreatedAt))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// thumbnailURL fills the size placeholders Twitch leaves in thumbnail URLs.
func thumbnailURL(raw string) string {
	return strings.NewReplacer("%{width}", thumbnailWidth, "%{height}", thumbnailHeight).Replace(raw)
}
