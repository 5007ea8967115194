package feedwatch

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Entry is one parsed feed item.
type Entry struct {
	ID          string
	Title       string
	Link        string
	Magnet      string
	Size        int64
	PublishDate time.Time
}

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string       `xml:"title"`
	Link        string       `xml:"link"`
	GUID        string       `xml:"guid"`
	PubDate     string       `xml:"pubDate"`
	Description string       `xml:"description"`
	Enclosure   rssEnclosure `xml:"enclosure"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

var sizeRegex = regexp.MustCompile(`(?i)\b(\d+(?:[.,]\d+)?)\s*(GB|GiB|MB|MiB|TB|TiB)\b`)

// ParseFeed parses an RSS document into entries. Items with neither a link
// nor an enclosure are skipped.
func ParseFeed(data []byte) ([]Entry, error) {
	var feed rssFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	var entries []Entry
	for _, item := range feed.Channel.Items {
		link := item.Link
		if link == "" {
			link = item.Enclosure.URL
		}
		if link == "" {
			continue
		}

		id := item.GUID
		if id == "" {
			id = link
		}

		e := Entry{
			ID:          id,
			Title:       strings.TrimSpace(item.Title),
			Link:        link,
			Size:        item.Enclosure.Length,
			PublishDate: parseDate(item.PubDate),
		}
		if strings.HasPrefix(link, "magnet:") {
			e.Magnet = link
			e.Link = ""
		}
		if strings.HasPrefix(item.Enclosure.URL, "magnet:") {
			e.Magnet = item.Enclosure.URL
		}
		if e.Size == 0 {
			e.Size = SizeFromText(item.Title + " " + item.Description)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// SizeFromText extracts a byte count from free text like "From 12.3 GB".
// Returns 0 when no size is present.
func SizeFromText(text string) int64 {
	m := sizeRegex.FindStringSubmatch(text)
	if m == nil {
		return 0
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return 0
	}

	switch strings.ToUpper(m[2]) {
	case "TB", "TIB":
		return int64(value * (1 << 40))
	case "GB", "GIB":
		return int64(value * (1 << 30))
	default:
		return int64(value * (1 << 20))
	}
}
