package feedwatch

import (
	"testing"
	"time"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Release Feed</title>
<item>
<title>Starfall Tactics v1.2 Repack</title>
<link>magnet:?xt=urn:btih:aabbccdd</link>
<guid>release-1001</guid>
<pubDate>Mon, 13 Jan 2025 10:30:00 +0000</pubDate>
<description>From 1.5 GB. Selective download.</description>
</item>
<item>
<title>Dusk Horizon</title>
<link>https://example.com/releases/dusk-horizon</link>
<enclosure url="https://example.com/dusk.torrent" length="2147483648" type="application/x-bittorrent"/>
<pubDate>Mon, 13 Jan 2025 09:00:00 +0000</pubDate>
</item>
<item>
<title>Broken entry without any link</title>
</item>
</channel>
</rss>`

func TestParseFeed(t *testing.T) {
	entries, err := ParseFeed([]byte(sampleFeed))
	if err != nil {
		t.Fatalf("ParseFeed() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("parsed %d entries, want 2 (linkless item skipped)", len(entries))
	}

	first := entries[0]
	if first.ID != "release-1001" {
		t.Errorf("ID = %q, want guid", first.ID)
	}
	if first.Magnet != "magnet:?xt=urn:btih:aabbccdd" {
		t.Errorf("Magnet = %q", first.Magnet)
	}
	if first.Link != "" {
		t.Errorf("magnet-only entry kept Link = %q", first.Link)
	}
	if want := int64(1.5 * (1 << 30)); first.Size != want {
		t.Errorf("Size = %d, want %d (from description text)", first.Size, want)
	}
	wantDate := time.Date(2025, 1, 13, 10, 30, 0, 0, time.UTC)
	if !first.PublishDate.Equal(wantDate) {
		t.Errorf("PublishDate = %v, want %v", first.PublishDate, wantDate)
	}

	second := entries[1]
	if second.ID != "https://example.com/releases/dusk-horizon" {
		t.Errorf("guid-less entry ID = %q, want link", second.ID)
	}
	if second.Magnet != "" {
		t.Errorf("Magnet = %q, want empty", second.Magnet)
	}
	if second.Size != 2<<30 {
		t.Errorf("Size = %d, want enclosure length", second.Size)
	}
}

func TestParseFeed_BadXML(t *testing.T) {
	if _, err := ParseFeed([]byte("not xml at all")); err == nil {
		t.Error("ParseFeed() accepted garbage")
	}
}

func TestSizeFromText(t *testing.T) {
	tests := []struct {
		text string
		want int64
	}{
		{"From 1.5 GB", int64(1.5 * (1 << 30))},
		{"Size: 700 MB after install", 700 << 20},
		{"1,5 GiB repack", int64(1.5 * (1 << 30))},
		{"2 TB archive", 2 << 40},
		{"no size here", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := SizeFromText(tt.text); got != tt.want {
			t.Errorf("SizeFromText(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestSeenSet_Eviction(t *testing.T) {
	s := newSeenSet(3)
	for _, id := range []string{"a", "b", "c"} {
		if !s.Add(id) {
			t.Fatalf("Add(%q) = false on first insert", id)
		}
	}
	if s.Add("a") {
		t.Error("Add() accepted a duplicate")
	}

	// Cap reached: inserting d evicts a, the oldest.
	if !s.Add("d") {
		t.Fatal("Add(d) = false")
	}
	if s.Has("a") {
		t.Error("oldest entry survived eviction")
	}
	if !s.Has("b") || !s.Has("c") || !s.Has("d") {
		t.Error("newer entries were evicted")
	}
	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}
}
