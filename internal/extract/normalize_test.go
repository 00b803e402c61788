package extract

import (
	"testing"

	"wayrake/internal/core/domain"
	"wayrake/internal/testutil"
)

func TestNormalizeRelativeCandidates(t *testing.T) {
	tests := []struct {
		name         string
		link         string
		original     string
		stamp        string
		wantOriginal string
		wantArchived string
		wantMime     string
	}{
		{
			"root-relative image",
			"/img/a.png", "http://example.com/page", "20020527110458",
			"http://example.com/img/a.png",
			"https://web.archive.org/web/20020527110458/http://example.com/img/a.png",
			"image/png",
		},
		{
			"document-relative audio",
			"files/track.mp3", "http://example.com/page", "20020527110458",
			"http://example.com/files/track.mp3",
			"https://web.archive.org/web/20020527110458/http://example.com/files/track.mp3",
			"audio/mpeg",
		},
		{
			"scheme-less page url",
			"/img/a.png", "example.com/page", "20020527110458",
			"http://example.com/img/a.png",
			"https://web.archive.org/web/20020527110458/http://example.com/img/a.png",
			"image/png",
		},
		{
			"absolute external candidate",
			"http://cdn.example.net/pic.gif", "http://example.com/page", "20020527110458",
			"http://cdn.example.net/pic.gif",
			"https://web.archive.org/web/20020527110458/http://cdn.example.net/pic.gif",
			"image/gif",
		},
		{
			"no stamp yields wildcard replay",
			"/img/a.png", "http://example.com/page", "",
			"http://example.com/img/a.png",
			"https://web.archive.org/web/*/http://example.com/img/a.png",
			"image/png",
		},
		{
			"unknown extension keeps empty mimetype",
			"/dl/file.xyz", "http://example.com/page", "20020527110458",
			"http://example.com/dl/file.xyz",
			"https://web.archive.org/web/20020527110458/http://example.com/dl/file.xyz",
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, ok := Normalize(domain.RawCandidate{Link: tt.link}, tt.original, tt.stamp)
			testutil.AssertTrue(t, ok, "candidate kept")
			testutil.AssertEqual(t, it.Original, tt.wantOriginal, "original")
			testutil.AssertEqual(t, it.Archived, tt.wantArchived, "archived")
			testutil.AssertEqual(t, it.Mimetype, tt.wantMime, "mimetype")
		})
	}
}

func TestNormalizeAbsoluteReplayCandidate(t *testing.T) {
	link := "https://web.archive.org/web/20031118093221/http://old.example.com/pic.jpg"
	it, ok := Normalize(domain.RawCandidate{Link: link}, "http://example.com/page", "20020527110458")
	testutil.AssertTrue(t, ok, "candidate kept")
	testutil.AssertEqual(t, it.Archived, link, "replay url served unchanged")
	testutil.AssertEqual(t, it.Original, "http://old.example.com/pic.jpg", "wrapped original recovered")
	testutil.AssertEqual(t, it.Timestamp, "20031118093221", "wrapped stamp wins over page stamp")
	testutil.AssertEqual(t, it.Mimetype, "image/jpeg", "mimetype from wrapped original")
}

func TestNormalizeDropsUnusable(t *testing.T) {
	tests := []struct {
		name     string
		link     string
		original string
	}{
		{"unparseable link", "http://[::1:bad", "http://example.com"},
		{"hostless result", "data:image/png;base64,AAAA", "http://example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Normalize(domain.RawCandidate{Link: tt.link}, tt.original, "")
			testutil.AssertFalse(t, ok, "candidate dropped")
		})
	}
}

func TestNormalizeAssignsGroup(t *testing.T) {
	c := domain.RawCandidate{
		Link:    "/img/a.png",
		Context: domain.ExtractionContext{NearbyText: "Summer Gallery"},
	}
	it, ok := Normalize(c, "http://example.com/page", "20020527110458")
	testutil.AssertTrue(t, ok, "candidate kept")
	testutil.AssertEqual(t, it.GroupTitle, "Summer Gallery", "group title from context")
	testutil.AssertEqual(t, it.GroupYear, "2002", "group year from stamp")
}
