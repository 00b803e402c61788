package extract

import (
	"testing"

	"wayrake/internal/core/domain"
	"wayrake/internal/platform/logx"
	"wayrake/internal/testutil"
)

const fixture = `<!DOCTYPE html>
<html>
<head>
  <title>  Holiday   Shots  </title>
  <meta name="date" content="2003-07-14">
  <meta property="og:image" content="/og/cover.jpg">
  <link rel="image_src" href="/link/preview.png">
</head>
<body>
  <div class="photo-gallery">
    <h2>Summer Gallery</h2>
    <img src="/img/beach.jpg">
    <img data-src="/img/lazy.png">
    <img srcset="/img/small.jpg 480w, /img/large.jpg 1024w">
  </div>
  <figure>
    <img src="/img/framed.gif">
    <figcaption>Framed shot</figcaption>
  </figure>
  <h3>Downloads</h3>
  <audio>
    <source src="/audio/song.ogg">
  </audio>
  <video src="/video/clip.mp4"></video>
  <a href="/files/track.mp3">Track</a>
  <a href="/about.html">About us</a>
  <a href="/media/archive">browse</a>
  <div data-url="/data/hidden.png"></div>
  <div style="background-image: url('/css/bg.jpg'); color: red"></div>
  <a href="/web/20020527110458/http:/example.com/old/pic.jpg">old pic</a>
</body>
</html>`

func extractFixture(t *testing.T) map[string]domain.RawCandidate {
	t.Helper()
	cands := New(logx.NewSilent()).Extract(fixture, "http://example.com/page")
	byLink := make(map[string]domain.RawCandidate, len(cands))
	for _, c := range cands {
		byLink[c.Link] = c
	}
	return byLink
}

func TestExtractCollectsAllSources(t *testing.T) {
	byLink := extractFixture(t)

	wanted := []string{
		"/og/cover.jpg",
		"/link/preview.png",
		"/img/beach.jpg",
		"/img/lazy.png",
		"/img/small.jpg",
		"/img/large.jpg",
		"/img/framed.gif",
		"/audio/song.ogg",
		"/video/clip.mp4",
		"/files/track.mp3",
		"/media/archive",
		"/data/hidden.png",
		"/css/bg.jpg",
	}
	for _, link := range wanted {
		if _, ok := byLink[link]; !ok {
			t.Errorf("missing candidate %q", link)
		}
	}
	if _, ok := byLink["/about.html"]; ok {
		t.Error("plain navigation anchor should be skipped")
	}
}

func TestExtractContext(t *testing.T) {
	byLink := extractFixture(t)

	beach, ok := byLink["/img/beach.jpg"]
	testutil.AssertTrue(t, ok, "gallery image present")
	testutil.AssertEqual(t, beach.Context.NearbyText, "Summer Gallery", "gallery heading wins")
	testutil.AssertEqual(t, beach.Context.PageTitle, "Holiday Shots", "title whitespace collapsed")
	testutil.AssertEqual(t, beach.Context.PageDate, "2003-07-14", "date meta")
	testutil.AssertEqual(t, beach.Context.Tag, "img", "tag recorded")

	framed, ok := byLink["/img/framed.gif"]
	testutil.AssertTrue(t, ok, "figure image present")
	testutil.AssertEqual(t, framed.Context.NearbyText, "Framed shot", "figcaption label")

	track, ok := byLink["/files/track.mp3"]
	testutil.AssertTrue(t, ok, "media anchor present")
	testutil.AssertEqual(t, track.Context.NearbyText, "Downloads", "nearest preceding heading")
}

func TestExtractUnwrapsEmbeddedReplayLinks(t *testing.T) {
	byLink := extractFixture(t)

	if _, ok := byLink["http://example.com/old/pic.jpg"]; !ok {
		t.Fatal("embedded replay link should be unwrapped with its scheme restored")
	}
}

func TestExtractUnparseableHTML(t *testing.T) {
	// goquery parses almost anything; this mostly guards against panics on
	// garbage input.
	cands := New(logx.NewSilent()).Extract("\x00\x01 not html at all", "http://example.com")
	for _, c := range cands {
		testutil.AssertNotEqual(t, c.Link, "", "no empty links")
	}
}

func TestSplitSrcset(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"descriptors stripped", "a.jpg 480w, b.jpg 2x", []string{"a.jpg", "b.jpg"}},
		{"single entry no descriptor", "only.png", []string{"only.png"}},
		{"blank", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSrcset(tt.in)
			testutil.AssertEqual(t, len(got), len(tt.want), "entry count")
			for i := range tt.want {
				testutil.AssertEqual(t, got[i], tt.want[i], "entry")
			}
		})
	}
}

func TestUnwrapReplay(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"collapsed scheme restored",
			"/web/20020527110458/http:/example.com/a.jpg",
			"http://example.com/a.jpg",
		},
		{
			"intact scheme kept",
			"/web/20020527110458/http://example.com/a.jpg",
			"http://example.com/a.jpg",
		},
		{
			"replay modifier suffix",
			"/web/20020527110458im_/http://example.com/a.jpg",
			"http://example.com/a.jpg",
		},
		{"plain relative untouched", "/img/a.jpg", "/img/a.jpg"},
		{"absolute replay untouched", "https://web.archive.org/web/2002/http://x.com", "https://web.archive.org/web/2002/http://x.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertEqual(t, unwrapReplay(tt.in), tt.want, "unwrap")
		})
	}
}

func TestAnchorLooksLikeMedia(t *testing.T) {
	tests := []struct {
		href string
		text string
		want bool
	}{
		{"/song.mp3", "listen", true},
		{"/doc/report.pdf", "report", true},
		{"/gallery.html?img=1", "pictures", false},
		{"/browse", "our media section", true},
		{"/files/", "go", true},
		{"/contact", "contact", false},
	}
	for _, tt := range tests {
		got := anchorLooksLikeMedia(tt.href, tt.text)
		testutil.AssertEqual(t, got, tt.want, tt.href)
	}
}
