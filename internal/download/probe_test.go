package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"wayrake/internal/platform/logx"
	"wayrake/internal/testutil"
)

func TestProbeAudioViaHead(t *testing.T) {
	var gets int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			atomic.AddInt32(&gets, 1)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
	}))
	defer srv.Close()

	res, err := NewProber("", logx.NewSilent()).Probe(context.Background(), srv.URL+"/song.mp3")
	testutil.AssertNoError(t, err, "probe")
	testutil.AssertEqual(t, res.Type, "audio", "classified as audio")
	testutil.AssertEqual(t, res.URL, srv.URL+"/song.mp3", "probed url kept")
	testutil.AssertEqual(t, atomic.LoadInt32(&gets), int32(0), "head alone settles it")
}

func TestProbeAudioViaGetWhenHeadBlocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "audio/ogg; charset=binary")
		w.Write([]byte("ogg"))
	}))
	defer srv.Close()

	res, err := NewProber("", logx.NewSilent()).Probe(context.Background(), srv.URL+"/stream")
	testutil.AssertNoError(t, err, "probe")
	testutil.AssertEqual(t, res.Type, "audio", "classified as audio")
	testutil.AssertEqual(t, res.ContentType, "audio/ogg; charset=binary", "full content type reported")
}

func TestProbeHTMLWithDirectAudioLink(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><a href="/media/track.mp3">play</a></body></html>`))
	})
	mux.HandleFunc("/media/track.mp3", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	res, err := NewProber("", logx.NewSilent()).Probe(context.Background(), srv.URL+"/page")
	testutil.AssertNoError(t, err, "probe")
	testutil.AssertEqual(t, res.Type, "audio", "page link confirmed as audio")
	testutil.AssertEqual(t, res.URL, srv.URL+"/media/track.mp3", "resolved direct link")
	testutil.AssertFalse(t, res.NeedsInteraction, "direct link means no interaction needed")
}

func TestProbeHTMLNeedsInteraction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><button id="load">Load player</button></body></html>`))
	}))
	defer srv.Close()

	res, err := NewProber("", logx.NewSilent()).Probe(context.Background(), srv.URL+"/page")
	testutil.AssertNoError(t, err, "probe")
	testutil.AssertEqual(t, res.Type, "html", "classified as html")
	testutil.AssertTrue(t, res.NeedsInteraction, "scripted player flagged")
}

func TestProbeUnknownType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		w.Write([]byte{0x50, 0x4b})
	}))
	defer srv.Close()

	res, err := NewProber("", logx.NewSilent()).Probe(context.Background(), srv.URL+"/bundle")
	testutil.AssertNoError(t, err, "probe")
	testutil.AssertEqual(t, res.Type, "unknown", "unclassified content")
	testutil.AssertEqual(t, res.ContentType, "application/zip", "content type reported")
}

func TestProbeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewProber("", logx.NewSilent()).Probe(context.Background(), srv.URL+"/gone")
	testutil.AssertError(t, err, "non-200 probe fails")
}

func TestAudioCandidates(t *testing.T) {
	body := `<html><body>
	  <audio src="/direct.mp3"></audio>
	  <audio><source src="/nested.ogg"></audio>
	  <a href="/files/song.MP3?dl=1">download</a>
	  <a href="/about">about</a>
	  <iframe src="/embed/player.mp3"></iframe>
	  <iframe src="/embed/video"></iframe>
	</body></html>`

	got := audioCandidates(body)
	want := []string{"/nested.ogg", "/direct.mp3", "/files/song.MP3?dl=1", "/embed/player.mp3"}
	testutil.AssertEqual(t, len(got), len(want), "candidate count")
	seen := make(map[string]bool)
	for _, c := range got {
		seen[c] = true
	}
	for _, w := range want {
		testutil.AssertTrue(t, seen[w], w)
	}
}
