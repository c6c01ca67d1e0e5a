package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/zaircost/garimpo/keypool"
)

func testDeps(pool *keypool.Pool) Deps {
	return Deps{
		Pool:           pool,
		HTTP:           resty.New().SetTimeout(5 * time.Second),
		InterCallDelay: time.Millisecond,
	}
}

func TestCall_RotatesKeyOn429(t *testing.T) {
	var calls atomic.Int32
	var secrets []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secrets = append(secrets, r.Header.Get("X-API-KEY"))
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	pool := keypool.New(keypool.Config{})
	pool.Add("TEST", "key-a")
	pool.Add("TEST", "key-b")
	pool.Add("TEST", "key-c")

	b := newBase("TEST", KindWeb, false, testDeps(pool))
	resp, err := b.call(context.Background(), func(secret string) (*restyResponse, error) {
		return b.http.R().SetHeader("X-API-KEY", secret).Get(srv.URL)
	})
	if err != nil {
		t.Fatalf("call() error = %v", err)
	}
	if resp.StatusCode() != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode())
	}
	if len(secrets) != 2 || secrets[0] != "key-a" || secrets[1] != "key-b" {
		t.Errorf("secrets used = %v, want [key-a key-b]", secrets)
	}
	if pool.Rotations("TEST") != 2 {
		t.Errorf("rotations = %d, want 2", pool.Rotations("TEST"))
	}

	// The rate-limited key must be cooling.
	stats := pool.Stats()["TEST"]
	if stats.Cooling != 1 {
		t.Errorf("cooling = %d, want 1", stats.Cooling)
	}
}

func TestCall_MarksAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	pool := keypool.New(keypool.Config{})
	pool.Add("TEST", "only-key")

	b := newBase("TEST", KindWeb, false, testDeps(pool))
	_, err := b.call(context.Background(), func(secret string) (*restyResponse, error) {
		return b.http.R().Get(srv.URL)
	})
	if err == nil {
		t.Fatal("call() succeeded against a 401 endpoint")
	}
	if got := pool.Stats()["TEST"]; got.Failures != 1 || got.Active != 0 {
		t.Errorf("stats = %+v, want 1 failure, 0 active", got)
	}
}

func TestCall_NoCredentials(t *testing.T) {
	pool := keypool.New(keypool.Config{})
	b := newBase("EMPTY", KindWeb, false, testDeps(pool))
	_, err := b.call(context.Background(), func(secret string) (*restyResponse, error) {
		t.Fatal("attempt ran without a credential")
		return nil, nil
	})
	if err != ErrNoCredentials {
		t.Errorf("error = %v, want ErrNoCredentials", err)
	}
}

func TestSerper_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-KEY") != "sk" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"organic":[
			{"title":"Telemedicina em alta","link":"https://exame.com/t","snippet":"crescimento","position":1},
			{"title":"","link":"","snippet":"descartado"}
		]}`))
	}))
	defer srv.Close()
	old := serperEndpoint
	serperEndpoint = srv.URL
	defer func() { serperEndpoint = old }()

	pool := keypool.New(keypool.Config{})
	pool.Add("SERPER", "sk")
	s := NewSerper(testDeps(pool))

	resp := s.Search(context.Background(), "telemedicina", Limits{MaxResults: 10})
	if !resp.OK() {
		t.Fatalf("Search() soft-failed: %s", resp.Reason)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(resp.Results))
	}
	got := resp.Results[0]
	if got.URL != "https://exame.com/t" || got.Source != "SERPER" || got.Relevance != 0.85 {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestYouTube_SearchBatchesStats(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[
			{"id":{"videoId":"abc123"},"snippet":{"title":"Vídeo A","channelTitle":"Canal","publishedAt":"2026-05-01T10:00:00Z"}},
			{"id":{"videoId":"def456"},"snippet":{"title":"Vídeo B","channelTitle":"Canal"}}
		]}`))
	})
	var statsIDs string
	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		statsIDs = r.URL.Query().Get("id")
		w.Write([]byte(`{"items":[
			{"id":"abc123","statistics":{"viewCount":"50000","likeCount":"500","commentCount":"50"}},
			{"id":"def456","statistics":{"viewCount":"not-a-number"}}
		]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	oldSearch, oldVideos := youtubeSearchEndpoint, youtubeVideosEndpoint
	youtubeSearchEndpoint = srv.URL + "/search"
	youtubeVideosEndpoint = srv.URL + "/videos"
	defer func() { youtubeSearchEndpoint, youtubeVideosEndpoint = oldSearch, oldVideos }()

	pool := keypool.New(keypool.Config{})
	pool.Add("YOUTUBE", "yk")
	y := NewYouTube(testDeps(pool))

	resp := y.Search(context.Background(), "telemedicina", Limits{MaxResults: 5})
	if !resp.OK() {
		t.Fatalf("Search() soft-failed: %s", resp.Reason)
	}
	if statsIDs != "abc123,def456" {
		t.Errorf("stats batch ids = %q, want abc123,def456", statsIDs)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(resp.Results))
	}
	a := resp.Results[0]
	if a.Social == nil || a.Social.Views != 50000 || a.Social.Likes != 500 || a.Social.Comments != 50 {
		t.Errorf("stats not attached: %+v", a.Social)
	}
	b := resp.Results[1]
	if b.Social == nil || b.Social.Views != 0 {
		t.Errorf("non-numeric view count should default to 0, got %+v", b.Social)
	}
}

func TestResolveRedirect(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "duckduckgo querystring",
			in:   "https://html.duckduckgo.com/l/?uddg=https%3A%2F%2Fexame.com%2Fartigo",
			want: "https://exame.com/artigo",
		},
		{
			name: "bing base64",
			in:   "https://www.bing.com/ck/a?!&&p=x&u=a1aHR0cHM6Ly9leGFtZS5jb20vYXJ0aWdv",
			want: "https://exame.com/artigo",
		},
		{
			name: "bing undecodable keeps wrapper",
			in:   "https://www.bing.com/ck/a?u=a1%%%%",
			want: "https://www.bing.com/ck/a?u=a1%%%%",
		},
		{
			name: "google url wrapper",
			in:   "https://www.google.com/url?q=https://g1.globo.com/x&sa=U",
			want: "https://g1.globo.com/x",
		},
		{
			name: "plain url untouched",
			in:   "https://exame.com/x",
			want: "https://exame.com/x",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveRedirect(tt.in); got != tt.want {
				t.Errorf("ResolveRedirect(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMineResultsFromText(t *testing.T) {
	content := `# Resultados
[Telemedicina cresce no Brasil](https://exame.com/telemedicina)
[Outro resultado relevante](https://g1.globo.com/saude/x)
[Ignorar busca](https://www.google.com/search?q=x)
Texto com URL solta https://infomoney.com.br/mercados/y no meio.`

	results := MineResultsFromText(content, "JINA")
	urls := make(map[string]bool, len(results))
	for _, r := range results {
		urls[r.URL] = true
		if r.Source != "JINA" {
			t.Errorf("Source = %q, want JINA", r.Source)
		}
	}
	if !urls["https://exame.com/telemedicina"] || !urls["https://g1.globo.com/saude/x"] {
		t.Errorf("markdown links missing from %v", urls)
	}
	if !urls["https://infomoney.com.br/mercados/y"] {
		t.Errorf("bare URL missing from %v", urls)
	}
	for u := range urls {
		if u == "https://www.google.com/search?q=x" {
			t.Error("search-engine self-link not dropped")
		}
	}
}

func TestVideoIDAndThumbnails(t *testing.T) {
	id, ok := VideoID("https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if !ok || id != "dQw4w9WgXcQ" {
		t.Fatalf("VideoID = %q, %v", id, ok)
	}
	if _, ok := VideoID("https://vimeo.com/123"); ok {
		t.Error("VideoID matched a non-YouTube URL")
	}

	thumbs := ThumbnailURLs("https://youtu.be/dQw4w9WgXcQ")
	if len(thumbs) != 4 {
		t.Fatalf("thumbnails = %d, want 4", len(thumbs))
	}
	if thumbs[0] != "https://img.youtube.com/vi/dQw4w9WgXcQ/maxresdefault.jpg" {
		t.Errorf("first thumbnail = %q", thumbs[0])
	}
}

func TestRegistry_PriorityAndKinds(t *testing.T) {
	r := NewRegistry()
	pool := keypool.New(keypool.Config{})
	deps := testDeps(pool)

	r.Register(NewSerper(deps), 5)
	r.Register(NewExa(deps), 1)
	r.Register(NewYouTube(deps), 7)
	r.Register(NewTwitter(deps), 8)

	web := r.ByKind(KindWeb)
	if len(web) != 2 || web[0].Name() != "EXA" || web[1].Name() != "SERPER" {
		names := make([]string, len(web))
		for i, s := range web {
			names[i] = s.Name()
		}
		t.Errorf("web order = %v, want [EXA SERPER]", names)
	}
	if got := r.ByKind(KindVideo); len(got) != 1 || got[0].Name() != "YOUTUBE" {
		t.Errorf("video kind lookup failed")
	}
	if _, ok := r.Get("X"); !ok {
		t.Error("Get(X) failed")
	}
}
