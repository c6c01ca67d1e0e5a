package viral

import (
	"strings"
	"testing"
)

func TestScore_Platforms(t *testing.T) {
	tests := []struct {
		name string
		m    Metrics
		want float64
	}{
		{
			name: "youtube zero",
			m:    Metrics{Platform: "youtube"},
			want: 0,
		},
		{
			name: "youtube mid",
			m:    Metrics{Platform: "youtube", Views: 550_000, Likes: 3000, Comments: 200},
			want: 6.0,
		},
		{
			name: "youtube capped",
			m:    Metrics{Platform: "youtube", Views: 10_000_000, Likes: 300_000, Comments: 20_000},
			want: 10,
		},
		{
			name: "instagram",
			m:    Metrics{Platform: "instagram", Likes: 10_000, Comments: 500, Shares: 250},
			want: 4.0,
		},
		{
			name: "twitter",
			m:    Metrics{Platform: "twitter", Retweets: 1000, Likes: 5000, Replies: 500},
			want: 10,
		},
		{
			name: "tiktok",
			m:    Metrics{Platform: "tiktok", Views: 1_000_000, Likes: 20_000, Shares: 2000},
			want: 3.2,
		},
		{
			name: "unknown platform",
			m:    Metrics{Platform: "orkut", Likes: 999999},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.m); got != tt.want {
				t.Errorf("Score(%+v) = %v, want %v", tt.m, got, tt.want)
			}
		})
	}
}

func TestScore_Monotonic(t *testing.T) {
	base := Metrics{Platform: "youtube", Views: 100_000, Likes: 1000, Comments: 100}
	baseScore := Score(base)

	bumps := []Metrics{
		{Platform: "youtube", Views: 200_000, Likes: 1000, Comments: 100},
		{Platform: "youtube", Views: 100_000, Likes: 5000, Comments: 100},
		{Platform: "youtube", Views: 100_000, Likes: 1000, Comments: 900},
	}
	for _, m := range bumps {
		if got := Score(m); got < baseScore {
			t.Errorf("Score(%+v) = %v < base %v; increasing a metric decreased the score", m, got, baseScore)
		}
	}
}

func TestCategorize_Bands(t *testing.T) {
	tests := []struct {
		score float64
		want  Category
	}{
		{0, Popular},
		{4.99, Popular},
		{5, Trending},
		{6.99, Trending},
		{7, Viral},
		{8.99, Viral},
		{9, MegaViral},
		{10, MegaViral},
	}
	for _, tt := range tests {
		if got := Categorize(tt.score); got != tt.want {
			t.Errorf("Categorize(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestIdentify_CategoriesIncreaseWithEngagement(t *testing.T) {
	posts := []Post{
		{Platform: "youtube", URL: "https://youtube.com/watch?v=a", Metrics: Metrics{Views: 0, Likes: 0, Comments: 0}},
		{Platform: "youtube", URL: "https://youtube.com/watch?v=b", Metrics: Metrics{Views: 550_000, Likes: 3000, Comments: 200}},
		{Platform: "youtube", URL: "https://youtube.com/watch?v=c", Metrics: Metrics{Views: 700_000, Likes: 8000, Comments: 500}},
		{Platform: "youtube", URL: "https://youtube.com/watch?v=d", Metrics: Metrics{Views: 10_000_000, Likes: 300_000, Comments: 20_000}},
	}

	scored := ScoreAll(posts)
	wantCats := []Category{Popular, Trending, Viral, MegaViral}
	for i, want := range wantCats {
		if scored[i].ViralCategory != want {
			t.Errorf("post %d category = %v, want %v (score %v)", i, scored[i].ViralCategory, want, scored[i].ViralScore)
		}
	}
	for i := 1; i < len(scored); i++ {
		if scored[i].ViralScore <= scored[i-1].ViralScore {
			t.Errorf("scores not strictly increasing: %v then %v", scored[i-1].ViralScore, scored[i].ViralScore)
		}
	}

	top := Identify(posts)
	if len(top) != 3 {
		t.Fatalf("Identify kept %d posts, want 3 (score >= 5)", len(top))
	}
	if top[0].URL != "https://youtube.com/watch?v=d" {
		t.Errorf("top post = %s, want the mega-viral one", top[0].URL)
	}
	for i := 1; i < len(top); i++ {
		if top[i].ViralScore > top[i-1].ViralScore {
			t.Error("Identify output not sorted descending")
		}
	}
}

func TestIndicators(t *testing.T) {
	desc := "Garanta já sua vaga, link na bio! Últimas vagas para a turma. Mais de 500 clientes satisfeitos. " +
		"#saude #telemedicina #brasil #medicina #inovacao #startup"

	got := Indicators(desc)
	if len(got) != 4 {
		t.Fatalf("Indicators() = %v, want 4 entries", got)
	}
	joined := strings.Join(got, "|")
	for _, want := range []string{"CTA", "urgência", "prova social", "hashtags"} {
		if !strings.Contains(joined, want) {
			t.Errorf("indicator %q missing from %v", want, got)
		}
	}
}

func TestIndicators_CleanText(t *testing.T) {
	if got := Indicators("Um texto neutro sobre telemedicina no Brasil."); len(got) != 0 {
		t.Errorf("Indicators() = %v, want none", got)
	}
}

func TestHashtagsAndMentions(t *testing.T) {
	text := "Novidade #Saude com @dr.joao e #saude de novo, valeu @maria_123"
	tags := Hashtags(text)
	if len(tags) != 1 || tags[0] != "#Saude" {
		t.Errorf("Hashtags() = %v, want [#Saude] (case-insensitive dedupe)", tags)
	}
	mentions := Mentions(text)
	if len(mentions) != 2 {
		t.Errorf("Mentions() = %v, want 2", mentions)
	}
}

func TestIsPlatformURL(t *testing.T) {
	tests := []struct {
		platform string
		url      string
		want     bool
	}{
		{"instagram", "https://www.instagram.com/p/Cxyz123/", true},
		{"instagram", "https://www.instagram.com/reel/Cab_45/", true},
		{"instagram", "https://www.instagram.com/accounts/login/", false},
		{"facebook", "https://www.facebook.com/page/posts/123", true},
		{"facebook", "https://www.facebook.com/groups/x", false},
		{"youtube", "https://www.youtube.com/watch?v=abc", true},
		{"youtube", "https://youtu.be/abc", true},
		{"tiktok", "https://www.tiktok.com/@user/video/999", true},
		{"tiktok", "https://www.tiktok.com/@user", false},
		{"linkedin", "https://www.linkedin.com/posts/foo_bar", true},
	}
	for _, tt := range tests {
		if got := IsPlatformURL(tt.platform, tt.url); got != tt.want {
			t.Errorf("IsPlatformURL(%q, %q) = %v, want %v", tt.platform, tt.url, got, tt.want)
		}
	}
}

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://youtu.be/abc", "youtube"},
		{"https://www.instagram.com/p/x/", "instagram"},
		{"https://fb.watch/x", "facebook"},
		{"https://x.com/user/status/1", "twitter"},
		{"https://example.com", ""},
	}
	for _, tt := range tests {
		if got := DetectPlatform(tt.url); got != tt.want {
			t.Errorf("DetectPlatform(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestToolClient_FallbackInstagram(t *testing.T) {
	tc := NewToolClient(ToolClientConfig{})
	tc.tools = map[string][]string{} // every tool chain empty, forces fallback

	img, ok := tc.ExtractPost(t.Context(), "https://www.instagram.com/p/Cxyz123/", "instagram", "telemedicina")
	if !ok || img == nil {
		t.Fatal("fallback record not produced")
	}
	if !img.IsEstimate {
		t.Error("fallback record not flagged is_estimate")
	}
	if img.ImageURL != "https://www.instagram.com/p/Cxyz123/media/?size=l" {
		t.Errorf("fallback image URL = %q", img.ImageURL)
	}
	if img.EngagementScore <= 0 {
		t.Error("fallback engagement score not computed")
	}
}

func TestToolClient_DisableFallbacks(t *testing.T) {
	tc := NewToolClient(ToolClientConfig{DisableFallbacks: true})
	tc.tools = map[string][]string{}

	if _, ok := tc.ExtractPost(t.Context(), "https://www.instagram.com/p/C1/", "instagram", "q"); ok {
		t.Error("fallback produced despite DisableFallbacks")
	}
}

func TestToolClient_YouTubeDeterministic(t *testing.T) {
	tc := NewToolClient(ToolClientConfig{})
	img, ok := tc.ExtractPost(t.Context(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "youtube", "q")
	if !ok {
		t.Fatal("youtube extraction failed")
	}
	if img.ImageURL != "https://img.youtube.com/vi/dQw4w9WgXcQ/maxresdefault.jpg" {
		t.Errorf("ImageURL = %q", img.ImageURL)
	}
	if img.IsEstimate {
		t.Error("thumbnail synthesis is deterministic, not an estimate")
	}
}
