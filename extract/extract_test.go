package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func longParagraphs(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "<p>O mercado de telemedicina no Brasil cresceu de forma consistente nos últimos anos, parágrafo %d com dados e contexto suficientes para contar como texto real.</p>", i)
	}
	return sb.String()
}

func TestExtract_ReaderWins(t *testing.T) {
	reader := func(ctx context.Context, url string) (string, error) {
		return strings.Repeat("Conteúdo vindo do serviço de leitura. ", 20), nil
	}
	e := New(Config{
		Reader:  reader,
		Session: NewSession(SessionConfig{}),
	})

	got, err := e.Extract(context.Background(), "https://example.com/artigo")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Method != "reader_service" {
		t.Errorf("Method = %q, want reader_service", got.Method)
	}
	if got.WordCount == 0 {
		t.Error("WordCount = 0")
	}
}

func TestExtract_FallsBackToHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><head><title>Artigo</title></head><body><nav>menu</nav><article>%s</article></body></html>", longParagraphs(6))
	}))
	defer srv.Close()

	reader := func(ctx context.Context, url string) (string, error) {
		return "", errors.New("reader down")
	}
	e := New(Config{
		Reader:  reader,
		Session: NewSession(SessionConfig{}),
	})

	got, err := e.Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Method != "readability" {
		t.Errorf("Method = %q, want readability", got.Method)
	}
	if got.Title != "Artigo" {
		t.Errorf("Title = %q, want Artigo", got.Title)
	}
	if strings.Contains(got.Content, "menu") {
		t.Error("navigation text leaked into content")
	}
}

func TestExtract_StructuredFallback(t *testing.T) {
	// Content in a classed div with no <p> children defeats the
	// readability scorer but not the structured strategy.
	body := strings.Repeat("Texto corrido sobre o mercado brasileiro de saúde digital e seus números. ", 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><head><title>T</title></head><body><div class=\"post-content\">%s</div></body></html>", body)
	}))
	defer srv.Close()

	e := New(Config{Session: NewSession(SessionConfig{})})
	got, err := e.Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Method != "structured_html" {
		t.Errorf("Method = %q, want structured_html", got.Method)
	}
}

func TestExtract_TooShortEverywhere(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><p>curto</p></body></html>")
	}))
	defer srv.Close()

	e := New(Config{Session: NewSession(SessionConfig{})})
	_, err := e.Extract(context.Background(), srv.URL)
	if !errors.Is(err, ErrAllStrategiesFailed) {
		t.Errorf("error = %v, want ErrAllStrategiesFailed", err)
	}
}

func TestExtract_TruncatesLongReaderOutput(t *testing.T) {
	reader := func(ctx context.Context, url string) (string, error) {
		return strings.Repeat("a", 40000), nil
	}
	e := New(Config{Reader: reader, Session: NewSession(SessionConfig{})})

	got, err := e.Extract(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(got.Content) > maxContentChars+len(truncationMarker) {
		t.Errorf("content not truncated: %d chars", len(got.Content))
	}
	if !strings.HasSuffix(got.Content, truncationMarker) {
		t.Error("truncation marker missing")
	}
}

func TestSession_DecodesLegacyCharset(t *testing.T) {
	// "saúde" in ISO-8859-1: ú is 0xFA.
	latin1 := append([]byte("sa"), 0xFA)
	latin1 = append(latin1, []byte("de no Brasil")...)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write(latin1)
	}))
	defer srv.Close()

	s := NewSession(SessionConfig{})
	got, err := s.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !strings.Contains(got, "saúde") {
		t.Errorf("charset not decoded: %q", got)
	}
}

func TestScoreQuality(t *testing.T) {
	rich := strings.Repeat("telemedicina no Brasil cresceu 45% em 2025, movimentando R$ 2,3 bilhões entre 1200 empresas. ", 30)

	tests := []struct {
		name    string
		content string
		url     string
		terms   []string
		min     int
		max     int
	}{
		{
			name:    "rich preferred-domain page",
			content: rich,
			url:     "https://exame.com/negocios/telemedicina",
			terms:   []string{"telemedicina", "Brasil"},
			min:     MinQualityScore,
			max:     100,
		},
		{
			name:    "thin page on unknown host",
			content: "pouco texto",
			url:     "https://blog.try.io/x",
			terms:   []string{"telemedicina"},
			min:     0,
			max:     MinQualityScore - 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreQuality(tt.content, tt.url, tt.terms)
			if got < tt.min || got > tt.max {
				t.Errorf("ScoreQuality() = %d, want within [%d,%d]", got, tt.min, tt.max)
			}
		})
	}
}

func TestScoreQuality_CapAt100(t *testing.T) {
	content := strings.Repeat("saúde digital brasil 2025 com 80% de adesão e R$ 9,9 bilhões em 500 empresas e 3 mil clientes. ", 60)
	got := ScoreQuality(content, "https://g1.globo.com/saude", []string{"saúde", "digital", "brasil"})
	if got > 100 {
		t.Errorf("ScoreQuality() = %d, want <= 100", got)
	}
	if got != 100 {
		t.Errorf("ScoreQuality() = %d, want exactly 100 for maxed signals", got)
	}
}

func TestDomainReputation(t *testing.T) {
	tests := []struct {
		url  string
		want int
	}{
		{"https://exame.com/x", 20},
		{"https://dados.gov.br/x", 20}, // gov.br is also on the preferred list
		{"https://usp.edu.br/pesquisa", 15},
		{"https://abranet.org.br/x", 10},
		{"https://qualquer.com.br/x", 5},
	}
	for _, tt := range tests {
		if got := domainReputation(tt.url); got != tt.want {
			t.Errorf("domainReputation(%q) = %d, want %d", tt.url, got, tt.want)
		}
	}
}
