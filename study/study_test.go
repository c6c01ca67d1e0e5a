package study

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/zaircost/garimpo/artifact"
	"github.com/zaircost/garimpo/research"
)

func sampleData() *artifact.MassiveData {
	return &artifact.MassiveData{
		Query:   "telemedicina",
		Context: research.Context{Segment: "saúde digital"},
		Research: &research.Report{
			TopInsights: []string{"mercado cresceu 45% em 2025"},
			Trends:      []string{"IA em triagem"},
		},
	}
}

func TestRun_AllPhases(t *testing.T) {
	var prompts []string
	gen := func(ctx context.Context, prompt string, maxTokens int) (string, error) {
		prompts = append(prompts, prompt)
		return "análise pronta", nil
	}

	engine := New(Config{Generate: gen, TotalBudget: 7 * time.Second})
	knowledge := engine.Run(context.Background(), sampleData())

	phases := knowledge.Phases()
	if len(phases) != 7 {
		t.Fatalf("phases = %d, want 7", len(phases))
	}
	wantNames := []string{"structural", "market", "competitive", "behavioral", "trends", "predictive", "strategic"}
	for i, phase := range phases {
		if phase.Name != wantNames[i] {
			t.Errorf("phase %d name = %q, want %q", i, phase.Name, wantNames[i])
		}
		if !phase.Complete {
			t.Errorf("phase %s incomplete", phase.Name)
		}
		if phase.Content != "análise pronta" {
			t.Errorf("phase %s content = %q", phase.Name, phase.Content)
		}
	}
	if len(prompts) != 7 {
		t.Errorf("generator called %d times, want 7", len(prompts))
	}
	for _, p := range prompts {
		if !strings.Contains(p, "telemedicina") {
			t.Error("prompt lacks the query context")
		}
	}
}

func TestRun_FailedPhaseDoesNotAbort(t *testing.T) {
	call := 0
	gen := func(ctx context.Context, prompt string, maxTokens int) (string, error) {
		call++
		if call == 2 {
			return "", errors.New("quota exceeded")
		}
		return "ok", nil
	}

	knowledge := New(Config{Generate: gen}).Run(context.Background(), sampleData())

	if knowledge.Market.Complete {
		t.Error("failed phase marked complete")
	}
	if knowledge.Market.Error != "quota exceeded" {
		t.Errorf("Market.Error = %q", knowledge.Market.Error)
	}
	if !knowledge.Structural.Complete || !knowledge.Strategic.Complete {
		t.Error("healthy phases should still complete")
	}
}

func TestRun_PhaseTimeout(t *testing.T) {
	gen := func(ctx context.Context, prompt string, maxTokens int) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}

	start := time.Now()
	knowledge := New(Config{Generate: gen, TotalBudget: 70 * time.Millisecond}).Run(context.Background(), sampleData())
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("run did not respect phase budgets: %v", elapsed)
	}

	for _, phase := range knowledge.Phases() {
		if phase.Complete {
			t.Errorf("phase %s complete despite timeout", phase.Name)
		}
		if phase.Error == "" {
			t.Errorf("phase %s missing error", phase.Name)
		}
	}
}

func TestSummarize_Caps(t *testing.T) {
	data := sampleData()
	data.ExtractedContent = []research.Page{
		{URL: "https://a", Quality: 80, Content: strings.Repeat("x", 30000)},
		{URL: "https://b", Quality: 75, Content: strings.Repeat("y", 30000)},
	}
	got := summarize(data)
	if len(got) > 24000 {
		t.Errorf("summary = %d chars, want <= 24000", len(got))
	}
	if !strings.Contains(got, "Segmento: saúde digital") {
		t.Error("context line missing")
	}
}
