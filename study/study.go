// Package study runs the optional deep-study pass: seven sequenced
// analytical prompts over the aggregated collection data.
package study

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zaircost/garimpo/artifact"
)

// Generator produces text for a prompt. The engine treats generation as an
// opaque function; the genai-backed implementation lives in gemini.go.
type Generator func(ctx context.Context, prompt string, maxTokens int) (string, error)

// Config holds engine configuration.
type Config struct {
	Generate Generator

	// TotalBudget is the wall-clock budget split evenly across the seven
	// phases. Default: 5 minutes.
	TotalBudget time.Duration

	// MaxTokens per phase answer. Default: 2048.
	MaxTokens int

	Logger zerolog.Logger
}

// Engine sequences the study phases. Phases that time out or fail are
// marked incomplete; the pass never fails the run.
type Engine struct {
	config Config
	logger zerolog.Logger
}

// New creates an Engine.
func New(cfg Config) *Engine {
	if cfg.TotalBudget <= 0 {
		cfg.TotalBudget = 5 * time.Minute
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	return &Engine{
		config: cfg,
		logger: cfg.Logger.With().Str("component", "study").Logger(),
	}
}

type phaseSpec struct {
	name   string
	prompt string
}

func phaseSpecs(data *artifact.MassiveData) []phaseSpec {
	summary := summarize(data)
	build := func(angle string) string {
		return fmt.Sprintf(
			"Você é um analista de mercado sênior. Com base nos dados coletados abaixo, produza a análise %s em português, objetiva e acionável.\n\nDADOS:\n%s",
			angle, summary)
	}
	return []phaseSpec{
		{"structural", build("ESTRUTURAL do mercado (cadeia de valor, players, barreiras de entrada)")},
		{"market", build("DE MERCADO (tamanho, crescimento, segmentação, dados quantitativos)")},
		{"competitive", build("COMPETITIVA (concorrentes, posicionamentos, diferenciais)")},
		{"behavioral", build("COMPORTAMENTAL do público (dores, desejos, objeções, gatilhos)")},
		{"trends", build("DE TENDÊNCIAS (o que está crescendo, o que está morrendo)")},
		{"predictive", build("PREDITIVA (cenários para os próximos 24 meses)")},
		{"strategic", build("ESTRATÉGICA (recomendações priorizadas de entrada e posicionamento)")},
	}
}

// Run executes the seven phases with per-phase budget total/7.
func (e *Engine) Run(ctx context.Context, data *artifact.MassiveData) *artifact.ExpertKnowledge {
	knowledge := &artifact.ExpertKnowledge{}
	specs := phaseSpecs(data)
	phases := knowledge.Phases()
	perPhase := e.config.TotalBudget / time.Duration(len(specs))

	for i, spec := range specs {
		phase := phases[i]
		phase.Name = spec.name

		start := time.Now()
		phaseCtx, cancel := context.WithTimeout(ctx, perPhase)
		text, err := e.config.Generate(phaseCtx, spec.prompt, e.config.MaxTokens)
		cancel()
		phase.ElapsedMS = time.Since(start).Milliseconds()

		if err != nil {
			phase.Error = err.Error()
			e.logger.Warn().Str("phase", spec.name).Err(err).Msg("study phase incomplete")
			continue
		}
		phase.Content = strings.TrimSpace(text)
		phase.Complete = phase.Content != ""
	}
	return knowledge
}

// summarize compacts the artifact into prompt context: top insights,
// trends, opportunities and viral highlights.
func summarize(data *artifact.MassiveData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Busca: %s\n", data.Query)
	if data.Context.Segment != "" {
		fmt.Fprintf(&b, "Segmento: %s\n", data.Context.Segment)
	}
	if data.Context.Product != "" {
		fmt.Fprintf(&b, "Produto: %s\n", data.Context.Product)
	}
	if data.Context.Audience != "" {
		fmt.Fprintf(&b, "Público: %s\n", data.Context.Audience)
	}

	if r := data.Research; r != nil {
		writeList(&b, "INSIGHTS", r.TopInsights, 15)
		writeList(&b, "TENDÊNCIAS", r.Trends, 8)
		writeList(&b, "OPORTUNIDADES", r.Opportunities, 8)
	}

	if len(data.ViralContent.Posts) > 0 {
		b.WriteString("\nCONTEÚDO VIRAL:\n")
		for i, p := range data.ViralContent.Posts {
			if i >= 8 {
				break
			}
			fmt.Fprintf(&b, "- [%s] %s (score %.1f)\n", p.Platform, p.Title, p.ViralScore)
		}
	}

	for i, page := range data.ExtractedContent {
		if i >= 5 {
			break
		}
		excerpt := page.Content
		if len(excerpt) > 800 {
			excerpt = excerpt[:800]
		}
		fmt.Fprintf(&b, "\nFONTE %d (%s, qualidade %d):\n%s\n", i+1, page.URL, page.Quality, excerpt)
	}

	out := b.String()
	if len(out) > 24000 {
		out = out[:24000]
	}
	return out
}

func writeList(b *strings.Builder, header string, items []string, max int) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", header)
	for i, item := range items {
		if i >= max {
			break
		}
		fmt.Fprintf(b, "- %s\n", item)
	}
}
