// Package report renders the human-readable outputs of a collection run.
// Both renderers are pure functions of the artifact: the same MassiveData
// always produces byte-identical output.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zaircost/garimpo/artifact"
	"github.com/zaircost/garimpo/viral"
)

// Markdown renders relatorio_coleta.md.
func Markdown(data *artifact.MassiveData) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# RELATÓRIO DE COLETA DE DADOS\n\n")
	fmt.Fprintf(&b, "**Sessão:** %s\n\n", data.SessionID)
	fmt.Fprintf(&b, "**Busca:** %s\n\n", data.Query)
	fmt.Fprintf(&b, "**Início:** %s\n\n", data.CollectionStarted.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "**Duração:** %.2fs\n\n", data.Statistics.CollectionTime)

	if data.EmergencyMode {
		fmt.Fprintf(&b, "> ⚠️ **MODO DE EMERGÊNCIA**: %s\n\n", data.EmergencyReason)
	}

	b.WriteString("## Resumo da Coleta\n\n")
	fmt.Fprintf(&b, "- Fontes totais: %d\n", data.Statistics.TotalSources)
	fmt.Fprintf(&b, "- URLs únicas: %d\n", data.Statistics.UniqueURLs)
	fmt.Fprintf(&b, "- Conteúdo extraído: %d caracteres\n", data.Statistics.TotalContentLength)
	fmt.Fprintf(&b, "- Screenshots capturados: %d\n", data.Statistics.ScreenshotCount)
	fmt.Fprintf(&b, "- Páginas aprovadas: %d\n\n", len(data.ExtractedContent))

	writeSourcesByType(&b, data)
	writeProviderHighlights(&b, data)
	writeTopWebResults(&b, data)
	writePlatformPosts(&b, data)
	writeViralContent(&b, data)
	writeVisualEvidence(&b, data)
	writeErrors(&b, data)

	return []byte(b.String())
}

func writeSourcesByType(b *strings.Builder, data *artifact.MassiveData) {
	if len(data.Statistics.SourcesByType) == 0 {
		return
	}
	b.WriteString("## Fontes por Tipo\n\n")
	b.WriteString("| Tipo | Resultados |\n|---|---|\n")
	for _, kind := range sortedKeys(data.Statistics.SourcesByType) {
		fmt.Fprintf(b, "| %s | %d |\n", kind, data.Statistics.SourcesByType[kind])
	}
	b.WriteString("\n")
}

func writeProviderHighlights(b *strings.Builder, data *artifact.MassiveData) {
	if len(data.Statistics.APIRotations) == 0 {
		return
	}
	b.WriteString("## Provedores\n\n")
	b.WriteString("| Provedor | Chamadas | Rotações de chave | Taxa de sucesso |\n|---|---|---|---|\n")
	for _, name := range sortedKeys(data.Statistics.APIRotations) {
		calls := data.Statistics.APICalls[name]
		rate := data.Statistics.SuccessRate[name]
		fmt.Fprintf(b, "| %s | %d | %d | %.0f%% |\n", name, calls, data.Statistics.APIRotations[name], rate*100)
	}
	b.WriteString("\n")
}

func writeTopWebResults(b *strings.Builder, data *artifact.MassiveData) {
	results := data.WebSearchData.Results
	if len(results) == 0 {
		return
	}
	b.WriteString("## Principais Resultados Web\n\n")
	limit := min(5, len(results))
	for i := 0; i < limit; i++ {
		r := results[i]
		fmt.Fprintf(b, "%d. [%s](%s) — %s (relevância %.2f)\n", i+1, orUntitled(r.Title), r.URL, r.Source, r.Relevance)
	}
	b.WriteString("\n")
}

func writePlatformPosts(b *strings.Builder, data *artifact.MassiveData) {
	platforms := data.SocialMediaData.Platforms
	if len(platforms) == 0 {
		return
	}
	b.WriteString("## Principais Posts por Plataforma\n\n")
	for _, platform := range sortedKeys(platforms) {
		posts := platforms[platform].Posts
		if len(posts) == 0 {
			continue
		}
		fmt.Fprintf(b, "### %s\n\n", strings.ToUpper(platform[:1])+platform[1:])
		limit := min(3, len(posts))
		for i := 0; i < limit; i++ {
			p := posts[i]
			fmt.Fprintf(b, "%d. [%s](%s) — score viral %.2f (%s)\n",
				i+1, orUntitled(p.Title), p.URL, p.ViralScore, p.ViralCategory)
		}
		b.WriteString("\n")
	}
}

func writeViralContent(b *strings.Builder, data *artifact.MassiveData) {
	posts := data.ViralContent.Posts
	if len(posts) == 0 {
		return
	}
	b.WriteString("## Conteúdo Viral Identificado\n\n")
	fmt.Fprintf(b, "Total identificado: %d | Engajamento médio: %.2f\n\n", data.ViralContent.TotalFound, data.ViralContent.AvgEngagement)
	for i, p := range posts {
		if i >= 10 {
			break
		}
		fmt.Fprintf(b, "%d. **[%s]** %s — score %.2f (%s)\n", i+1, strings.ToUpper(p.Platform), orUntitled(p.Title), p.ViralScore, p.ViralCategory)
		fmt.Fprintf(b, "   - %s\n", formatMetrics(p))
		if len(p.Indicators) > 0 {
			fmt.Fprintf(b, "   - Indicadores: %s\n", strings.Join(p.Indicators, "; "))
		}
		if p.IsEstimate {
			b.WriteString("   - ⚠️ métricas estimadas\n")
		}
	}
	b.WriteString("\n")
}

func writeVisualEvidence(b *strings.Builder, data *artifact.MassiveData) {
	if len(data.ScreenshotsCaptured) == 0 && len(data.DownloadedImages) == 0 {
		return
	}
	b.WriteString("## Evidências Visuais\n\n")
	for _, shot := range data.ScreenshotsCaptured {
		fmt.Fprintf(b, "- `%s` — %s", shot.RelativePath, shot.SourceURL)
		if shot.ViralScore > 0 {
			fmt.Fprintf(b, " (viral %.2f)", shot.ViralScore)
		}
		b.WriteString("\n")
	}
	for _, img := range data.DownloadedImages {
		fmt.Fprintf(b, "- `%s` — imagem de %s\n", img.LocalPath, img.Platform)
	}
	b.WriteString("\n")
}

func writeErrors(b *strings.Builder, data *artifact.MassiveData) {
	b.WriteString("## Erros\n\n")
	if len(data.Errors) == 0 {
		b.WriteString("Nenhum provedor registrou falha.\n")
		return
	}
	sorted := append([]artifact.SourceError(nil), data.Errors...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Source < sorted[j].Source })
	for _, e := range sorted {
		fmt.Fprintf(b, "- **%s**: %s\n", e.Source, e.Message)
	}
}

// Incorporation renders the compact plain-text summary embedded into a
// parent search record. Output is capped near 8 KB.
func Incorporation(data *artifact.MassiveData) string {
	var b strings.Builder
	banner := strings.Repeat("=", 60)

	b.WriteString("\n" + banner + "\n")
	b.WriteString("CONTEÚDO VIRAL IDENTIFICADO\n")
	b.WriteString(banner + "\n")
	fmt.Fprintf(&b, "Busca: %s\n", data.Query)
	fmt.Fprintf(&b, "Total: %d conteúdos virais\n", data.ViralContent.TotalFound)
	fmt.Fprintf(&b, "Engagement médio: %.1f\n\n", data.ViralContent.AvgEngagement)

	b.WriteString("INSIGHTS VIRAIS PRINCIPAIS:\n")
	for i, p := range data.ViralContent.Posts {
		if i >= 10 {
			break
		}
		title := orUntitled(p.Title)
		if len(title) > 80 {
			title = title[:80]
		}
		fmt.Fprintf(&b, "%d. [%s] %s — engagement=%.1f, likes=%d\n",
			i+1, strings.ToUpper(p.Platform), title, p.ViralScore, p.Metrics.Likes)
		if len(p.Indicators) > 0 {
			limit := min(3, len(p.Indicators))
			fmt.Fprintf(&b, "   Indicadores: %s\n", strings.Join(p.Indicators[:limit], ", "))
		}
	}
	b.WriteString(banner + "\n")

	out := b.String()
	if len(out) > 8000 {
		out = out[:8000]
	}
	return out
}

func formatMetrics(p viral.Post) string {
	m := p.Metrics
	switch p.Platform {
	case "youtube":
		return fmt.Sprintf("views=%d likes=%d comments=%d", m.Views, m.Likes, m.Comments)
	case "twitter":
		return fmt.Sprintf("retweets=%d likes=%d replies=%d quotes=%d", m.Retweets, m.Likes, m.Replies, m.Quotes)
	case "tiktok":
		return fmt.Sprintf("views=%d likes=%d shares=%d", m.Views, m.Likes, m.Shares)
	default:
		return fmt.Sprintf("likes=%d comments=%d shares=%d", m.Likes, m.Comments, m.Shares)
	}
}

func orUntitled(title string) string {
	if strings.TrimSpace(title) == "" {
		return "Sem título"
	}
	return title
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
