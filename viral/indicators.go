package viral

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	ctaPatterns = []string{
		"link in bio", "link na bio", "compre agora", "buy now",
		"garanta já", "acesse o link", "clique no link", "saiba mais",
	}
	urgencyPatterns = []string{
		"últimas vagas", "last spots", "oferta", "offer", "só hoje",
		"por tempo limitado", "não perca", "acaba hoje", "promoção",
	}
	socialProofPatterns = []string{
		"clientes", "customers", "resultados", "results", "alunos",
		"depoimento", "aprovado por", "mais vendido",
	}

	hashtagRe = regexp.MustCompile(`#[\p{L}\p{N}_]+`)
	mentionRe = regexp.MustCompile(`@[\p{L}\p{N}_.]+`)
)

// Indicators inspects a post description and returns human-readable
// viral-indicator tags: calls to action, urgency, social proof and
// hashtag density.
func Indicators(description string) []string {
	lower := strings.ToLower(description)
	var out []string

	if hit := firstMatch(lower, ctaPatterns); hit != "" {
		out = append(out, fmt.Sprintf("CTA direto (%q)", hit))
	}
	if hit := firstMatch(lower, urgencyPatterns); hit != "" {
		out = append(out, fmt.Sprintf("gatilho de urgência (%q)", hit))
	}
	if hit := firstMatch(lower, socialProofPatterns); hit != "" {
		out = append(out, fmt.Sprintf("prova social (%q)", hit))
	}
	if tags := hashtagRe.FindAllString(description, -1); len(tags) > 5 {
		out = append(out, fmt.Sprintf("alta densidade de hashtags (%d)", len(tags)))
	}
	return out
}

// Hashtags extracts the hashtags of a text.
func Hashtags(text string) []string {
	return dedupeStrings(hashtagRe.FindAllString(text, -1))
}

// Mentions extracts the @-mentions of a text.
func Mentions(text string) []string {
	return dedupeStrings(mentionRe.FindAllString(text, -1))
}

func firstMatch(lower string, patterns []string) string {
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return p
		}
	}
	return ""
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
