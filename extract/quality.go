package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/zaircost/garimpo/urlfilter"
)

// MinQualityScore is the rejection threshold: pages scoring below it are
// dropped, not stored.
const MinQualityScore = 60

var dataPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d+%`),
	regexp.MustCompile(`R\$\s?[\d.,]+`),
	regexp.MustCompile(`\d+\s(mil|milhão|milhões|bilhão|bilhões)`),
	regexp.MustCompile(`\b20(2[4-9]|3\d)\b`),
	regexp.MustCompile(`\d+\s(empresas|usuários|clientes|pessoas|profissionais|startups)`),
}

// ScoreQuality assigns a 0-100 quality score to extracted content.
// Additive model: length (20), context-term overlap (30), domain
// reputation (20), information density (15), data presence (15).
func ScoreQuality(content, rawURL string, contextTerms []string) int {
	score := 0

	// Length.
	switch n := len(content); {
	case n >= 2000:
		score += 20
	case n >= 1000:
		score += 15
	case n >= 500:
		score += 10
	default:
		score += 5
	}

	// Context-term overlap: +10 per distinct term present, capped at 30.
	lower := strings.ToLower(content)
	overlap := 0
	for _, term := range contextTerms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" && strings.Contains(lower, term) {
			overlap += 10
			if overlap >= 30 {
				break
			}
		}
	}
	score += overlap

	// Domain reputation.
	score += domainReputation(rawURL)

	// Information density.
	switch words := len(strings.Fields(content)); {
	case words >= 500:
		score += 15
	case words >= 200:
		score += 10
	default:
		score += 5
	}

	// Data presence: +3 per pattern hit, capped at 15.
	data := 0
	for _, re := range dataPatterns {
		if re.MatchString(content) {
			data += 3
			if data >= 15 {
				break
			}
		}
	}
	score += data

	if score > 100 {
		score = 100
	}
	return score
}

func domainReputation(rawURL string) int {
	if urlfilter.IsPreferred(rawURL) {
		return 20
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return 5
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case strings.HasSuffix(host, ".gov.br"), strings.HasSuffix(host, ".edu.br"):
		return 15
	case strings.HasSuffix(host, ".org.br"):
		return 10
	default:
		return 5
	}
}
