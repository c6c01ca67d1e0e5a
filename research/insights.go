// Package research digs the web for a query in three nested levels:
// multi-engine fan-out, internal-link expansion and intelligent related
// queries.
package research

import (
	"regexp"
	"sort"
	"strings"
)

// insightMarkers are the keywords a sentence must carry (beyond a context
// term) to count as an insight.
var insightMarkers = []string{
	"crescimento", "growth", "mercado", "market", "oportunidade",
	"opportunity", "tendência", "trend", "aumento", "expansão",
	"demanda", "investimento", "faturamento", "receita",
}

// trendKeywords anchor the trend-sentence miner.
var trendKeywords = []string{
	"inteligência artificial", "ia ", "automação", "sustentabilidade",
	"personalização", "mobile", "nuvem", "cloud", "analytics",
	"digitalização", "assinatura", "marketplace", "omnichannel",
}

// opportunityKeywords anchor the opportunity-sentence miner.
var opportunityKeywords = []string{
	"oportunidade", "potencial", "lacuna", "demanda reprimida",
	"mercado emergente", "nicho", "espaço para", "pouco explorado",
}

var (
	sentenceSplitRe = regexp.MustCompile(`[.!?]\s+`)
	numberRe        = regexp.MustCompile(`\d`)
	tokenRe         = regexp.MustCompile(`[\p{L}]{4,}`)
)

// stopwords filtered out of the level-3 vocabulary.
var stopwords = map[string]struct{}{
	"para": {}, "como": {}, "mais": {}, "pela": {}, "pelo": {}, "este": {},
	"esta": {}, "isso": {}, "esse": {}, "essa": {}, "também": {}, "ainda": {},
	"sobre": {}, "entre": {}, "quando": {}, "muito": {}, "pode": {}, "podem": {},
	"foram": {}, "será": {}, "seja": {}, "seus": {}, "suas": {},
	"anos": {}, "apenas": {}, "após": {}, "desde": {}, "cada": {},
	"this": {}, "that": {}, "with": {}, "from": {}, "have": {}, "been": {},
	"more": {}, "their": {}, "which": {}, "will": {}, "would": {},
}

// MineInsights extracts up to max de-duplicated sentence-level insights:
// sentences of at least 80 characters carrying a context term plus a
// number or an insight marker.
func MineInsights(content string, contextTerms []string, max int) []string {
	var out []string
	seen := make(map[string]struct{})

	for _, sentence := range splitSentences(content) {
		if len(sentence) < 80 {
			continue
		}
		lower := strings.ToLower(sentence)
		if !containsAnyTerm(lower, contextTerms) {
			continue
		}
		if !numberRe.MatchString(sentence) && !containsAny(lower, insightMarkers) {
			continue
		}
		key := normalizeSentence(lower)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(sentence))
		if len(out) >= max {
			break
		}
	}
	return out
}

// MineTrends collects sentences around the fixed trend keyword list.
func MineTrends(content string, max int) []string {
	return mineByKeywords(content, trendKeywords, max)
}

// MineOpportunities collects sentences around the opportunity keywords.
func MineOpportunities(content string, max int) []string {
	return mineByKeywords(content, opportunityKeywords, max)
}

func mineByKeywords(content string, keywords []string, max int) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, sentence := range splitSentences(content) {
		if len(sentence) < 40 {
			continue
		}
		lower := strings.ToLower(sentence)
		if !containsAny(lower, keywords) {
			continue
		}
		key := normalizeSentence(lower)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(sentence))
		if len(out) >= max {
			break
		}
	}
	return out
}

// BuildVocabulary ranks the recurring 4+ letter tokens of the level-1
// corpus, stopword-filtered, frequency above minFreq.
func BuildVocabulary(contents []string, minFreq int) []string {
	freq := make(map[string]int)
	for _, content := range contents {
		for _, token := range tokenRe.FindAllString(strings.ToLower(content), -1) {
			if _, stop := stopwords[token]; stop {
				continue
			}
			freq[token]++
		}
	}

	type entry struct {
		token string
		count int
	}
	var entries []entry
	for token, count := range freq {
		if count > minFreq {
			entries = append(entries, entry{token, count})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].token < entries[j].token
	})

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.token)
	}
	return out
}

func splitSentences(content string) []string {
	return sentenceSplitRe.Split(content, -1)
}

func containsAny(lower string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

func containsAnyTerm(lower string, terms []string) bool {
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

var spaceRe = regexp.MustCompile(`\s+`)

func normalizeSentence(lower string) string {
	return spaceRe.ReplaceAllString(strings.TrimRight(strings.TrimSpace(lower), ".!?"), " ")
}
