package garimpo

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	brazilTokens = []string{"brasil", "brazil", "brasileiro", "brasileira", " br "}
	yearTokenRe  = regexp.MustCompile(`\b20\d{2}\b`)
)

// EnhanceQuery pins the query to the Brazilian market and a recent time
// frame when the caller did not. Applied once at the orchestrator layer,
// never inside provider clients.
func EnhanceQuery(query string, now time.Time) string {
	enhanced := strings.TrimSpace(query)
	lower := " " + strings.ToLower(enhanced) + " "

	hasBrazil := false
	for _, token := range brazilTokens {
		if strings.Contains(lower, token) {
			hasBrazil = true
			break
		}
	}
	if !hasBrazil {
		enhanced += " Brasil"
	}
	if !yearTokenRe.MatchString(enhanced) {
		enhanced = fmt.Sprintf("%s %d", enhanced, now.Year())
	}
	return enhanced
}
