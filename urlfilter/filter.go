// Package urlfilter decides whether a search result URL is worth extracting.
package urlfilter

import (
	"net/url"
	"strings"
)

// blockedDomains are hosts that never yield extractable content: login walls,
// auth providers and major marketplaces.
var blockedDomains = map[string]struct{}{
	"accounts.google.com":   {},
	"login.microsoftonline.com": {},
	"appleid.apple.com":     {},
	"auth0.com":             {},
	"okta.com":              {},
	"mercadolivre.com.br":   {},
	"produto.mercadolivre.com.br": {},
	"amazon.com.br":         {},
	"amazon.com":            {},
	"shopee.com.br":         {},
	"aliexpress.com":        {},
	"magazineluiza.com.br":  {},
	"americanas.com.br":     {},
	"casasbahia.com.br":     {},
	"olx.com.br":            {},
}

// blockedPathPatterns reject URLs by path or filename.
var blockedPathPatterns = []string{
	"/login", "/signin", "/sign-in", "/signup", "/sign-up",
	"/cart", "/checkout", "/carrinho", "/auth/", "/oauth",
	"/account", "/password", "/register",
	".pdf", ".jpg", ".jpeg", ".png", ".gif", ".mp4", ".zip",
	".doc", ".docx", ".xls", ".xlsx", ".rar", ".exe",
}

// irrelevanceMarkers flag navigational or boilerplate results. Two or more
// hits in title+snippet reject the result.
var irrelevanceMarkers = []string{
	"login", "entrar", "cadastre-se", "carrinho", "cart",
	"termos de uso", "terms of use", "política de privacidade",
	"privacy policy", "sobre nós", "about us", "trabalhe conosco",
	"careers", "fale conosco", "cookie",
}

// preferredDomains are curated high-trust hosts; used by the quality scorer,
// never for rejection here.
var preferredDomains = map[string]struct{}{
	"g1.globo.com":          {},
	"globo.com":             {},
	"uol.com.br":            {},
	"folha.uol.com.br":      {},
	"estadao.com.br":        {},
	"exame.com":             {},
	"valor.globo.com":       {},
	"infomoney.com.br":      {},
	"cnnbrasil.com.br":      {},
	"bbc.com":               {},
	"forbes.com.br":         {},
	"istoedinheiro.com.br":  {},
	"epocanegocios.globo.com": {},
	"canaltech.com.br":      {},
	"tecmundo.com.br":       {},
	"ibge.gov.br":           {},
	"gov.br":                {},
	"sebrae.com.br":         {},
	"fgv.br":                {},
	"statista.com":          {},
	"mckinsey.com":          {},
}

// Filter applies the blocklists and light content heuristics.
// The zero value is ready to use.
type Filter struct{}

// New returns a Filter.
func New() *Filter { return &Filter{} }

// IsRelevant reports whether a search result should go through extraction.
func (f *Filter) IsRelevant(rawURL, title, snippet string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	if host == "" {
		return false
	}
	if _, blocked := blockedDomains[host]; blocked {
		return false
	}

	lowerPath := strings.ToLower(u.Path)
	for _, pattern := range blockedPathPatterns {
		if strings.Contains(lowerPath, pattern) {
			return false
		}
	}

	text := strings.ToLower(title + " " + snippet)
	hits := 0
	for _, marker := range irrelevanceMarkers {
		if strings.Contains(text, marker) {
			hits++
			if hits >= 2 {
				return false
			}
		}
	}
	return true
}

// IsPreferred reports whether the URL's host is on the curated high-trust list.
func IsPreferred(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	if _, ok := preferredDomains[host]; ok {
		return true
	}
	// Subdomains of preferred hosts count too.
	for domain := range preferredDomains {
		if strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// PreferredDomains returns the curated list for use in provider-side
// domain filters.
func PreferredDomains() []string {
	out := make([]string, 0, len(preferredDomains))
	for d := range preferredDomains {
		out = append(out, d)
	}
	return out
}
