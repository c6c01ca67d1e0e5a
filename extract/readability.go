package extract

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// noiseSelectors are stripped before any text extraction.
var noiseSelectors = []string{
	"script", "style", "noscript", "iframe", "svg",
	"nav", "header", "footer", "aside", "form",
}

var errNoContent = errors.New("extract: no content block found")

// readabilityExtract runs a boilerplate-removal pass over raw HTML: strip
// noise nodes, score candidate containers by paragraph text mass against
// link density, return the winner's text.
func readabilityExtract(html string) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", err
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	stripNoise(doc)

	type candidate struct {
		sel   *goquery.Selection
		score float64
	}
	var best *candidate

	doc.Find("article, main, section, div").Each(func(_ int, sel *goquery.Selection) {
		score := 0.0
		sel.ChildrenFiltered("p").Each(func(_ int, p *goquery.Selection) {
			text := strings.TrimSpace(p.Text())
			if len(text) < 25 {
				return
			}
			linkChars := 0
			p.Find("a").Each(func(_ int, a *goquery.Selection) {
				linkChars += len(strings.TrimSpace(a.Text()))
			})
			density := 0.0
			if len(text) > 0 {
				density = float64(linkChars) / float64(len(text))
			}
			if density > 0.5 {
				return
			}
			score += float64(len(text)) * (1 - density)
		})
		if best == nil || score > best.score {
			best = &candidate{sel: sel, score: score}
		}
	})

	if best == nil || best.score == 0 {
		return "", title, errNoContent
	}

	var parts []string
	best.sel.Find("h1, h2, h3, p, li, blockquote").Each(func(_ int, n *goquery.Selection) {
		text := strings.TrimSpace(n.Text())
		if len(text) >= 25 {
			parts = append(parts, text)
		}
	})
	text := strings.Join(parts, "\n\n")
	if len(text) < MinContentChars {
		return "", title, ErrTooShort
	}
	return text, title, nil
}

func stripNoise(doc *goquery.Document) {
	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}
}
