package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var contentClassRe = regexp.MustCompile(`(?i)(content|main|article)`)

// structuredExtract is the last-resort HTML strategy: prefer <main>, then
// <article>, then a div whose class matches content|main|article, else the
// full body text.
func structuredExtract(html string) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", err
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	stripNoise(doc)

	for _, pick := range []func() *goquery.Selection{
		func() *goquery.Selection { return doc.Find("main").First() },
		func() *goquery.Selection { return doc.Find("article").First() },
		func() *goquery.Selection { return firstContentDiv(doc) },
		func() *goquery.Selection { return doc.Find("body").First() },
	} {
		sel := pick()
		if sel == nil || sel.Length() == 0 {
			continue
		}
		text := collapseText(sel.Text())
		if len(text) >= MinContentChars {
			return text, title, nil
		}
	}
	return "", title, ErrTooShort
}

func firstContentDiv(doc *goquery.Document) *goquery.Selection {
	var found *goquery.Selection
	doc.Find("div[class]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		class, _ := sel.Attr("class")
		if contentClassRe.MatchString(class) {
			found = sel
			return false
		}
		return true
	})
	return found
}

func collapseText(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
