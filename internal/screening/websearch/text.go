package websearch

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	pkgstrings "screener/pkg/platform/strings"
)

// PlainText strips markup and entities from provider-supplied titles and
// snippets and collapses whitespace. Input without markup passes through
// unchanged apart from whitespace.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return pkgstrings.CollapseSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return pkgstrings.CollapseSpace(s)
	}
	return pkgstrings.CollapseSpace(doc.Text())
}
