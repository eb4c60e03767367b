package sources

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// plainText strips markup and collapses whitespace. Input without tags is
// only whitespace-normalized.
func plainText(s string) string {
	if strings.ContainsRune(s, '<') {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err == nil {
			doc.Find("script,style").Remove()
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}
