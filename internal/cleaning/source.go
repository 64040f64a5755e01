package cleaning

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// sourceLabels maps a substring of the client name to its canonical label.
// Checked in order.
var sourceLabels = []struct {
	contains string
	label    string
}{
	{"iPhone", "Twitter for iPhone"},
	{"Vine", "Vine"},
	{"Web", "Twitter for Web"},
	{"TweetDeck", "TweetDeck"},
}

// NormalizeSource turns the archive's source column, an HTML anchor such as
// <a href="http://twitter.com/download/iphone">Twitter for iPhone</a>, into
// a plain client label.
func NormalizeSource(raw string) string {
	text := anchorText(raw)
	for _, l := range sourceLabels {
		if strings.Contains(text, l.contains) {
			return l.label
		}
	}
	return text
}

// anchorText returns the concatenated text content of an HTML fragment.
func anchorText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				return strings.TrimSpace(fragment)
			}
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}
