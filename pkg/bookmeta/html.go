package bookmeta

import (
	"strings"

	"golang.org/x/net/html"
)

// htmlToText flattens an HTML fragment (as found in dc:description) to plain text.
// Input without markup is returned cleaned.
func htmlToText(s string) string {
	if !strings.ContainsRune(s, '<') {
		return clean(s)
	}

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return clean(s)
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			buf.WriteString(n.Data)
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "br", "div", "li", "h1", "h2", "h3", "h4", "h5", "h6":
				buf.WriteString(" ")
			}
		}
	}
	walk(doc)
	return clean(buf.String())
}
