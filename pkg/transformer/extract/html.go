package extract

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// noise holds elements that never carry locators worth extracting.
const noise = "script, style, noscript, template"

const truncatedMarker = "\n<!-- truncated -->"

// NormalizeHTML parses markup, drops scripts, styles and comments and
// pretty-prints the rest with two-space indentation and sorted attributes.
// When maxChars is positive the result is cut to at most maxChars bytes.
func NormalizeHTML(markup string, maxChars int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("parse page source: %w", err)
	}
	doc.Find(noise).Remove()

	var b strings.Builder
	for _, n := range doc.Nodes {
		render(&b, n, 0)
	}
	out := strings.TrimRight(b.String(), "\n")

	if maxChars > 0 && len(out) > maxChars {
		cut := maxChars
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = out[:cut] + truncatedMarker
	}
	return out, nil
}

// voidElements never have a closing tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

func render(b *strings.Builder, n *html.Node, depth int) {
	indent := strings.Repeat("  ", depth)

	switch n.Type {
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			render(b, c, depth)
		}
	case html.DoctypeNode:
		b.WriteString("<!DOCTYPE " + n.Data + ">\n")
	case html.TextNode:
		text := strings.Join(strings.Fields(n.Data), " ")
		if text == "" {
			return
		}
		b.WriteString(indent + html.EscapeString(text) + "\n")
	case html.ElementNode:
		b.WriteString(indent + openTag(n) + "\n")
		if voidElements[n.Data] {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			render(b, c, depth+1)
		}
		b.WriteString(indent + "</" + n.Data + ">\n")
	}
	// comments and raw nodes are dropped
}

func openTag(n *html.Node) string {
	attrs := make([]html.Attribute, len(n.Attr))
	copy(attrs, n.Attr)
	sort.Slice(attrs, func(i, j int) bool { return attrName(attrs[i]) < attrName(attrs[j]) })

	var b strings.Builder
	b.WriteString("<" + n.Data)
	for _, a := range attrs {
		b.WriteString(" " + attrName(a))
		b.WriteString(`="` + html.EscapeString(a.Val) + `"`)
	}
	b.WriteString(">")
	return b.String()
}

func attrName(a html.Attribute) string {
	if a.Namespace != "" {
		return a.Namespace + ":" + a.Key
	}
	return a.Key
}
