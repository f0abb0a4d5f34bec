// Package richtext converts stored rich-text documents into HTML.
//
// Documents use the editor's JSON shape: a root {"type":"doc","content":[...]}
// whose nodes carry a type, optional attrs, optional marks and optional
// children. Rendering is a pure function of the input.
package richtext

import (
	"html"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// EmptyDoc is the canonical empty document.
const EmptyDoc = `{"type":"doc","content":[]}`

// Normalize returns raw when it is a JSON object whose type is "doc",
// and EmptyDoc otherwise.
func Normalize(raw []byte) []byte {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return []byte(EmptyDoc)
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() || root.Get("type").String() != "doc" {
		return []byte(EmptyDoc)
	}
	return raw
}

// ToHTML renders a document to HTML. Input that is not a document renders as
// the empty document, and an empty result becomes a single non-breaking space.
func ToHTML(raw []byte) string {
	root := gjson.ParseBytes(Normalize(raw))
	var b strings.Builder
	renderChildren(&b, root)
	if strings.TrimSpace(b.String()) == "" {
		return "&nbsp;"
	}
	return b.String()
}

func renderChildren(b *strings.Builder, node gjson.Result) {
	node.Get("content").ForEach(func(_, child gjson.Result) bool {
		renderNode(b, child)
		return true
	})
}

func renderNode(b *strings.Builder, node gjson.Result) {
	if !node.IsObject() {
		return
	}
	switch node.Get("type").String() {
	case "text":
		renderText(b, node)
	case "paragraph":
		wrap(b, "p", node)
	case "heading":
		tag := "h" + strconv.Itoa(headingLevel(node))
		wrap(b, tag, node)
	case "bulletList":
		wrap(b, "ul", node)
	case "orderedList":
		start := node.Get("attrs.start").Int()
		if start > 1 {
			b.WriteString(`<ol start="` + strconv.FormatInt(start, 10) + `">`)
		} else {
			b.WriteString("<ol>")
		}
		renderChildren(b, node)
		b.WriteString("</ol>")
	case "listItem":
		wrap(b, "li", node)
	case "blockquote":
		wrap(b, "blockquote", node)
	case "codeBlock":
		b.WriteString("<pre><code>")
		renderChildren(b, node)
		b.WriteString("</code></pre>")
	case "hardBreak":
		b.WriteString("<br>")
	case "horizontalRule":
		b.WriteString("<hr>")
	default:
		renderChildren(b, node)
	}
}

func wrap(b *strings.Builder, tag string, node gjson.Result) {
	b.WriteString("<" + tag + ">")
	renderChildren(b, node)
	b.WriteString("</" + tag + ">")
}

func headingLevel(node gjson.Result) int {
	level := int(node.Get("attrs.level").Int())
	if level < 1 {
		return 1
	}
	if level > 6 {
		return 6
	}
	return level
}

func renderText(b *strings.Builder, node gjson.Result) {
	text := html.EscapeString(node.Get("text").String())
	marks := node.Get("marks").Array()

	var open, closing []string
	for _, mark := range marks {
		o, c, ok := markTags(mark)
		if !ok {
			continue
		}
		open = append(open, o)
		closing = append([]string{c}, closing...)
	}
	for _, o := range open {
		b.WriteString(o)
	}
	b.WriteString(text)
	for _, c := range closing {
		b.WriteString(c)
	}
}

func markTags(mark gjson.Result) (string, string, bool) {
	switch mark.Get("type").String() {
	case "bold":
		return "<strong>", "</strong>", true
	case "italic":
		return "<em>", "</em>", true
	case "strike":
		return "<s>", "</s>", true
	case "code":
		return "<code>", "</code>", true
	case "underline":
		return "<u>", "</u>", true
	case "link":
		href := mark.Get("attrs.href").String()
		if !safeHref(href) {
			return "", "", false
		}
		return `<a href="` + html.EscapeString(href) + `">`, "</a>", true
	default:
		return "", "", false
	}
}

func safeHref(href string) bool {
	lower := strings.ToLower(strings.TrimSpace(href))
	for _, prefix := range []string{"http://", "https://", "mailto:"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
