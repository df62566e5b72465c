package markdown

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// SerializeHTML parses an HTML fragment as the body of a document and
// serializes it to markdown.
func SerializeHTML(fragment string) (string, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return "", err
	}
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return Serialize(root), nil
}

// Serialize converts the children of root to markdown. Top-level blocks are
// separated by a blank line; runs of inline content between blocks form
// their own paragraph.
func Serialize(root *html.Node) string {
	var blocks []string
	var run strings.Builder

	flush := func() {
		if s := strings.TrimSpace(run.String()); s != "" {
			blocks = append(blocks, s)
		}
		run.Reset()
	}

	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if isBlock(c) {
			flush()
			if s := serializeNode(c, 0); strings.TrimSpace(s) != "" {
				blocks = append(blocks, strings.Trim(s, "\n"))
			}
			continue
		}
		run.WriteString(serializeNode(c, 0))
	}
	flush()

	return strings.TrimSpace(strings.Join(blocks, "\n\n"))
}

func serializeNode(n *html.Node, listDepth int) string {
	switch n.Type {
	case html.TextNode:
		return whitespaceRun.ReplaceAllString(n.Data, " ")
	case html.ElementNode:
	default:
		return ""
	}

	switch n.DataAtom {
	case atom.Strong, atom.B:
		return wrap(strings.TrimSpace(children(n, listDepth)), "**")
	case atom.Em, atom.I:
		return wrap(strings.TrimSpace(children(n, listDepth)), "*")
	case atom.Code:
		if n.Parent != nil && n.Parent.DataAtom == atom.Pre {
			return textContent(n)
		}
		return wrap(textContent(n), "`")
	case atom.Pre:
		return fencedBlock(n)
	case atom.A:
		label := strings.TrimSpace(children(n, listDepth))
		href := attr(n, "href")
		if href == "" {
			return label
		}
		if label == "" {
			label = href
		}
		return "[" + label + "](" + href + ")"
	case atom.Br:
		return "\n"
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		text := strings.TrimSpace(children(n, listDepth))
		if text == "" {
			return ""
		}
		level := int(n.Data[1] - '0')
		return strings.Repeat("#", level) + " " + text
	case atom.Ul:
		return list(n, listDepth+1)
	case atom.Script, atom.Style:
		return ""
	default:
		// p, div, span, ol, table and anything unrecognised: children only.
		return strings.TrimSpace(children(n, listDepth))
	}
}

// children serializes the child nodes of n. Block children start on their
// own line so nested lists and paragraphs inside list items stay separate.
func children(n *html.Node, listDepth int) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		s := serializeNode(c, listDepth)
		if !isBlock(c) {
			b.WriteString(s)
			continue
		}
		if strings.TrimSpace(s) == "" {
			continue
		}
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteString("\n")
		}
		b.WriteString(strings.Trim(s, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

// list renders the <li> children of a <ul>. Items are emitted relative to
// the list; the enclosing item re-indents them, so an item at listDepth d
// ends up indented by d-1 levels of two spaces.
func list(n *html.Node, listDepth int) string {
	var items []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom != atom.Li {
			continue
		}
		if s := listItem(c, listDepth); s != "" {
			items = append(items, s)
		}
	}
	return strings.Join(items, "\n")
}

func listItem(n *html.Node, listDepth int) string {
	content := strings.TrimSpace(children(n, listDepth))
	if content == "" {
		return ""
	}
	lines := strings.Split(content, "\n")
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = "  " + lines[i]
	}
	return "- " + strings.Join(lines, "\n")
}

func fencedBlock(n *html.Node) string {
	lang := ""
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Code {
			for _, class := range strings.Fields(attr(c, "class")) {
				if strings.HasPrefix(class, "language-") {
					lang = strings.TrimPrefix(class, "language-")
					break
				}
			}
		}
	}
	body := trimBlankLines(textContent(n))
	return "```" + lang + "\n" + body + "\n```"
}

func trimBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Br {
			b.WriteString("\n")
			continue
		}
		b.WriteString(textContent(c))
	}
	return b.String()
}

func wrap(s, marker string) string {
	if s == "" {
		return ""
	}
	return marker + s + marker
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func isBlock(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.P, atom.Div, atom.Pre, atom.Ul, atom.Ol, atom.Li, atom.Table,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Section, atom.Article, atom.Blockquote, atom.Header, atom.Footer:
		return true
	}
	return false
}
