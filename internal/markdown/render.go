// Package markdown converts between the markdown stored in workspace files
// and the HTML shown in the desktop's rich-text editor.
//
// Render supports headings, flat bullet lists, fenced code and paragraphs
// with inline formatting. Anything else (ordered lists, tables, block
// quotes, nested emphasis, backslash escapes) falls through as paragraph
// text. Serialize walks an HTML tree back to markdown; the pair is not an
// exact inverse.
package markdown

import (
	"regexp"
	"strings"
)

const maxHeadingLevel = 6

var (
	headingPattern = regexp.MustCompile(`^(#+)(?:\s+(.*))?$`)
	bulletPattern  = regexp.MustCompile(`^\s*[-*]\s+(.*)$`)
)

// Render converts markdown to an HTML fragment. It never fails; the empty
// string renders to the empty fragment.
func Render(src string) string {
	r := &blockRenderer{}
	for _, line := range strings.Split(src, "\n") {
		r.line(strings.TrimSuffix(line, "\r"))
	}
	r.closeCode()
	r.closeList()
	return r.String()
}

type blockRenderer struct {
	out    []string
	inList bool
	inCode bool
	lang   string
	code   []string
}

func (r *blockRenderer) emit(s string) {
	if s == "" && (len(r.out) == 0 || r.out[len(r.out)-1] == "") {
		return
	}
	r.out = append(r.out, s)
}

func (r *blockRenderer) line(line string) {
	trimmed := strings.TrimSpace(line)

	if strings.HasPrefix(trimmed, "```") {
		if r.inCode {
			r.closeCode()
			return
		}
		r.closeList()
		r.inCode = true
		r.lang = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
		r.code = r.code[:0]
		return
	}

	if r.inCode {
		r.code = append(r.code, Escape(line))
		return
	}

	if trimmed == "" {
		r.closeList()
		return
	}

	if m := bulletPattern.FindStringSubmatch(line); m != nil {
		if !r.inList {
			r.emit("<ul>")
			r.inList = true
		}
		r.emit("<li>" + Inline(strings.TrimSpace(m[1])) + "</li>")
		return
	}
	r.closeList()

	if m := headingPattern.FindStringSubmatch(trimmed); m != nil {
		level := min(len(m[1]), maxHeadingLevel)
		tag := "h" + string(rune('0'+level))
		r.emit("<" + tag + ">" + Inline(strings.TrimSpace(m[2])) + "</" + tag + ">")
		return
	}

	r.emit("<p>" + Inline(trimmed) + "</p>")
}

func (r *blockRenderer) closeList() {
	if r.inList {
		r.emit("</ul>")
		r.inList = false
	}
}

func (r *blockRenderer) closeCode() {
	if !r.inCode {
		return
	}
	open := "<pre><code>"
	if r.lang != "" {
		open = `<pre><code class="language-` + Escape(strings.Fields(r.lang)[0]) + `">`
	}
	r.emit(open + strings.Join(r.code, "\n") + "</code></pre>")
	r.inCode = false
	r.lang = ""
	r.code = r.code[:0]
}

func (r *blockRenderer) String() string {
	return strings.Join(r.out, "\n")
}
