package markdown

import (
	"regexp"
	"strconv"
	"strings"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

var (
	codePattern       = regexp.MustCompile("`([^`]+)`")
	linkPattern       = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	boldStarPattern   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	boldUnderPattern  = regexp.MustCompile(`__(.+?)__`)
	italicStarPattern = regexp.MustCompile(`\*([^<>]+?)\*`)
	italicUndPattern  = regexp.MustCompile(`_([^<>]+?)_`)
	markerRunPattern  = regexp.MustCompile(`\*{3,}|_{3,}`)
	placeholderRE     = regexp.MustCompile("\x00([0-9]+)\x00")
)

var allowedSchemes = []string{"http://", "https://", "mailto:"}

// Escape replaces the HTML special characters & < > " ' with entities.
func Escape(s string) string {
	return htmlEscaper.Replace(s)
}

// Inline escapes text and applies the inline substitutions: code spans,
// links, bold, then italic. Code spans and finished anchors are parked behind
// placeholders so later patterns cannot rewrite their contents. Bold must run
// before italic or "**x**" would be read as two empty emphasis runs. Italic
// never spans a tag produced by bold, so markup always nests correctly.
func Inline(text string) string {
	var parked []string
	park := func(html string) string {
		parked = append(parked, html)
		return "\x00" + strconv.Itoa(len(parked)-1) + "\x00"
	}

	out := Escape(strings.ReplaceAll(text, "\x00", ""))

	out = codePattern.ReplaceAllStringFunc(out, func(m string) string {
		inner := codePattern.FindStringSubmatch(m)[1]
		return park("<code>" + inner + "</code>")
	})

	// Nested emphasis such as ***x*** stays literal.
	out = markerRunPattern.ReplaceAllStringFunc(out, park)

	out = linkPattern.ReplaceAllStringFunc(out, func(m string) string {
		parts := linkPattern.FindStringSubmatch(m)
		label := emphasis(parts[1])
		href := parts[2]
		if !safeHref(href) {
			return park(label)
		}
		return park(`<a href="` + href + `" target="_blank" rel="noreferrer noopener">` + label + `</a>`)
	})

	out = emphasis(out)

	for strings.Contains(out, "\x00") {
		next := placeholderRE.ReplaceAllStringFunc(out, func(m string) string {
			idx, err := strconv.Atoi(strings.Trim(m, "\x00"))
			if err != nil || idx >= len(parked) {
				return ""
			}
			return parked[idx]
		})
		if next == out {
			break
		}
		out = next
	}
	return out
}

func emphasis(s string) string {
	s = boldStarPattern.ReplaceAllString(s, "<strong>$1</strong>")
	s = boldUnderPattern.ReplaceAllString(s, "<strong>$1</strong>")
	s = italicStarPattern.ReplaceAllString(s, "<em>$1</em>")
	s = italicUndPattern.ReplaceAllString(s, "<em>$1</em>")
	return s
}

// safeHref accepts http, https and mailto links plus relative and fragment
// references. The href has already been HTML-escaped.
func safeHref(href string) bool {
	lower := strings.ToLower(href)
	for _, scheme := range allowedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return !strings.Contains(strings.SplitN(lower, "/", 2)[0], ":")
}
