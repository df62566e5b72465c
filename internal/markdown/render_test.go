package markdown

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "empty input",
			in:   "",
			want: "",
		},
		{
			name: "blank lines only",
			in:   "\n\n\r\n",
			want: "",
		},
		{
			name: "heading then list",
			in:   "# Title\n\n- one\n- two\n",
			want: "<h1>Title</h1>\n<ul>\n<li>one</li>\n<li>two</li>\n</ul>",
		},
		{
			name: "heading level clamps at six",
			in:   "####### Deep",
			want: "<h6>Deep</h6>",
		},
		{
			name: "hash without space is a paragraph",
			in:   "#hashtag",
			want: "<p>#hashtag</p>",
		},
		{
			name: "star bullets",
			in:   "* a\n* b",
			want: "<ul>\n<li>a</li>\n<li>b</li>\n</ul>",
		},
		{
			name: "list closes on plain line",
			in:   "- a\ntext",
			want: "<ul>\n<li>a</li>\n</ul>\n<p>text</p>",
		},
		{
			name: "crlf line endings",
			in:   "line one\r\nline two\r\n",
			want: "<p>line one</p>\n<p>line two</p>",
		},
		{
			name: "fenced code is escaped and not formatted",
			in:   "```go\nfmt.Println(\"<hi>\")\n**not bold**\n```",
			want: "<pre><code class=\"language-go\">fmt.Println(&quot;&lt;hi&gt;&quot;)\n**not bold**</code></pre>",
		},
		{
			name: "unclosed fence is closed at end of input",
			in:   "```\nx",
			want: "<pre><code>x</code></pre>",
		},
		{
			name: "fence closes open list",
			in:   "- a\n```\nc\n```",
			want: "<ul>\n<li>a</li>\n</ul>\n<pre><code>c</code></pre>",
		},
		{
			name: "unsupported syntax falls through as paragraphs",
			in:   "1. first\n> quoted\n| a | b |",
			want: "<p>1. first</p>\n<p>&gt; quoted</p>\n<p>| a | b |</p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Render(tt.in); got != tt.want {
				t.Fatalf("Render(%q)\n got: %q\nwant: %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRenderScenarioStructure(t *testing.T) {
	t.Parallel()

	got := Render("# Title\n\n- one\n- two\n")
	if strings.Count(got, "<h1>") != 1 || strings.Count(got, "<ul>") != 1 || strings.Count(got, "<li>") != 2 {
		t.Fatalf("unexpected structure: %q", got)
	}
	if strings.Index(got, "<h1>") > strings.Index(got, "<ul>") {
		t.Fatalf("heading should precede list: %q", got)
	}
	if strings.Index(got, "one") > strings.Index(got, "two") {
		t.Fatalf("items out of order: %q", got)
	}
}

func TestInline(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"**bold** and *it*", "<strong>bold</strong> and <em>it</em>"},
		{"__b__ _i_", "<strong>b</strong> <em>i</em>"},
		{`a < b & c > "d" 'e'`, "a &lt; b &amp; c &gt; &quot;d&quot; &#39;e&#39;"},
		{"<script>alert(1)</script>", "&lt;script&gt;alert(1)&lt;/script&gt;"},
		{"`*x*` stays", "<code>*x*</code> stays"},
		{"[site](https://example.com/a_b_c)", `<a href="https://example.com/a_b_c" target="_blank" rel="noreferrer noopener">site</a>`},
		{"[**b**](/rel)", `<a href="/rel" target="_blank" rel="noreferrer noopener"><strong>b</strong></a>`},
		{"[bad](javascript:alert)", "bad"},
		{"plain text", "plain text"},
		{"***x***", "***x***"},
		{"___x___", "___x___"},
		{"*a **b** c*", "*a <strong>b</strong> c*"},
		{"*it* then **bold**", "<em>it</em> then <strong>bold</strong>"},
	}

	for _, tt := range tests {
		if got := Inline(tt.in); got != tt.want {
			t.Errorf("Inline(%q)\n got: %q\nwant: %q", tt.in, got, tt.want)
		}
	}
}

func TestNewRenderer(t *testing.T) {
	t.Parallel()

	basic, err := New("")
	if err != nil {
		t.Fatalf("New(\"\") failed: %v", err)
	}
	if got, _ := basic.Render("# Hi"); got != "<h1>Hi</h1>" {
		t.Fatalf("basic render = %q", got)
	}

	cm, err := New(EngineCommonMark)
	if err != nil {
		t.Fatalf("New(commonmark) failed: %v", err)
	}
	got, err := cm.Render("# Hi\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	if err != nil {
		t.Fatalf("commonmark render failed: %v", err)
	}
	if !strings.Contains(got, "<h1>Hi</h1>") || !strings.Contains(got, "<table>") {
		t.Fatalf("commonmark render = %q", got)
	}

	if _, err := New("wysiwyg"); err == nil {
		t.Fatal("expected error for unknown engine")
	}
}
