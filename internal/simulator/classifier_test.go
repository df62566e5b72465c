package simulator

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

func TestClassifyShoppingColonList(t *testing.T) {
	t.Parallel()

	got := Classify("Can you make a shopping list: milk, eggs, bread")
	want := []string{"🛒 milk", "🛒 eggs", "🛒 bread"}
	if diff := cmp.Diff(want, got.Items); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
	if got.Slug != "shopping-list" {
		t.Errorf("Slug = %q, want shopping-list", got.Slug)
	}
}

func TestShoppingItemExtraction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		command string
		want    []string
	}{
		{
			name:    "quoted items in order",
			command: `Buy "oat milk" and "coffee beans" please`,
			want:    []string{"oat milk", "coffee beans"},
		},
		{
			name:    "quotes win over colon list",
			command: `shop: "tea", sugar, flour`,
			want:    []string{"tea"},
		},
		{
			name:    "colon list is trimmed",
			command: "grocery run:  bread , cheese and wine, and butter.",
			want:    []string{"bread", "cheese and wine", "butter"},
		},
		{
			name:    "empty colon list falls back to defaults",
			command: "groceries: , ,",
			want:    defaultGroceries,
		},
		{
			name:    "no quotes and no colon",
			command: "go shopping",
			want:    defaultGroceries,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tt.want, shoppingItems(tt.command)); diff != "" {
				t.Fatalf("shoppingItems(%q) mismatch (-want +got):\n%s", tt.command, diff)
			}
		})
	}
}

func TestShoppingDefaultsAreNotShared(t *testing.T) {
	t.Parallel()

	items := shoppingItems("buy stuff")
	items[0] = "changed"
	if defaultGroceries[0] != "milk" {
		t.Fatal("default grocery list was mutated through a returned slice")
	}
}

func TestClassifyRouting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		command string
		rule    string
		slug    string
	}{
		{"Show me some ASCII cats", "ascii-art", "ascii-art"},
		{"Buy bread", "shopping", "shopping-list"},
		{"Start a blog", "ascii-art", "ascii-art"},
		{"Write a post on gardening", "blog", "blog-plan"},
		{"Implement a login form", "development", "dev-plan"},
		{"Plan a vacation to Spain", "travel", "travel-plan"},
		{"Tweet about cats", "social", "social-post"},
		{"Organize my closet by season and color", "generic", "plan"},
	}

	for _, tt := range tests {
		if got := RuleName(tt.command); got != tt.rule {
			t.Errorf("RuleName(%q) = %q, want %q", tt.command, got, tt.rule)
		}
		if got := Classify(tt.command).Slug; got != tt.slug {
			t.Errorf("Classify(%q).Slug = %q, want %q", tt.command, got, tt.slug)
		}
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	t.Parallel()

	// Contains both shopping and blog keywords; shopping is listed first.
	p := Classify("Shop for supplies for my BLOG")
	if p.Slug != "shopping-list" {
		t.Fatalf("Slug = %q, want shopping-list", p.Slug)
	}
}

func TestClassifyAsciiArtUsesCustomContent(t *testing.T) {
	t.Parallel()

	p := Classify("draw ascii")
	if !p.HasCustomContent() {
		t.Fatal("expected custom content")
	}
	if len(p.Items) != 0 {
		t.Fatalf("expected no items alongside custom content, got %v", p.Items)
	}
}

func TestClassifyGeneric(t *testing.T) {
	t.Parallel()

	cmd := "Organize my closet by season and color"
	p := Classify(cmd)
	if p.Title != cmd {
		t.Errorf("Title = %q, want %q", p.Title, cmd)
	}
	if diff := cmp.Diff(genericChecklist, p.Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
	if len(p.Items) != 7 {
		t.Errorf("expected 7 checklist items, got %d", len(p.Items))
	}
}

func TestClassifyGenericTruncatesEcho(t *testing.T) {
	t.Parallel()

	cmd := "Please organize my garage shelves and label every single storage bin neatly"
	p := Classify(cmd)

	if n := utf8.RuneCountInString(p.Title); n > echoLimit+len(ellipsis) {
		t.Fatalf("title has %d runes, want at most %d", n, echoLimit+len(ellipsis))
	}
	if !strings.HasSuffix(p.Title, ellipsis) {
		t.Fatalf("Title = %q, want ellipsis suffix", p.Title)
	}
	if !strings.HasPrefix(cmd, strings.TrimSuffix(p.Title, ellipsis)) {
		t.Fatalf("Title = %q is not a prefix of the command", p.Title)
	}
}

func TestTruncateEchoCountsRunes(t *testing.T) {
	t.Parallel()

	exact := strings.Repeat("é", echoLimit)
	if got := truncateEcho(exact); got != exact {
		t.Fatalf("50-rune input should not be truncated, got %q", got)
	}
	long := strings.Repeat("é", echoLimit+1)
	if got := truncateEcho(long); got != exact+ellipsis {
		t.Fatalf("truncateEcho = %q", got)
	}
}

func TestClassifyEmptyCommand(t *testing.T) {
	t.Parallel()

	p := Classify("   ")
	if p.Title == "" || p.Slug != "plan" {
		t.Fatalf("unexpected profile for blank command: %+v", p)
	}
}
