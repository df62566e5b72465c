// Package simulator implements the deterministic fallback used when the
// external agent is disabled or fails: a keyword classifier that picks a
// canned content profile, and a writer that turns the profile into a
// workspace file or a UI component source string.
package simulator

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ashureev/agentdesk/internal/domain"
)

const (
	echoLimit    = 50
	ellipsis     = "..."
	shoppingMark = "🛒 "
)

// rule pairs a keyword group with the profile it produces. Rules are
// evaluated in order and the first group with any matching keyword wins.
type rule struct {
	name     string
	keywords []string
	build    func(command string) domain.ContentProfile
}

var rules = []rule{
	{name: "ascii-art", keywords: []string{"ascii", "art"}, build: asciiArtProfile},
	{name: "shopping", keywords: []string{"shop", "groceries", "grocery", "buy", "carrots", "apples"}, build: shoppingProfile},
	{name: "blog", keywords: []string{"blog", "write", "article"}, build: blogProfile},
	{name: "development", keywords: []string{"code", "app", "build", "implement", "develop"}, build: developmentProfile},
	{name: "travel", keywords: []string{"travel", "vacation", "trip", "holiday"}, build: travelProfile},
	{name: "social", keywords: []string{"twitter", "tweet", "post", "social media"}, build: socialProfile},
}

var (
	quotedPattern = regexp.MustCompile(`"([^"]*)"`)

	defaultGroceries = []string{"milk", "eggs", "bread", "carrots", "apples"}

	genericChecklist = []string{
		"Clarify the goal and what done looks like",
		"Break the work into small steps",
		"Gather what you need before starting",
		"Set a realistic timeline",
		"Do the first step today",
		"Review progress and adjust",
		"Celebrate when it's finished",
	}
)

// Classify maps a free-text command to a content profile. It never fails:
// commands that match no keyword group get the generic planning profile.
func Classify(command string) domain.ContentProfile {
	lower := strings.ToLower(command)
	for _, r := range rules {
		if containsAny(lower, r.keywords) {
			return r.build(command)
		}
	}
	return genericProfile(command)
}

// RuleName returns the name of the keyword group that would handle command,
// or "generic" when none matches.
func RuleName(command string) string {
	lower := strings.ToLower(command)
	for _, r := range rules {
		if containsAny(lower, r.keywords) {
			return r.name
		}
	}
	return "generic"
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func asciiArtProfile(string) domain.ContentProfile {
	return domain.ContentProfile{
		Title: "🎨 ASCII Art",
		Slug:  "ascii-art",
		CustomContent: strings.Join([]string{
			`  /\_/\  `,
			` ( o.o ) `,
			`  > ^ <  `,
			` /     \ `,
			`(_______)`,
		}, "\n"),
		Tip: "ASCII art looks best in a monospace font.",
	}
}

func shoppingProfile(command string) domain.ContentProfile {
	raw := shoppingItems(command)
	items := make([]string, 0, len(raw))
	for _, item := range raw {
		items = append(items, shoppingMark+item)
	}
	return domain.ContentProfile{
		Title: "🛒 Shopping List",
		Slug:  "shopping-list",
		Items: items,
		Tip:   "Group items by store aisle to get through the trip faster.",
	}
}

// shoppingItems prefers quoted items, then a colon followed by a comma list,
// then the default grocery list.
func shoppingItems(command string) []string {
	if matches := quotedPattern.FindAllStringSubmatch(command, -1); len(matches) > 0 {
		items := make([]string, 0, len(matches))
		for _, m := range matches {
			items = append(items, m[1])
		}
		return items
	}

	if idx := strings.Index(command, ":"); idx >= 0 {
		var items []string
		for _, piece := range strings.Split(command[idx+1:], ",") {
			piece = strings.TrimSpace(piece)
			piece = strings.TrimPrefix(piece, "and ")
			piece = strings.TrimRight(piece, ".!?")
			piece = strings.TrimSpace(piece)
			if piece != "" {
				items = append(items, piece)
			}
		}
		if len(items) > 0 {
			return items
		}
	}

	return append([]string(nil), defaultGroceries...)
}

func blogProfile(string) domain.ContentProfile {
	return domain.ContentProfile{
		Title: "📝 Blog Post Plan",
		Slug:  "blog-plan",
		Items: []string{
			"Pick one reader and the question they have",
			"Write a headline that promises the answer",
			"Outline three supporting sections",
			"Draft the introduction last",
			"Add an example or a picture per section",
			"Edit for length, then publish",
		},
		Tip: "Write the draft in one sitting and edit on another day.",
	}
}

func developmentProfile(string) domain.ContentProfile {
	return domain.ContentProfile{
		Title: "💻 Development Plan",
		Slug:  "dev-plan",
		Items: []string{
			"Write down the smallest useful version",
			"Sketch the data model",
			"Build the core flow end to end",
			"Add tests around the tricky parts",
			"Handle errors and empty states",
			"Ship it and collect feedback",
		},
		Tip: "Commit early and often so every step is easy to undo.",
	}
}

func travelProfile(string) domain.ContentProfile {
	return domain.ContentProfile{
		Title: "✈️ Travel Plan",
		Slug:  "travel-plan",
		Items: []string{
			"Choose dates and a budget",
			"Book transport and a place to stay",
			"Check passport and visa requirements",
			"List two or three things you must see",
			"Pack light and make a checklist",
			"Share the itinerary with someone at home",
		},
		Tip: "Keep digital copies of your documents in case something gets lost.",
	}
}

func socialProfile(string) domain.ContentProfile {
	return domain.ContentProfile{
		Title: "🐦 Social Media Post",
		Slug:  "social-post",
		Items: []string{
			"Lead with the most interesting sentence",
			"Keep it under 280 characters",
			"Add one relevant image",
			"Use at most two hashtags",
			"End with a question to invite replies",
		},
		Tip: "Posts in the morning of your audience's timezone tend to get more replies.",
	}
}

func genericProfile(command string) domain.ContentProfile {
	return domain.ContentProfile{
		Title: genericTitle(command),
		Slug:  "plan",
		Items: append([]string(nil), genericChecklist...),
		Tip:   "Small steps done daily beat big plans done rarely.",
	}
}

// genericTitle echoes the command back as the heading of the generic plan.
func genericTitle(command string) string {
	echo := truncateEcho(strings.TrimSpace(command))
	if echo == "" {
		return "My Plan"
	}
	return echo
}

// truncateEcho shortens s to echoLimit runes, appending an ellipsis when cut.
func truncateEcho(s string) string {
	if utf8.RuneCountInString(s) <= echoLimit {
		return s
	}
	runes := []rune(s)
	return string(runes[:echoLimit]) + ellipsis
}
