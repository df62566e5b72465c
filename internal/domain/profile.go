// Package domain contains core domain types for the agentdesk backend.
package domain

// ContentProfile is the classifier's description of what to show for a command.
// When CustomContent is set it replaces Items in every rendering.
type ContentProfile struct {
	Title         string   `json:"title"`
	Items         []string `json:"items,omitempty"`
	CustomContent string   `json:"customContent,omitempty"`
	Tip           string   `json:"tip,omitempty"`
	Slug          string   `json:"slug"`
}

// HasCustomContent reports whether the literal block drives the body.
func (p ContentProfile) HasCustomContent() bool {
	return p.CustomContent != ""
}
