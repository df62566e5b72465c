package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/ashureev/agentdesk/internal/domain"
)

// Experience modes.
const (
	ModeFiles     = "files"
	ModeComponent = "component"
)

// FileWriter persists a file relative to the workspace root.
type FileWriter interface {
	Write(ctx context.Context, rel, content string) (time.Time, error)
}

// Output is what the writer produced for one command.
type Output struct {
	Mode    string    `json:"mode"`
	Title   string    `json:"title"`
	Path    string    `json:"path,omitempty"`
	Content string    `json:"content"`
	SavedAt time.Time `json:"savedAt,omitzero"`
}

// Writer turns a content profile into a workspace file or a component source.
type Writer struct {
	mode  string
	files FileWriter
}

// NewWriter creates a writer. files may be nil in component mode.
func NewWriter(mode string, files FileWriter) (*Writer, error) {
	switch mode {
	case ModeFiles:
		if files == nil {
			return nil, fmt.Errorf("experience mode %q requires a file writer", mode)
		}
	case ModeComponent:
	default:
		return nil, fmt.Errorf("unknown experience mode %q", mode)
	}
	return &Writer{mode: mode, files: files}, nil
}

// Mode returns the configured experience mode.
func (w *Writer) Mode() string {
	return w.mode
}

// Write renders profile for command. In files mode the markdown is saved as
// <slug>.md, replacing any earlier file of the same name.
func (w *Writer) Write(ctx context.Context, command string, profile domain.ContentProfile) (Output, error) {
	if w.mode == ModeComponent {
		return Output{
			Mode:    ModeComponent,
			Title:   profile.Title,
			Content: ComponentSource(command, profile),
		}, nil
	}

	content := MarkdownDocument(command, profile)
	path := fileName(profile)
	savedAt, err := w.files.Write(ctx, path, content)
	if err != nil {
		return Output{}, fmt.Errorf("save %s: %w", path, err)
	}
	slog.Info("Simulated experience written", "path", path, "bytes", len(content))

	return Output{
		Mode:    ModeFiles,
		Title:   profile.Title,
		Path:    path,
		Content: content,
		SavedAt: savedAt,
	}, nil
}

func fileName(profile domain.ContentProfile) string {
	slug := profile.Slug
	if slug == "" {
		slug = "plan"
	}
	return slug + ".md"
}

// MarkdownDocument renders a profile as a markdown file body. Title, items
// and tip are flattened to one line each so user text cannot add headings or
// bullets.
func MarkdownDocument(command string, profile domain.ContentProfile) string {
	var b strings.Builder
	b.WriteString("# " + singleLine(profile.Title) + "\n\n")

	if profile.HasCustomContent() {
		b.WriteString("```text\n")
		b.WriteString(strings.TrimRight(profile.CustomContent, "\n"))
		b.WriteString("\n```\n\n")
	} else if len(profile.Items) > 0 {
		for _, item := range profile.Items {
			b.WriteString("- " + singleLine(item) + "\n")
		}
		b.WriteString("\n")
	}

	if profile.Tip != "" {
		b.WriteString("**Tip:** " + singleLine(profile.Tip) + "\n\n")
	}
	if echo := singleLine(command); echo != "" {
		b.WriteString("Requested: " + echo + "\n")
	}
	return b.String()
}

// ComponentSource renders a profile as a self-contained TSX component. User
// derived text is only ever emitted as a JSON string literal inside JSX
// braces.
func ComponentSource(command string, profile domain.ContentProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "export default function %s() {\n", componentName(profile.Slug))
	b.WriteString("  return (\n")
	b.WriteString("    <div className=\"simulated-experience\">\n")
	fmt.Fprintf(&b, "      <h1>{%s}</h1>\n", jsString(profile.Title))

	if profile.HasCustomContent() {
		fmt.Fprintf(&b, "      <pre>{%s}</pre>\n", jsString(profile.CustomContent))
	} else if len(profile.Items) > 0 {
		b.WriteString("      <ul>\n")
		for _, item := range profile.Items {
			fmt.Fprintf(&b, "        <li>{%s}</li>\n", jsString(item))
		}
		b.WriteString("      </ul>\n")
	}

	if profile.Tip != "" {
		fmt.Fprintf(&b, "      <p className=\"tip\"><strong>Tip:</strong> {%s}</p>\n", jsString(profile.Tip))
	}
	if echo := singleLine(command); echo != "" {
		fmt.Fprintf(&b, "      <p className=\"request\">{%s}</p>\n", jsString("Requested: "+echo))
	}

	b.WriteString("    </div>\n")
	b.WriteString("  );\n")
	b.WriteString("}\n")
	return b.String()
}

// jsString encodes s as a double-quoted literal that is valid in both JSON
// and JavaScript. encoding/json escapes <, > and & as well, so the value
// cannot close a JSX tag.
func jsString(s string) string {
	out, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(out)
}

// componentName converts a slug like "shopping-list" to "ShoppingList".
func componentName(slug string) string {
	var b strings.Builder
	upper := true
	for _, r := range slug {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if b.Len() == 0 && unicode.IsDigit(r) {
			b.WriteString("X")
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return "Experience"
	}
	return b.String()
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
