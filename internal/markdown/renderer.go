package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Engine names accepted by New.
const (
	EngineBasic      = "basic"
	EngineCommonMark = "commonmark"
)

// Renderer turns markdown into an HTML fragment.
type Renderer interface {
	Render(src string) (string, error)
}

// New returns the renderer for the named engine.
func New(engine string) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineBasic:
		return Basic{}, nil
	case EngineCommonMark:
		return NewCommonMark(), nil
	default:
		return nil, fmt.Errorf("unknown markdown engine %q", engine)
	}
}

// Basic is the built-in line renderer.
type Basic struct{}

// Render implements Renderer.
func (Basic) Render(src string) (string, error) {
	return Render(src), nil
}

// CommonMark renders full CommonMark plus GitHub tables, strikethrough and
// task lists. Raw HTML in the source is dropped.
type CommonMark struct {
	md goldmark.Markdown
}

// NewCommonMark creates a goldmark-backed renderer.
func NewCommonMark() *CommonMark {
	return &CommonMark{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

// Render implements Renderer.
func (c *CommonMark) Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := c.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
