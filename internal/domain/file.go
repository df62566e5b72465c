package domain

import "time"

// FileKind classifies workspace files by extension.
type FileKind string

const (
	FileKindMarkdown  FileKind = "markdown"
	FileKindComponent FileKind = "richtext-component"
	FileKindText      FileKind = "text"
	FileKindGeneric   FileKind = "generic"
)

// WorkspaceFile is the metadata record for a file in the workspace root.
type WorkspaceFile struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Kind      FileKind  `json:"kind"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updatedAt"`
}
