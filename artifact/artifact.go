// Package artifact implements the artifact store contract and the per-id
// FIFO scheduler wrapping it (§4.C): three artifact kinds (file, data,
// dataset), each with an append-only operation log, monotonic version and
// a building/complete/failed status.
package artifact

import (
	"errors"
	"time"

	"github.com/agentcore/runtime"
)

// Kind discriminates the tagged-union artifact variants.
type Kind string

const (
	KindFile    Kind = "file"
	KindData    Kind = "data"
	KindDataset Kind = "dataset"
)

// Status is the artifact lifecycle. Transitions are monotonic:
// building -> complete, or building -> failed (reset-override sets status
// back to building and bumps version — §3, §9).
type Status string

const (
	StatusBuilding Status = "building"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Encoding is the byte encoding of a file artifact's chunks.
type Encoding string

const (
	EncodingUTF8   Encoding = "utf-8"
	EncodingBase64 Encoding = "base64"
)

// Errors surfaced by the store, matching the external error-code table (§6).
var (
	ErrNotFound     = errors.New("artifact: not found")
	ErrKindMismatch = errors.New("artifact: kind mismatch")
	ErrAlreadyExists = errors.New("artifact: already exists")
	ErrIO           = errors.New("artifact: io error")
)

// OpType enumerates entries in an artifact's append-only operation log.
type OpType string

const (
	OpCreate  OpType = "create"
	OpAppend  OpType = "append"
	OpReplace OpType = "replace"
	OpComplete OpType = "complete"
	OpReset   OpType = "reset"
)

// Op is one entry of an artifact's operation log.
type Op struct {
	Type      OpType
	Index     int
	Timestamp time.Time
}

// FileChunk is one ordered chunk of a file artifact.
type FileChunk struct {
	Index     int
	Data      []byte
	Size      int
	Timestamp time.Time
}

// Column describes one column of a dataset artifact's optional schema.
type Column struct {
	Name     string
	Type     string
	Nullable bool
}

// Schema optionally describes a dataset artifact's row shape.
type Schema struct {
	Columns      []Column
	PrimaryKey   []string
	IndexColumns []string
}

// Artifact is the tagged-union record returned by reads. Exactly the kind
// matching Kind is populated among Chunks/Data/Rows.
type Artifact struct {
	ArtifactID  string
	TaskID      agentcore.TaskID
	ContextID   agentcore.ContextID
	Name        string
	Description string
	Kind        Kind
	Status      Status
	Version     int
	Ops         []Op

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time

	// File kind.
	Chunks      []FileChunk
	MimeType    string
	Encoding    Encoding
	TotalSize   int
	TotalChunks int

	// Data kind.
	Data map[string]any

	// Dataset kind.
	Rows   []map[string]any
	Schema *Schema
}

// CreateParams are the common fields shared by all three create operations.
type CreateParams struct {
	ArtifactID  string
	TaskID      agentcore.TaskID
	ContextID   agentcore.ContextID
	Name        string
	Description string
	Override    bool

	// File-kind-specific.
	MimeType string
	Encoding Encoding

	// Dataset-kind-specific.
	DatasetSchema *Schema
}

// AppendFileOptions configures appendFileChunk.
type AppendFileOptions struct {
	IsLastChunk bool
	Encoding    Encoding
}

// AppendDatasetOptions configures appendDatasetBatch.
type AppendDatasetOptions struct {
	IsLastBatch bool
}

// ArtifactFilter narrows queryArtifacts.
type ArtifactFilter struct {
	ContextID agentcore.ContextID
	TaskID    *agentcore.TaskID
}
