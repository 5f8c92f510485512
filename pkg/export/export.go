package export

import "context"

// Dataset defines tabular export content. Headers carry the column order;
// rows are keyed by header name.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// RenderContext carries the document-level labels printed by builders that
// support them.
type RenderContext struct {
	ProgramName string
	Session     string
	GroupNumber int
	// SectionNumber is 1-based; zero means the roster was not subdivided
	// into sections and the section label is suppressed.
	SectionNumber int
}

// FileBuilder renders one group of roster rows into a single output file.
// Implementations must be safe for concurrent use: every call writes to a
// distinct path and mutates no shared state.
type FileBuilder interface {
	Ext() string
	Build(ctx context.Context, data Dataset, path string, rc RenderContext) error
}
