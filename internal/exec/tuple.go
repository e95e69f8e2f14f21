// Package exec implements minidb's pull-based iterator execution engine:
// scan, select, project, materialize, and block-nested-loop join operators
// composed into a pipeline by internal/query.
package exec

import (
	"path/filepath"

	"github.com/google/uuid"
	"github.com/simonwaldherr/minidb/internal/rows"
)

// Tuple is the wire format between operators: a run-time vector of string
// fields.
type Tuple []string

// Row is the constraint satisfied by every fixed-width record type an
// operator can scan, materialize, or join: it must be a heap-file record
// (rows.Row) and know how to flatten itself into a Tuple.
type Row[R any] interface {
	rows.Row[R]
	ToTuple() []string
}

// Operator is the pull-based iterator protocol every node in a plan
// implements: Open initializes state, Next returns one tuple per call and
// reports false exactly when input is exhausted, Close releases resources.
// An operator must be re-openable: Close followed by Open resets it for a
// second traversal.
type Operator interface {
	Open() error
	Next() (Tuple, bool, error)
	Close() error
}

// TempFileName returns a unique scratch-file path under dataDir, so two
// operators materializing or block-joining within the same plan never
// collide on a filename.
func TempFileName(dataDir, prefix string) string {
	return filepath.Join(dataDir, prefix+"-"+uuid.New().String()+".bin")
}
