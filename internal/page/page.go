// Package page implements the fixed-size disk page used by every heap file
// and B+Tree file in minidb: a 4-byte little-endian record-count header
// followed by a packed array of fixed-width records.
package page

import (
	"encoding/binary"

	"github.com/simonwaldherr/minidb/internal/rows"
)

// Size is the fixed page size in bytes, shared by every file minidb writes.
const Size = 4096

// headerSize is the width of the leading record-count field.
const headerSize = 4

// Record is the constraint satisfied by every fixed-width row type a Page
// can hold: R must know how to marshal/unmarshal itself, per rows.Row.
type Record[R any] interface {
	rows.Row[R]
}

// Page is a page-sized buffer overlaid with a record-count header and a
// packed array of R-typed records. It is a thin view over a caller-owned
// byte slice; a Page never allocates or owns storage beyond that slice, so
// the buffer pool can hand the same backing array to many Page[R] views
// over its lifetime.
type Page[R Record[R]] struct {
	id   int
	data []byte
}

// Wrap overlays a Page view on top of a Size-byte buffer that is already
// resident in a buffer-pool frame.
func Wrap[R Record[R]](id int, data []byte) *Page[R] {
	if len(data) != Size {
		panic("page: buffer must be exactly Size bytes")
	}
	return &Page[R]{id: id, data: data}
}

// Init zero-fills the page and resets its record count to zero. Used when a
// frame is repurposed for a freshly created page.
func Init[R Record[R]](id int, data []byte) *Page[R] {
	for i := range data {
		data[i] = 0
	}
	return Wrap[R](id, data)
}

// recordSize returns the wire size of R by constructing its zero value.
func recordSize[R Record[R]]() int {
	var zero R
	return zero.Size()
}

// PageID returns the page's identity within its file.
func (p *Page[R]) PageID() int { return p.id }

// SetPageID overwrites the page's identity. The buffer pool does not call
// it: it builds a fresh view with Wrap or Init for each page it hands out.
func (p *Page[R]) SetPageID(id int) { p.id = id }

// NumRecords returns the number of records currently packed into the page.
func (p *Page[R]) NumRecords() int {
	return int(binary.LittleEndian.Uint32(p.data[:headerSize]))
}

// SetNumRecords overwrites the record-count header directly. InsertRow uses
// it; the B+Tree node view does not, and writes its own "isLeaf" / "size"
// fields over these bytes through Data.
func (p *Page[R]) SetNumRecords(n int) {
	binary.LittleEndian.PutUint32(p.data[:headerSize], uint32(n))
}

// Data exposes the raw page buffer, including its header, for overlay views
// (e.g. the B+Tree node view) that need a different interpretation of the
// bytes following the header.
func (p *Page[R]) Data() []byte { return p.data }

// recordOffset returns the byte offset of the rowID'th record slot.
func recordOffset[R Record[R]](rowID int) int {
	return headerSize + rowID*recordSize[R]()
}

// GetRow returns the record stored at rowID, or false if rowID is out of
// range for the page's current record count.
func (p *Page[R]) GetRow(rowID int) (R, bool) {
	var zero R
	n := p.NumRecords()
	if rowID < 0 || rowID >= n {
		return zero, false
	}
	off := recordOffset[R](rowID)
	out := zero.FromBytes(p.data[off : off+recordSize[R]()])
	return out, true
}

// InsertRow appends row to the page, returning its rowID, or -1 if the page
// has no room left for another record of this width.
func (p *Page[R]) InsertRow(row R) int {
	n := p.NumRecords()
	sz := recordSize[R]()
	if headerSize+(n+1)*sz > Size {
		return -1
	}
	off := recordOffset[R](n)
	row.MarshalInto(p.data[off : off+sz])
	p.SetNumRecords(n + 1)
	return n
}

// IsFull reports whether inserting one more record would overflow the page.
func (p *Page[R]) IsFull() bool {
	sz := recordSize[R]()
	return headerSize+(p.NumRecords()+1)*sz > Size
}

// Capacity returns the maximum number of R records a page of this type can
// hold.
func Capacity[R Record[R]]() int {
	return (Size - headerSize) / recordSize[R]()
}
