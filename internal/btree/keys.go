package btree

import (
	"bytes"
	"encoding/binary"

	"github.com/simonwaldherr/minidb/internal/rows"
)

// IntKey is a fixed-width signed 32-bit integer key, used by the seed-data
// testable-property scenarios (BT-1/BT-2/BT-3) that index by a plain
// integer.
type IntKey int32

func (IntKey) Size() int { return 4 }

func (k IntKey) MarshalInto(dst []byte) {
	binary.LittleEndian.PutUint32(dst, uint32(int32(k)))
}

func (IntKey) FromBytes(src []byte) IntKey {
	return IntKey(int32(binary.LittleEndian.Uint32(src)))
}

func (k IntKey) Less(other IntKey) bool { return k < other }

// TitleKey is a fixed-width, zero-padded title string key, for a tree that
// indexes rows by title. The query driver (internal/query) does not use a
// B+Tree; its title-range filter is a Select over a heap-file Scan.
// Comparison is lexicographic over the zero-padded bytes, matching the
// memcmp ordering the heap file's Movie rows use.
type TitleKey struct {
	V string
}

func (TitleKey) Size() int { return rows.TitleWidth }

func (k TitleKey) MarshalInto(dst []byte) {
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, k.V)
}

func (TitleKey) FromBytes(src []byte) TitleKey {
	if i := bytes.IndexByte(src, 0); i >= 0 {
		return TitleKey{V: string(src[:i])}
	}
	return TitleKey{V: string(src)}
}

func (k TitleKey) Less(other TitleKey) bool { return k.V < other.V }
