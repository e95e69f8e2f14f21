// Package btree implements minidb's clustered, duplicate-tolerant B+Tree
// index: a disk-resident tree whose nodes are pages in a dedicated file,
// built directly on top of internal/buffer and internal/page.
package btree

import (
	"encoding/binary"

	"github.com/simonwaldherr/minidb/internal/page"
)

// Rid is a record identifier: the stable (pageId, slotId) address of a
// record inside a heap file.
type Rid struct {
	PageID int
	SlotID int
}

// Key is the constraint satisfied by every fixed-width key type a tree can
// index: it must marshal to a fixed width and compare by ordinary value
// ordering (used by both integer and zero-padded string keys).
type Key[K any] interface {
	comparable
	Size() int
	MarshalInto(dst []byte)
	FromBytes(src []byte) K
	Less(other K) bool
}

// nodeHeaderSize is the width of the tree-node header: a 1-byte leaf flag,
// a 4-byte LE entry count, and a 4-byte LE "next" pointer (the leaf sibling
// pointer; unused, always -1, on internal nodes).
const nodeHeaderSize = 1 + 4 + 4

// entrySize returns the byte width of one (key, value) slot for a tree over
// K-typed keys, where value is either a Rid (leaf) or a child page id
// (internal) — both 8 bytes wide (pageId+slotId, or pageId+padding).
func entrySize[K Key[K]]() int {
	var zero K
	return zero.Size() + 8
}

// Capacity returns the maximum number of entries a node of this key type
// can hold. The -1 reserves room for a transient overflow entry: Insert
// writes the new (key, value) pair into the node before checking whether
// the node must split, so the raw page buffer needs space for one entry
// beyond Capacity's steady-state count.
func Capacity[K Key[K]]() int {
	return (page.Size-nodeHeaderSize)/entrySize[K]() - 1
}

// node is a non-owning view over a raw page buffer, imposing the
// header-plus-slots layout described above. It does no buffer-pool I/O of
// its own; callers pin/unpin the backing page.
type node[K Key[K]] struct {
	data []byte
}

// wrapNode overlays a node view on a page's raw buffer.
func wrapNode[K Key[K]](data []byte) *node[K] {
	return &node[K]{data: data}
}

func (n *node[K]) IsLeaf() bool { return n.data[0] != 0 }

func (n *node[K]) SetIsLeaf(v bool) {
	if v {
		n.data[0] = 1
	} else {
		n.data[0] = 0
	}
}

func (n *node[K]) Size() int {
	return int(binary.LittleEndian.Uint32(n.data[1:5]))
}

func (n *node[K]) SetSize(sz int) {
	binary.LittleEndian.PutUint32(n.data[1:5], uint32(sz))
}

// Next is the leaf's right-sibling page id, or -1 on the rightmost leaf.
// Meaningless on internal nodes.
func (n *node[K]) Next() int {
	return int(int32(binary.LittleEndian.Uint32(n.data[5:9])))
}

func (n *node[K]) SetNext(pid int) {
	binary.LittleEndian.PutUint32(n.data[5:9], uint32(int32(pid)))
}

func (n *node[K]) slotOffset(i int) int {
	return nodeHeaderSize + i*entrySize[K]()
}

// GetKey returns the key stored at slot i.
func (n *node[K]) GetKey(i int) K {
	var zero K
	off := n.slotOffset(i)
	return zero.FromBytes(n.data[off : off+zero.Size()])
}

// GetRid returns the leaf value (Rid) stored at slot i.
func (n *node[K]) GetRid(i int) Rid {
	var zero K
	off := n.slotOffset(i) + zero.Size()
	return Rid{
		PageID: int(int32(binary.LittleEndian.Uint32(n.data[off : off+4]))),
		SlotID: int(int32(binary.LittleEndian.Uint32(n.data[off+4 : off+8]))),
	}
}

// GetChild returns the internal-node child pointer stored at slot i.
func (n *node[K]) GetChild(i int) int {
	var zero K
	off := n.slotOffset(i) + zero.Size()
	return int(int32(binary.LittleEndian.Uint32(n.data[off : off+4])))
}

func (n *node[K]) setKeyAt(i int, k K) {
	off := n.slotOffset(i)
	k.MarshalInto(n.data[off : off+k.Size()])
}

func (n *node[K]) setRidAt(i int, r Rid) {
	var zero K
	off := n.slotOffset(i) + zero.Size()
	binary.LittleEndian.PutUint32(n.data[off:off+4], uint32(int32(r.PageID)))
	binary.LittleEndian.PutUint32(n.data[off+4:off+8], uint32(int32(r.SlotID)))
}

func (n *node[K]) setChildAt(i int, child int) {
	var zero K
	off := n.slotOffset(i) + zero.Size()
	binary.LittleEndian.PutUint32(n.data[off:off+4], uint32(int32(child)))
	binary.LittleEndian.PutUint32(n.data[off+4:off+8], 0)
}

// InsertKeyValue memmoves slots [i, size) right by one and writes (k, rid)
// at i. Leaf nodes only.
func (n *node[K]) InsertKeyValue(k K, r Rid, i int) {
	sz := n.Size()
	n.shiftRight(i, sz)
	n.setKeyAt(i, k)
	n.setRidAt(i, r)
}

// InsertChildEntry memmoves slots [i, size) right by one and writes (k,
// child) at i. Internal nodes only.
func (n *node[K]) InsertChildEntry(k K, child int, i int) {
	sz := n.Size()
	n.shiftRight(i, sz)
	n.setKeyAt(i, k)
	n.setChildAt(i, child)
}

// InsertValueOnly writes only the value half of slot i, leaving its key
// untouched (used to seed an internal node's left-most child, which has no
// associated key).
func (n *node[K]) InsertValueOnly(child int, i int) {
	n.setChildAt(i, child)
}

// shiftRight moves entries [from, size) one slot to the right to make room
// for an insert at from.
func (n *node[K]) shiftRight(from, size int) {
	es := entrySize[K]()
	for i := size; i > from; i-- {
		copy(n.data[n.slotOffset(i):n.slotOffset(i)+es], n.data[n.slotOffset(i-1):n.slotOffset(i-1)+es])
	}
}
