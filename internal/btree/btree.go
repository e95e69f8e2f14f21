package btree

import (
	"encoding/binary"
	"fmt"

	"github.com/simonwaldherr/minidb/internal/buffer"
)

// headerRow is a placeholder Record so the header page (page 0) can be
// fetched through the same buffer-pool API as every other page. Its bytes
// are never interpreted as a record; the tree reads and writes the root
// page id directly into the page's raw buffer instead.
type headerRow struct{}

func (headerRow) Size() int                  { return 4 }
func (headerRow) MarshalInto([]byte)         {}
func (headerRow) FromBytes([]byte) headerRow { return headerRow{} }

// rootOffset is where the root page id is stored within the header page,
// just past the page's own (unused, for this page) record-count field.
const rootOffset = 4

// BPlusTree is a clustered, duplicate-permitting, page-resident B+Tree
// mapping fixed-width keys of type K to Rid values. Its nodes are pages in
// a dedicated file managed by a buffer.Manager; page 0 of that file is a
// reserved header persisting the root page id.
type BPlusTree[K Key[K]] struct {
	bm       *buffer.Manager
	filePath string
	root     int
	parents  map[int]int
}

// Open attaches a B+Tree to filePath, registering it with bm. If the file
// already existed, the root page id is read back from its header page;
// otherwise the header page is created with root = -1 (empty tree).
func Open[K Key[K]](bm *buffer.Manager, filePath string) (*BPlusTree[K], error) {
	existed, err := bm.RegisterFile(filePath)
	if err != nil {
		return nil, err
	}
	t := &BPlusTree[K]{bm: bm, filePath: filePath, root: -1, parents: make(map[int]int)}

	if existed {
		hp, err := buffer.GetPage[headerRow](bm, 0, filePath)
		if err != nil {
			return nil, fmt.Errorf("btree: read header of %s: %w", filePath, err)
		}
		t.root = int(int32(binary.LittleEndian.Uint32(hp.Data()[rootOffset : rootOffset+4])))
		bm.UnpinPage(0, filePath)
	} else {
		hp, err := buffer.CreatePage[headerRow](bm, filePath)
		if err != nil {
			return nil, fmt.Errorf("btree: create header of %s: %w", filePath, err)
		}
		binary.LittleEndian.PutUint32(hp.Data()[rootOffset:rootOffset+4], uint32(int32(t.root)))
		bm.MarkDirty(0, filePath)
		bm.UnpinPage(0, filePath)
	}
	return t, nil
}

// Close persists the root page id to the header page and forces every
// dirty page of the tree's file back to disk.
func (t *BPlusTree[K]) Close() error {
	hp, err := buffer.GetPage[headerRow](t.bm, 0, t.filePath)
	if err != nil {
		return fmt.Errorf("btree: close %s: %w", t.filePath, err)
	}
	binary.LittleEndian.PutUint32(hp.Data()[rootOffset:rootOffset+4], uint32(int32(t.root)))
	t.bm.MarkDirty(0, t.filePath)
	t.bm.UnpinPage(0, t.filePath)
	return t.bm.Force()
}

func (t *BPlusTree[K]) getNode(pid int) (*node[K], error) {
	p, err := buffer.GetPage[headerRow](t.bm, pid, t.filePath)
	if err != nil {
		return nil, err
	}
	return wrapNode[K](p.Data()), nil
}

// Insert inserts (k, r) into the tree, splitting leaves and internal nodes
// as needed. Duplicate keys are permitted; a new key is placed at the
// first slot whose existing key is greater than k, i.e. after any equal
// keys, so duplicates keep their insertion order.
func (t *BPlusTree[K]) Insert(k K, r Rid) error {
	var leafID int
	var leaf *node[K]
	if t.root == -1 {
		p, err := buffer.CreatePage[headerRow](t.bm, t.filePath)
		if err != nil {
			return err
		}
		leaf = wrapNode[K](p.Data())
		leaf.SetIsLeaf(true)
		leaf.SetSize(0)
		leaf.SetNext(-1)
		t.root = p.PageID()
		leafID = t.root
	} else {
		var err error
		leafID, leaf, err = t.findLeaf(k, false)
		if err != nil {
			return err
		}
	}

	pos := leaf.Size()
	for i := 0; i < leaf.Size(); i++ {
		if k.Less(leaf.GetKey(i)) {
			pos = i
			break
		}
	}
	leaf.InsertKeyValue(k, r, pos)
	leaf.SetSize(leaf.Size() + 1)
	t.bm.MarkDirty(leafID, t.filePath)
	t.bm.UnpinPage(leafID, t.filePath)

	if leaf.Size() > Capacity[K]() {
		return t.splitLeaf(leafID)
	}
	return nil
}

// splitLeaf splits an overflowing leaf and promotes its new leaf's first
// key into the parent.
func (t *BPlusTree[K]) splitLeaf(leafID int) error {
	leafPage, err := buffer.GetPage[headerRow](t.bm, leafID, t.filePath)
	if err != nil {
		return err
	}
	leaf := wrapNode[K](leafPage.Data())

	newPage, err := buffer.CreatePage[headerRow](t.bm, t.filePath)
	if err != nil {
		return err
	}
	newLeaf := wrapNode[K](newPage.Data())
	newLeaf.SetIsLeaf(true)
	newLeaf.SetNext(leaf.Next())
	leaf.SetNext(newPage.PageID())

	splitLine := ceilHalf(Capacity[K]())
	for i := splitLine; i < leaf.Size(); i++ {
		newLeaf.InsertKeyValue(leaf.GetKey(i), leaf.GetRid(i), i-splitLine)
	}
	newLeaf.SetSize(leaf.Size() - splitLine)
	leaf.SetSize(splitLine)

	promoted := newLeaf.GetKey(0)

	t.bm.MarkDirty(leafID, t.filePath)
	t.bm.MarkDirty(newPage.PageID(), t.filePath)
	t.bm.UnpinPage(newPage.PageID(), t.filePath)
	t.bm.UnpinPage(leafID, t.filePath)

	return t.insertIntoParent(promoted, leafID, newPage.PageID())
}

// insertIntoParent inserts (key, n2) into n1's parent, minting a new root
// if n1 was the root, and recursively splitting the parent if it overflows.
func (t *BPlusTree[K]) insertIntoParent(key K, n1, n2 int) error {
	if n1 == t.root {
		rootPage, err := buffer.CreatePage[headerRow](t.bm, t.filePath)
		if err != nil {
			return err
		}
		t.root = rootPage.PageID()
		parent := wrapNode[K](rootPage.Data())
		parent.SetIsLeaf(false)
		parent.SetNext(-1)
		parent.InsertValueOnly(n1, 0)
		parent.SetSize(1)
		t.parents[n1] = t.root
		t.bm.MarkDirty(t.root, t.filePath)
		t.bm.UnpinPage(t.root, t.filePath)
	}

	parentID := t.parents[n1]
	parentPage, err := buffer.GetPage[headerRow](t.bm, parentID, t.filePath)
	if err != nil {
		return err
	}
	parent := wrapNode[K](parentPage.Data())

	for i := 0; i < parent.Size(); i++ {
		if parent.GetChild(i) == n1 {
			parent.InsertChildEntry(key, n2, i+1)
			break
		}
	}
	parent.SetSize(parent.Size() + 1)
	t.bm.MarkDirty(parentID, t.filePath)
	t.bm.UnpinPage(parentID, t.filePath)

	if parent.Size() <= Capacity[K]() {
		return nil
	}
	return t.splitInternal(parentID)
}

// splitInternal splits an overflowing internal node, promoting its middle
// key to the grandparent rather than copying it down (standard B+Tree
// internal-node split).
func (t *BPlusTree[K]) splitInternal(nodeID int) error {
	nodePage, err := buffer.GetPage[headerRow](t.bm, nodeID, t.filePath)
	if err != nil {
		return err
	}
	n := wrapNode[K](nodePage.Data())

	newPage, err := buffer.CreatePage[headerRow](t.bm, t.filePath)
	if err != nil {
		return err
	}
	newNode := wrapNode[K](newPage.Data())
	newNode.SetIsLeaf(false)
	newNode.SetNext(-1)

	splitLine := ceilHalf(Capacity[K]())
	newNode.InsertValueOnly(n.GetChild(splitLine), 0)
	for i := splitLine + 1; i < n.Size(); i++ {
		newNode.InsertChildEntry(n.GetKey(i), n.GetChild(i), i-splitLine)
	}
	promoted := n.GetKey(splitLine)
	newNode.SetSize(n.Size() - splitLine)
	n.SetSize(splitLine)

	t.bm.MarkDirty(nodeID, t.filePath)
	t.bm.MarkDirty(newPage.PageID(), t.filePath)
	t.bm.UnpinPage(newPage.PageID(), t.filePath)
	t.bm.UnpinPage(nodeID, t.filePath)

	// nodeID's parent is already recorded in t.parents, either from the
	// findLeaf descent that triggered this insert or from a previous call
	// to insertIntoParent minting nodeID a new root.
	return t.insertIntoParent(promoted, nodeID, newPage.PageID())
}

// Entry is one (key, rid) pair supplied to BulkInsert.
type Entry[K Key[K]] struct {
	Key K
	Rid Rid
}

// BulkInsert loads data into an empty tree in one pass. The caller should
// supply data sorted ascending by key for a well-shaped tree; unsorted
// input is still correct, but internal keys will then reflect insertion
// order rather than sort order.
func (t *BPlusTree[K]) BulkInsert(data []Entry[K]) error {
	if t.root != -1 {
		return fmt.Errorf("btree: bulkInsert requires an empty tree")
	}
	if len(data) == 0 {
		return nil
	}

	leafPage, err := buffer.CreatePage[headerRow](t.bm, t.filePath)
	if err != nil {
		return err
	}
	leaf := wrapNode[K](leafPage.Data())
	leaf.SetIsLeaf(true)
	leaf.SetSize(0)
	leaf.SetNext(-1)
	leafID := leafPage.PageID()

	rootPage, err := buffer.CreatePage[headerRow](t.bm, t.filePath)
	if err != nil {
		return err
	}
	t.root = rootPage.PageID()
	rootNode := wrapNode[K](rootPage.Data())
	rootNode.SetIsLeaf(false)
	rootNode.SetNext(-1)
	rootNode.InsertValueOnly(leafID, 0)
	rootNode.SetSize(1)
	t.parents[leafID] = t.root
	t.bm.MarkDirty(t.root, t.filePath)
	t.bm.UnpinPage(t.root, t.filePath)

	cap := Capacity[K]()
	for _, rec := range data {
		if leaf.Size() == cap {
			newPage, err := buffer.CreatePage[headerRow](t.bm, t.filePath)
			if err != nil {
				return err
			}
			newLeaf := wrapNode[K](newPage.Data())
			newLeafID := newPage.PageID()
			newLeaf.SetIsLeaf(true)
			newLeaf.SetNext(-1)
			leaf.SetNext(newLeafID)
			newLeaf.InsertKeyValue(rec.Key, rec.Rid, 0)
			newLeaf.SetSize(1)

			t.bm.MarkDirty(leafID, t.filePath)
			t.bm.UnpinPage(leafID, t.filePath)

			if err := t.insertIntoParent(rec.Key, leafID, newLeafID); err != nil {
				return err
			}
			// The new leaf is always the rightmost child; re-record the
			// rightmost path so the next insertIntoParent finds its parent.
			for curID := t.root; curID != newLeafID; {
				cur, err := t.getNode(curID)
				if err != nil {
					return err
				}
				child := cur.GetChild(cur.Size() - 1)
				t.bm.UnpinPage(curID, t.filePath)
				t.parents[child] = curID
				curID = child
			}
			leafID = newLeafID
			leaf = newLeaf
		} else {
			leaf.InsertKeyValue(rec.Key, rec.Rid, leaf.Size())
			leaf.SetSize(leaf.Size() + 1)
		}
	}
	t.bm.MarkDirty(leafID, t.filePath)
	t.bm.UnpinPage(leafID, t.filePath)
	return nil
}

// Search returns every Rid stored under key k.
func (t *BPlusTree[K]) Search(k K) ([]Rid, error) {
	return t.scan(k, func(key K) bool { return !key.Less(k) && !k.Less(key) }, func(key K) bool { return k.Less(key) })
}

// RangeSearch returns every Rid whose key falls in [lo, hi], ordered by key
// ascending, ties broken by insertion order.
func (t *BPlusTree[K]) RangeSearch(lo, hi K) ([]Rid, error) {
	start := lo
	return t.scanFrom(start, func(key K) bool {
		return !key.Less(lo) && !hi.Less(key)
	}, func(key K) bool { return hi.Less(key) })
}

// scan is Search's engine: it starts at findLeaf(k) since search only ever
// needs the leaf containing k.
func (t *BPlusTree[K]) scan(k K, match func(K) bool, stop func(K) bool) ([]Rid, error) {
	return t.scanFrom(k, match, stop)
}

// scanFrom walks forward from findLeaf(start), collecting values whose key
// satisfies match, terminating at the first key for which stop is true (or
// when the tree runs out of leaves).
func (t *BPlusTree[K]) scanFrom(start K, match func(K) bool, stop func(K) bool) ([]Rid, error) {
	var results []Rid
	if t.root == -1 {
		return results, nil
	}
	leafID, n, err := t.findLeaf(start, true)
	if err != nil {
		return nil, err
	}

	pos := 0
	for {
		if pos == n.Size() {
			next := n.Next()
			t.bm.UnpinPage(leafID, t.filePath)
			if next == -1 {
				return results, nil
			}
			leafID = next
			n, err = t.getNode(leafID)
			if err != nil {
				return nil, err
			}
			pos = 0
			continue
		}
		key := n.GetKey(pos)
		if stop(key) {
			t.bm.UnpinPage(leafID, t.filePath)
			return results, nil
		}
		if match(key) {
			results = append(results, n.GetRid(pos))
		}
		pos++
	}
}

// findLeaf descends from the root to the unique leaf whose key range
// contains k, recording each visited internal node's chosen child in the
// transient parents map used by insertIntoParent. Returns the leaf's page
// id and node view, pinned exactly once; ancestors are unpinned as they are
// passed. Without leftmost it descends right of a separator equal to k (the
// insert path); with leftmost it descends left of it, reaching the first
// leaf that can hold k, so a forward walk also sees equal keys that a split
// left in the preceding leaf.
func (t *BPlusTree[K]) findLeaf(k K, leftmost bool) (int, *node[K], error) {
	t.parents = make(map[int]int)
	curID := t.root
	cur, err := t.getNode(curID)
	if err != nil {
		return -1, nil, err
	}
	for !cur.IsLeaf() {
		pos := cur.Size() - 1
		for i := 1; i < cur.Size(); i++ {
			if sep := cur.GetKey(i); k.Less(sep) || (leftmost && !sep.Less(k)) {
				pos = i - 1
				break
			}
		}
		child := cur.GetChild(pos)
		t.parents[child] = curID
		t.bm.UnpinPage(curID, t.filePath)
		curID = child
		cur, err = t.getNode(curID)
		if err != nil {
			return -1, nil, err
		}
	}
	return curID, cur, nil
}

// ceilHalf returns ⌈n/2⌉.
func ceilHalf(n int) int { return n/2 + n%2 }
