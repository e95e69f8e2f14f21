package btree

import (
	"path/filepath"
	"testing"

	"github.com/simonwaldherr/minidb/internal/buffer"
)

func newTestTree(t *testing.T) (*BPlusTree[IntKey], *buffer.Manager) {
	t.Helper()
	bm := buffer.New(64)
	path := filepath.Join(t.TempDir(), "index.bin")
	tr, err := Open[IntKey](bm, path)
	if err != nil {
		t.Fatal(err)
	}
	return tr, bm
}

// BT-1: sequential insert, search, range search, then a duplicate-tolerant
// re-insert of the same keys doubling the result counts.
func TestSequentialInsertSearchAndRange(t *testing.T) {
	tr, _ := newTestTree(t)

	for i := 0; i < 100000; i++ {
		if err := tr.Insert(IntKey(i), Rid{PageID: 0, SlotID: i}); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	rids, err := tr.Search(IntKey(283))
	if err != nil {
		t.Fatal(err)
	}
	if len(rids) != 1 || rids[0] != (Rid{PageID: 0, SlotID: 283}) {
		t.Fatalf("search(283) = %v, want [(0,283)]", rids)
	}

	rng, err := tr.RangeSearch(IntKey(50), IntKey(80))
	if err != nil {
		t.Fatal(err)
	}
	if len(rng) != 31 {
		t.Fatalf("rangeSearch(50,80) returned %d rids, want 31", len(rng))
	}
	for i, r := range rng {
		want := 50 + i
		if r.SlotID != want {
			t.Fatalf("rangeSearch(50,80)[%d] = %+v, want SlotID %d in ascending order", i, r, want)
		}
	}

	for i := 0; i < 100000; i++ {
		if err := tr.Insert(IntKey(i), Rid{PageID: 0, SlotID: i}); err != nil {
			t.Fatalf("re-insert %d: %v", i, err)
		}
	}

	rids, err = tr.Search(IntKey(283))
	if err != nil {
		t.Fatal(err)
	}
	if len(rids) != 2 {
		t.Fatalf("after re-insert, search(283) returned %d rids, want 2", len(rids))
	}
	for _, r := range rids {
		if r != (Rid{PageID: 0, SlotID: 283}) {
			t.Fatalf("after re-insert, search(283) = %v, want both entries (0,283)", rids)
		}
	}

	rng, err = tr.RangeSearch(IntKey(50), IntKey(80))
	if err != nil {
		t.Fatal(err)
	}
	if len(rng) != 62 {
		t.Fatalf("after re-insert, rangeSearch(50,80) returned %d rids, want 62", len(rng))
	}
}

// BT-2: bulk-loading the same ascending keys in one pass must yield
// identical search/range results to BT-1's first round.
func TestBulkInsertMatchesSequentialInsert(t *testing.T) {
	tr, _ := newTestTree(t)

	entries := make([]Entry[IntKey], 100000)
	for i := range entries {
		entries[i] = Entry[IntKey]{Key: IntKey(i), Rid: Rid{PageID: 0, SlotID: i}}
	}
	if err := tr.BulkInsert(entries); err != nil {
		t.Fatal(err)
	}

	rids, err := tr.Search(IntKey(283))
	if err != nil {
		t.Fatal(err)
	}
	if len(rids) != 1 || rids[0] != (Rid{PageID: 0, SlotID: 283}) {
		t.Fatalf("search(283) = %v, want [(0,283)]", rids)
	}

	rng, err := tr.RangeSearch(IntKey(50), IntKey(80))
	if err != nil {
		t.Fatal(err)
	}
	if len(rng) != 31 {
		t.Fatalf("rangeSearch(50,80) returned %d rids, want 31", len(rng))
	}
	for i, r := range rng {
		want := 50 + i
		if r.SlotID != want {
			t.Fatalf("rangeSearch(50,80)[%d] = %+v, want SlotID %d in ascending order", i, r, want)
		}
	}
}

// BT-3: extreme negative and positive keys are located correctly, including
// a range search whose lower bound falls strictly between the two keys.
func TestExtremeKeys(t *testing.T) {
	tr, _ := newTestTree(t)

	if err := tr.Insert(IntKey(-1000000), Rid{PageID: 1, SlotID: -1000000}); err != nil {
		t.Fatal(err)
	}
	if err := tr.Insert(IntKey(1000000), Rid{PageID: 1, SlotID: 1000000}); err != nil {
		t.Fatal(err)
	}

	rids, err := tr.Search(IntKey(-1000000))
	if err != nil {
		t.Fatal(err)
	}
	if len(rids) != 1 || rids[0] != (Rid{PageID: 1, SlotID: -1000000}) {
		t.Fatalf("search(-1000000) = %v, want one rid (1,-1000000)", rids)
	}

	rng, err := tr.RangeSearch(IntKey(999999), IntKey(1000000))
	if err != nil {
		t.Fatal(err)
	}
	if len(rng) != 1 || rng[0] != (Rid{PageID: 1, SlotID: 1000000}) {
		t.Fatalf("rangeSearch(999999,1000000) = %v, want one rid (1,1000000)", rng)
	}
}

// An empty tree answers both search and range queries with no results and
// no error, rather than panicking on a nil root.
func TestEmptyTreeQueries(t *testing.T) {
	tr, _ := newTestTree(t)

	rids, err := tr.Search(IntKey(42))
	if err != nil {
		t.Fatal(err)
	}
	if len(rids) != 0 {
		t.Fatalf("search on empty tree = %v, want none", rids)
	}

	rng, err := tr.RangeSearch(IntKey(0), IntKey(100))
	if err != nil {
		t.Fatal(err)
	}
	if len(rng) != 0 {
		t.Fatalf("rangeSearch on empty tree = %v, want none", rng)
	}
}

// The root page id persists across a Close/Open cycle so a tree can be
// reopened without re-indexing.
func TestRootSurvivesCloseAndReopen(t *testing.T) {
	bm := buffer.New(64)
	path := filepath.Join(t.TempDir(), "index.bin")

	tr, err := Open[IntKey](bm, path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 500; i++ {
		if err := tr.Insert(IntKey(i), Rid{PageID: 0, SlotID: i}); err != nil {
			t.Fatal(err)
		}
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open[IntKey](bm, path)
	if err != nil {
		t.Fatal(err)
	}
	rids, err := reopened.Search(IntKey(283))
	if err != nil {
		t.Fatal(err)
	}
	if len(rids) != 1 || rids[0] != (Rid{PageID: 0, SlotID: 283}) {
		t.Fatalf("search(283) after reopen = %v, want [(0,283)]", rids)
	}
}
