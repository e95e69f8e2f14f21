package page

import (
	"testing"

	"github.com/simonwaldherr/minidb/internal/rows"
)

func newBuf() []byte { return make([]byte, Size) }

func TestInsertAndGetRow(t *testing.T) {
	p := Init[rows.Movie](3, newBuf())
	id := p.InsertRow(rows.Movie{MovieID: "tt001", Title: "Arrival"})
	if id != 0 {
		t.Fatalf("expected rowID 0, got %d", id)
	}
	if p.PageID() != 3 {
		t.Fatalf("expected page id 3, got %d", p.PageID())
	}
	got, ok := p.GetRow(0)
	if !ok {
		t.Fatal("expected row present")
	}
	if got.MovieID != "tt001" || got.Title != "Arrival" {
		t.Fatalf("got %+v", got)
	}
}

func TestGetRowOutOfRange(t *testing.T) {
	p := Init[rows.Movie](0, newBuf())
	if _, ok := p.GetRow(0); ok {
		t.Fatal("expected no row in an empty page")
	}
	if _, ok := p.GetRow(-1); ok {
		t.Fatal("expected negative rowID to fail")
	}
}

func TestPageFillsToCapacity(t *testing.T) {
	p := Init[rows.Movie](0, newBuf())
	cap := Capacity[rows.Movie]()
	for i := 0; i < cap; i++ {
		if p.IsFull() {
			t.Fatalf("page reported full after %d of %d records", i, cap)
		}
		if id := p.InsertRow(rows.Movie{MovieID: "x", Title: "y"}); id != i {
			t.Fatalf("insert %d returned rowID %d", i, id)
		}
	}
	if !p.IsFull() {
		t.Fatal("expected page full at capacity")
	}
	if id := p.InsertRow(rows.Movie{MovieID: "overflow", Title: "z"}); id != -1 {
		t.Fatalf("expected overflow insert to fail, got rowID %d", id)
	}
}

func TestNumRecordsHeaderRoundTrips(t *testing.T) {
	p := Wrap[rows.Movie](1, newBuf())
	p.SetNumRecords(7)
	if got := p.NumRecords(); got != 7 {
		t.Fatalf("NumRecords() = %d, want 7", got)
	}
}
