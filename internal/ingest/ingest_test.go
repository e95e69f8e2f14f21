package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/simonwaldherr/minidb/internal/buffer"
	"github.com/simonwaldherr/minidb/internal/rows"
)

func writeSource(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestPreProcessLoadsAllThreeTables(t *testing.T) {
	srcDir := t.TempDir()
	dataDir := t.TempDir()

	writeSource(t, srcDir, movieTestSourceFile,
		"tconst\ttitleType\tprimaryTitle\n"+
			"tt0000001\tshort\tCarmencita\n"+
			"tt0000002\tshort\tLe clown\n")
	writeSource(t, srcDir, workedOnTestSource,
		"tconst\tordering\tnconst\tcategory\n"+
			"tt0000001\t1\tnm0000001\tdirector\n"+
			"tt0000002\t1\tnm0000002\tactor\n")
	writeSource(t, srcDir, personTestSourceFile,
		"nconst\tprimaryName\n"+
			"nm0000001\tFred Ott\n"+
			"nm0000002\tEmile Reynaud\n")

	bm := buffer.New(24)
	p := Paths{SourceDir: srcDir, DataDir: dataDir, Test: true}
	if err := PreProcess(bm, p); err != nil {
		t.Fatal(err)
	}

	movieFile := filepath.Join(dataDir, MovieHeapFile)
	if _, err := bm.RegisterFile(movieFile); err != nil {
		t.Fatal(err)
	}
	mp, err := buffer.GetPage[rows.Movie](bm, 0, movieFile)
	if err != nil {
		t.Fatal(err)
	}
	defer bm.UnpinPage(0, movieFile)
	if mp.NumRecords() != 2 {
		t.Fatalf("movie.bin has %d records, want 2", mp.NumRecords())
	}
	row, ok := mp.GetRow(0)
	if !ok || row.MovieID != "tt0000001" || row.Title != "Carmencita" {
		t.Fatalf("movie row 0 = %+v ok=%v, want tt0000001/Carmencita", row, ok)
	}
}

func TestPreProcessIsIdempotent(t *testing.T) {
	srcDir := t.TempDir()
	dataDir := t.TempDir()
	writeSource(t, srcDir, movieTestSourceFile, "tconst\ttitleType\tprimaryTitle\ntt0000001\tshort\tCarmencita\n")
	writeSource(t, srcDir, workedOnTestSource, "tconst\tordering\tnconst\tcategory\ntt0000001\t1\tnm0000001\tdirector\n")
	writeSource(t, srcDir, personTestSourceFile, "nconst\tprimaryName\nnm0000001\tFred Ott\n")

	bm := buffer.New(24)
	p := Paths{SourceDir: srcDir, DataDir: dataDir, Test: true}
	if err := PreProcess(bm, p); err != nil {
		t.Fatal(err)
	}

	movieFile := filepath.Join(dataDir, MovieHeapFile)
	before, err := os.ReadFile(movieFile)
	if err != nil {
		t.Fatal(err)
	}

	// remove the source TSV: a second pre_process must not try to re-read it,
	// because movie.bin already exists.
	if err := os.Remove(filepath.Join(srcDir, movieTestSourceFile)); err != nil {
		t.Fatal(err)
	}
	if err := PreProcess(bm, p); err != nil {
		t.Fatal(err)
	}

	after, err := os.ReadFile(movieFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Fatal("expected pre_process to skip an already-populated heap file")
	}
}

func TestLoadFixedWidthSkipsShortLines(t *testing.T) {
	srcDir := t.TempDir()
	dataDir := t.TempDir()
	writeSource(t, srcDir, movieTestSourceFile,
		"tconst\ttitleType\tprimaryTitle\n"+
			"tt0000001\tshort\n"+ // too few columns, must be skipped
			"tt0000002\tshort\tLeaving the Factory\n")

	bm := buffer.New(24)
	dst := filepath.Join(dataDir, MovieHeapFile)
	if err := loadFixedWidth(bm, filepath.Join(srcDir, movieTestSourceFile), dst, 3, func(tokens []string) rows.Movie {
		return rows.Movie{MovieID: tokens[0], Title: tokens[2]}
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := bm.RegisterFile(dst); err != nil {
		t.Fatal(err)
	}
	mp, err := buffer.GetPage[rows.Movie](bm, 0, dst)
	if err != nil {
		t.Fatal(err)
	}
	defer bm.UnpinPage(0, dst)
	if mp.NumRecords() != 1 {
		t.Fatalf("got %d records, want 1 (short line skipped)", mp.NumRecords())
	}
}
