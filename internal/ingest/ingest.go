// Package ingest loads the IMDB-derived source TSVs into minidb's heap
// files: the external collaborator named in spec §1, supplemented here
// (per original_source/lab3's test fixtures) because a runnable cmd/minidb
// needs something to populate movie.bin/workedon.bin/people.bin from.
package ingest

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/simonwaldherr/minidb/internal/buffer"
	"github.com/simonwaldherr/minidb/internal/rows"
)

// Source file names, per spec §6.4. The "test" variants are the small
// fixed sample files original_source/lab3 ships under test_end2end.
const (
	movieSourceFile      = "title.basics.tsv"
	workedOnSourceFile   = "title.principals.tsv"
	personSourceFile     = "name.basics.tsv"
	movieTestSourceFile  = "title.basics.test.tsv"
	workedOnTestSource   = "title.principals.test.tsv"
	personTestSourceFile = "name.basics.test.tsv"
)

// Heap file names, per spec §6.4.
const (
	MovieHeapFile    = "movie.bin"
	WorkedOnHeapFile = "workedon.bin"
	PersonHeapFile   = "people.bin"
)

// Paths names the source TSVs and destination heap files pre_process wires
// together.
type Paths struct {
	SourceDir string
	DataDir   string
	Test      bool
}

// sourceFile returns the source TSV name for table, honoring test mode.
func (p Paths) sourceFile(normal, test string) string {
	name := normal
	if p.Test {
		name = test
	}
	return filepath.Join(p.SourceDir, name)
}

func (p Paths) heapFile(name string) string {
	return filepath.Join(p.DataDir, name)
}

// PreProcess loads title.basics.tsv, title.principals.tsv, and
// name.basics.tsv into movie.bin, workedon.bin, and people.bin, skipping
// any heap file that already exists (idempotent, per spec §6.3).
func PreProcess(bm *buffer.Manager, p Paths) error {
	if err := loadMovies(bm, p); err != nil {
		return err
	}
	if err := loadWorkedOn(bm, p); err != nil {
		return err
	}
	if err := loadPeople(bm, p); err != nil {
		return err
	}
	return nil
}

func loadMovies(bm *buffer.Manager, p Paths) error {
	dst := p.heapFile(MovieHeapFile)
	if exists(dst) {
		log.Printf("ingest: %s already exists, skipping", dst)
		return nil
	}
	src := p.sourceFile(movieSourceFile, movieTestSourceFile)
	return loadFixedWidth(bm, src, dst, 3, func(tokens []string) rows.Movie {
		return rows.Movie{MovieID: tokens[0], Title: tokens[2]}
	})
}

func loadWorkedOn(bm *buffer.Manager, p Paths) error {
	dst := p.heapFile(WorkedOnHeapFile)
	if exists(dst) {
		log.Printf("ingest: %s already exists, skipping", dst)
		return nil
	}
	src := p.sourceFile(workedOnSourceFile, workedOnTestSource)
	return loadFixedWidth(bm, src, dst, 4, func(tokens []string) rows.WorkedOn {
		return rows.WorkedOn{MovieID: tokens[0], PersonID: tokens[2], Category: tokens[3]}
	})
}

func loadPeople(bm *buffer.Manager, p Paths) error {
	dst := p.heapFile(PersonHeapFile)
	if exists(dst) {
		log.Printf("ingest: %s already exists, skipping", dst)
		return nil
	}
	src := p.sourceFile(personSourceFile, personTestSourceFile)
	return loadFixedWidth(bm, src, dst, 2, func(tokens []string) rows.Person {
		return rows.Person{PersonID: tokens[0], Name: tokens[1]}
	})
}

// loadFixedWidth streams src line by line, splitting on tab, skipping the
// TSV header, and packing each valid row into dst's heap file, rotating
// append pages as they fill. minCols is the minimum token count a line must
// carry to be considered a data row; shorter lines are skipped.
func loadFixedWidth[R rows.Row[R]](bm *buffer.Manager, src, dst string, minCols int, build func([]string) R) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("ingest: open %s: %w", src, err)
	}
	defer f.Close()

	if _, err := bm.RegisterFile(dst); err != nil {
		return err
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	if !sc.Scan() {
		return nil // empty source: not even a header line
	}

	appendPage, err := buffer.CreatePage[R](bm, dst)
	if err != nil {
		return err
	}
	appendPid := appendPage.PageID()

	loaded := 0
	for sc.Scan() {
		tokens := strings.Split(sc.Text(), "\t")
		if len(tokens) < minCols {
			continue
		}
		row := build(tokens)

		if appendPage.IsFull() {
			bm.MarkDirty(appendPid, dst)
			bm.UnpinPage(appendPid, dst)
			appendPage, err = buffer.CreatePage[R](bm, dst)
			if err != nil {
				return err
			}
			appendPid = appendPage.PageID()
		}
		if appendPage.InsertRow(row) == -1 {
			return fmt.Errorf("ingest: row rejected by a freshly created page of %s", dst)
		}
		loaded++
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("ingest: read %s: %w", src, err)
	}
	bm.MarkDirty(appendPid, dst)
	bm.UnpinPage(appendPid, dst)

	log.Printf("ingest: loaded %d rows from %s into %s", loaded, src, dst)
	return bm.Force()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
