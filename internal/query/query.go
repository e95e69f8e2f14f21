// Package query implements the driver named in spec §2 and §6.3: it builds
// the canonical director-lookup operator tree from a title range and a
// buffer budget, drains it, and reports the counters run_query prints.
//
// Plan shape, per spec §4.6's buffer-budget discipline and §6.3's command
// description:
//
//	Scan(movie.bin)  --Select(title in [start,end])-->
//	  BlockNestedLoopJoin_1  <-- Materialize(Select(Scan(workedon.bin), category="director"))
//	  BlockNestedLoopJoin_2  <-- Scan(people.bin)
//	  --Project(title, name)-->
//
// Neither join side is index-assisted: the B+ tree (internal/btree) is a
// standalone core subsystem in this spec, exercised through its own API, not
// wired into this plan.
package query

import (
	"fmt"
	"path/filepath"

	"github.com/simonwaldherr/minidb/internal/buffer"
	"github.com/simonwaldherr/minidb/internal/exec"
	"github.com/simonwaldherr/minidb/internal/ingest"
	"github.com/simonwaldherr/minidb/internal/rows"
)

// Paths names the heap files and scratch directory the driver reads from
// and writes its temporary materializations into.
type Paths struct {
	MovieFile    string
	WorkedOnFile string
	PersonFile   string
	ScratchDir   string
}

// PathsFor derives the three heap file paths from dataDir, matching
// internal/ingest's naming.
func PathsFor(dataDir string) Paths {
	return Paths{
		MovieFile:    filepath.Join(dataDir, ingest.MovieHeapFile),
		WorkedOnFile: filepath.Join(dataDir, ingest.WorkedOnHeapFile),
		PersonFile:   filepath.Join(dataDir, ingest.PersonHeapFile),
		ScratchDir:   dataDir,
	}
}

// Result collects the counters run_query reports alongside its output rows,
// per spec §6.3 and the E2E-1 reproducibility property.
type Result struct {
	Rows                []Tuple
	WorkedOnSelectivity float64
	MovieSelectivity    float64
	Join1Count          int
	IOCount             int64
}

// Tuple is a (title, name) result row.
type Tuple struct {
	Title string
	Name  string
}

// minBlockSize is the smallest blockSize the driver will ever hand a join,
// even if the buffer budget arithmetic rounds down to zero.
const minBlockSize = 1

// blockSize computes each join's block size from the global buffer budget,
// per spec §4.6: 6 frames are reserved for the left/right/output streams of
// the two joins, and the remainder is split evenly between them.
func blockSize(bufferFrames int) int {
	b := (bufferFrames - 6) / 2
	if b < minBlockSize {
		return minBlockSize
	}
	return b
}

// Run executes the canonical query: movies with title in [start, end],
// joined to WorkedOn filtered to category="director", joined to Person on
// personId, emitting (title, name) pairs. bufferFrames sizes the buffer
// pool the driver opens internally.
func Run(p Paths, start, end string, bufferFrames int) (Result, error) {
	bm := buffer.New(bufferFrames)
	defer bm.Close()

	bs := blockSize(bufferFrames)

	movieScan := exec.NewScan[rows.Movie](bm, p.MovieFile, 0)
	movieSel := exec.NewSelect(movieScan, func(t exec.Tuple) bool {
		title := t[1]
		return title >= start && title <= end
	})

	workedOnScan := exec.NewScan[rows.WorkedOn](bm, p.WorkedOnFile, 0)
	workedOnSel := exec.NewSelect(workedOnScan, func(t exec.Tuple) bool {
		return t[2] == "director"
	})
	workedOnMat := exec.NewMaterialize[rows.WorkedOnKey](
		workedOnSel, bm, exec.TempFileName(p.ScratchDir, "workedon-director"),
		func(t exec.Tuple) rows.WorkedOnKey {
			return rows.WorkedOnKey{MovieID: t[0], PersonID: t[1]}
		},
	)

	join1 := exec.NewBlockNestedLoopJoin[string, rows.Movie](
		bm, movieSel, workedOnMat, bs, exec.TempFileName(p.ScratchDir, "join1-block"),
		func(t exec.Tuple) string { return t[0] },
		func(t exec.Tuple) string { return t[0] },
		func(t exec.Tuple) rows.Movie { return rows.Movie{MovieID: t[0], Title: t[1]} },
	)

	personScan := exec.NewScan[rows.Person](bm, p.PersonFile, 0)

	// join1's output tuple is (movieId, title, movieId, personId): the
	// movie's own fields followed by the workedOn-key tuple it matched.
	// join2 carries title forward, not the (now redundant) movieId, since
	// only (title, name) survives to the final projection.
	join2 := exec.NewBlockNestedLoopJoin[string, rows.TitleKey](
		bm, join1, personScan, bs, exec.TempFileName(p.ScratchDir, "join2-block"),
		func(t exec.Tuple) string { return t[3] },
		func(t exec.Tuple) string { return t[0] },
		func(t exec.Tuple) rows.TitleKey {
			return rows.TitleKey{Title: t[1], PersonID: t[3]}
		},
	)

	project := exec.NewProject(join2, []int{0, 3})

	if err := project.Open(); err != nil {
		return Result{}, fmt.Errorf("query: open plan: %w", err)
	}

	var out []Tuple
	for {
		t, ok, err := project.Next()
		if err != nil {
			project.Close()
			return Result{}, fmt.Errorf("query: next: %w", err)
		}
		if !ok {
			break
		}
		out = append(out, Tuple{Title: t[0], Name: t[1]})
	}
	if err := project.Close(); err != nil {
		return Result{}, fmt.Errorf("query: close plan: %w", err)
	}

	return Result{
		Rows:                out,
		WorkedOnSelectivity: workedOnSel.Selectivity(),
		MovieSelectivity:    movieSel.Selectivity(),
		Join1Count:          join1.Out(),
		IOCount:             bm.IOCount(),
	}, nil
}
