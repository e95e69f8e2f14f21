package exec

import (
	"fmt"
	"os"

	"github.com/simonwaldherr/minidb/internal/buffer"
	"github.com/simonwaldherr/minidb/internal/page"
)

// position is a record's address within the join's block scratch file.
type position struct {
	pageID int
	slotID int
}

// BlockNestedLoopJoin equi-joins left and right on leftKey(l) == rightKey(r).
// It buffers up to blockSize pages of the left side (converted to the
// fixed-width LeftRowType via buildLeftRow) into tempFile and a hash map,
// probes the right side tuple-at-a-time against that map, and restarts the
// right side whenever a block is exhausted, building a fresh block until
// the left side itself runs dry. Output tuples are left-fields followed by
// right-fields.
type BlockNestedLoopJoin[K comparable, L Row[L]] struct {
	bm        *buffer.Manager
	left      Operator
	right     Operator
	blockSize int
	tempFile  string
	leftKey   func(Tuple) K
	rightKey  func(Tuple) K
	buildLeft func(Tuple) L

	blockPages []int
	blockHash  map[K][]position
	lastRight  Tuple
	probeList  []position
	probeIdx   int
	buildDone  bool
	outCount   int
}

func NewBlockNestedLoopJoin[K comparable, L Row[L]](
	bm *buffer.Manager,
	left, right Operator,
	blockSize int,
	tempFile string,
	leftKey, rightKey func(Tuple) K,
	buildLeft func(Tuple) L,
) *BlockNestedLoopJoin[K, L] {
	return &BlockNestedLoopJoin[K, L]{
		bm: bm, left: left, right: right,
		blockSize: blockSize, tempFile: tempFile,
		leftKey: leftKey, rightKey: rightKey, buildLeft: buildLeft,
	}
}

func (j *BlockNestedLoopJoin[K, L]) Open() error {
	if j.blockSize < 1 {
		return fmt.Errorf("exec: blockSize must be >= 1, got %d", j.blockSize)
	}
	if err := j.left.Open(); err != nil {
		return err
	}
	if err := j.right.Open(); err != nil {
		return err
	}
	if _, err := j.bm.RegisterFile(j.tempFile); err != nil {
		return err
	}
	j.blockPages = nil
	j.blockHash = make(map[K][]position)
	j.probeList = nil
	j.probeIdx = 0
	j.buildDone = false
	j.outCount = 0
	return nil
}

// Next drives the build/probe/restart state machine in a loop rather than
// by tail-recursing: a director-filtered right side that never matches a
// given left block would otherwise recurse once per block rebuild, O(left
// row count / blockSize) deep, which has no place in this engine's
// single-threaded, no-suspension execution model.
func (j *BlockNestedLoopJoin[K, L]) Next() (Tuple, bool, error) {
	for {
		if !j.buildDone {
			if err := j.buildNextBlock(); err != nil {
				return nil, false, err
			}
			if len(j.blockPages) == 0 {
				return nil, false, nil
			}
			j.buildDone = true
		}

		if j.probeIdx < len(j.probeList) {
			pos := j.probeList[j.probeIdx]
			j.probeIdx++
			t, err := j.makeJoinedTuple(pos, j.lastRight)
			return t, err == nil, err
		}

		for {
			rt, ok, err := j.right.Next()
			if err != nil {
				return nil, false, err
			}
			if !ok {
				break
			}
			j.lastRight = rt
			if list, found := j.blockHash[j.rightKey(rt)]; found {
				j.probeList = list
				j.probeIdx = 1
				t, err := j.makeJoinedTuple(list[0], rt)
				return t, err == nil, err
			}
		}

		if err := j.right.Close(); err != nil {
			return nil, false, err
		}
		if err := j.right.Open(); err != nil {
			return nil, false, err
		}
		for _, pid := range j.blockPages {
			j.bm.UnpinPage(pid, j.tempFile)
		}
		j.blockPages = nil
		j.blockHash = make(map[K][]position)
		j.buildDone = false
	}
}

// buildNextBlock unpins the previous block's pages, then pulls left tuples
// into fresh pages of tempFile until blockSize pages have been used or the
// left side is exhausted.
func (j *BlockNestedLoopJoin[K, L]) buildNextBlock() error {
	for _, pid := range j.blockPages {
		j.bm.UnpinPage(pid, j.tempFile)
	}
	j.blockPages = j.blockPages[:0]
	j.blockHash = make(map[K][]position)

	var cur *page.Page[L]
	for len(j.blockPages) < j.blockSize {
		t, ok, err := j.left.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if cur == nil || cur.IsFull() {
			p, err := buffer.CreatePage[L](j.bm, j.tempFile)
			if err != nil {
				return err
			}
			cur = p
			j.blockPages = append(j.blockPages, p.PageID())
		}
		row := j.buildLeft(t)
		slotID := cur.InsertRow(row)
		if slotID == -1 {
			return fmt.Errorf("exec: row rejected by a freshly created page of %s", j.tempFile)
		}
		key := j.leftKey(t)
		j.blockHash[key] = append(j.blockHash[key], position{pageID: cur.PageID(), slotID: slotID})
	}
	return nil
}

func (j *BlockNestedLoopJoin[K, L]) makeJoinedTuple(pos position, right Tuple) (Tuple, error) {
	p, err := buffer.GetPage[L](j.bm, pos.pageID, j.tempFile)
	if err != nil {
		return nil, err
	}
	row, ok := p.GetRow(pos.slotID)
	j.bm.UnpinPage(pos.pageID, j.tempFile)
	if !ok {
		return nil, fmt.Errorf("exec: join block %s lost slot %d of page %d", j.tempFile, pos.slotID, pos.pageID)
	}
	out := make(Tuple, 0, len(row.ToTuple())+len(right))
	out = append(out, row.ToTuple()...)
	out = append(out, right...)
	j.outCount++
	return out, nil
}

// Out returns the number of tuples emitted so far.
func (j *BlockNestedLoopJoin[K, L]) Out() int { return j.outCount }

func (j *BlockNestedLoopJoin[K, L]) Close() error {
	if err := j.left.Close(); err != nil {
		return err
	}
	if err := j.right.Close(); err != nil {
		return err
	}
	for _, pid := range j.blockPages {
		j.bm.UnpinPage(pid, j.tempFile)
	}
	j.blockPages = nil
	j.blockHash = nil
	j.probeList = nil
	j.probeIdx = 0
	if err := os.Remove(j.tempFile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
