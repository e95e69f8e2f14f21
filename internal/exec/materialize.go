package exec

import (
	"os"

	"github.com/simonwaldherr/minidb/internal/buffer"
)

// Materialize drains its child exactly once, on the first Next call,
// packing its output as fixed-width R rows into tempFile; every Next call
// after that (including across this call) is served by scanning tempFile.
// Paying the child's cost once is strictly dominant when the materialized
// side will be rescanned many times, as the outer loop of a
// BlockNestedLoopJoin does.
type Materialize[R Row[R]] struct {
	child    Operator
	bm       *buffer.Manager
	tempFile string
	build    func(Tuple) R

	materialized bool
	scan         *Scan[R]
}

func NewMaterialize[R Row[R]](child Operator, bm *buffer.Manager, tempFile string, build func(Tuple) R) *Materialize[R] {
	return &Materialize[R]{child: child, bm: bm, tempFile: tempFile, build: build}
}

func (m *Materialize[R]) Open() error {
	m.materialized = false
	m.scan = nil
	return m.child.Open()
}

func (m *Materialize[R]) Next() (Tuple, bool, error) {
	if !m.materialized {
		if err := m.drain(); err != nil {
			return nil, false, err
		}
		m.materialized = true
		m.scan = NewScan[R](m.bm, m.tempFile, 0)
		if err := m.scan.Open(); err != nil {
			return nil, false, err
		}
	}
	return m.scan.Next()
}

func (m *Materialize[R]) drain() error {
	if _, err := m.bm.RegisterFile(m.tempFile); err != nil {
		return err
	}
	p, err := buffer.CreatePage[R](m.bm, m.tempFile)
	if err != nil {
		return err
	}
	pid := p.PageID()

	for {
		t, ok, err := m.child.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if p.IsFull() {
			m.bm.MarkDirty(pid, m.tempFile)
			m.bm.UnpinPage(pid, m.tempFile)
			p, err = buffer.CreatePage[R](m.bm, m.tempFile)
			if err != nil {
				return err
			}
			pid = p.PageID()
		}
		p.InsertRow(m.build(t))
	}
	m.bm.MarkDirty(pid, m.tempFile)
	m.bm.UnpinPage(pid, m.tempFile)
	return nil
}

func (m *Materialize[R]) Close() error {
	if m.scan != nil {
		if err := m.scan.Close(); err != nil {
			return err
		}
		m.scan = nil
		if err := os.Remove(m.tempFile); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return m.child.Close()
}
