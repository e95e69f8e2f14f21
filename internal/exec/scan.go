package exec

import (
	"github.com/simonwaldherr/minidb/internal/buffer"
	"github.com/simonwaldherr/minidb/internal/page"
)

// Scan pulls rows of type R, one page at a time, out of a heap file
// starting at startPid, flattening each into a Tuple via R's ToTuple.
type Scan[R Row[R]] struct {
	bm       *buffer.Manager
	filePath string
	startPid int

	pid  int
	slot int
	cur  *page.Page[R]
}

// NewScan builds a Scan over filePath, starting at page startPid (normally
// 0).
func NewScan[R Row[R]](bm *buffer.Manager, filePath string, startPid int) *Scan[R] {
	return &Scan[R]{bm: bm, filePath: filePath, startPid: startPid}
}

func (s *Scan[R]) Open() error {
	if _, err := s.bm.RegisterFile(s.filePath); err != nil {
		return err
	}
	s.pid = s.startPid
	s.slot = 0
	p, err := buffer.GetPage[R](s.bm, s.pid, s.filePath)
	if err != nil {
		return err
	}
	s.cur = p
	s.pid++
	if p.NumRecords() == 0 {
		s.bm.UnpinPage(p.PageID(), s.filePath)
		s.cur = nil
	}
	return nil
}

func (s *Scan[R]) Next() (Tuple, bool, error) {
	if s.cur == nil {
		return nil, false, nil
	}
	row, ok := s.cur.GetRow(s.slot)
	s.slot++
	if !ok {
		s.bm.UnpinPage(s.cur.PageID(), s.filePath)
		p, err := buffer.GetPage[R](s.bm, s.pid, s.filePath)
		if err != nil {
			s.cur = nil
			return nil, false, err
		}
		s.pid++
		s.cur = p
		s.slot = 0
		if p.NumRecords() == 0 {
			s.bm.UnpinPage(p.PageID(), s.filePath)
			s.cur = nil
			return nil, false, nil
		}
		row, ok = s.cur.GetRow(s.slot)
		s.slot++
		if !ok {
			return nil, false, nil
		}
	}
	return Tuple(row.ToTuple()), true, nil
}

func (s *Scan[R]) Close() error {
	if s.cur != nil {
		s.bm.UnpinPage(s.cur.PageID(), s.filePath)
		s.cur = nil
	}
	return nil
}
