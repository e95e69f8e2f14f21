// Package buffer implements minidb's fixed-frame buffer pool manager: a
// shared array of Size-byte frames backing every heap file and B+Tree file
// the engine opens, with pin counting and least-recently-used eviction.
//
// The pool is deliberately single-threaded (no locking): minidb runs one
// query at a time on one goroutine, so frame bookkeeping needs no mutex,
// matching the engine's single-threaded execution model.
package buffer

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/simonwaldherr/minidb/internal/page"
)

// pageKey identifies a page uniquely across every file registered with the
// pool.
type pageKey struct {
	file string
	pid  int
}

// frame is one slot in the buffer pool's fixed-size frame array.
type frame struct {
	data     [page.Size]byte
	file     string
	pid      int
	pinCount int
	dirty    bool
	inUse    bool
	prev     int // LRU list links; -1 means "no neighbor"
	next     int
}

// fileHandle tracks one open heap/tree file registered with the pool.
type fileHandle struct {
	f          *os.File
	nextPageID int
}

// Manager is the fixed-frame buffer pool. Zero value is not usable; build
// one with New.
type Manager struct {
	frames    []frame
	freeList  []int
	pageTable map[pageKey]int
	files     map[string]*fileHandle

	lruHead int // least-recently-used unpinned frame
	lruTail int // most-recently-used unpinned frame

	ioReads  int64
	ioWrites int64
}

// New creates a buffer pool with numFrames fixed frames. numFrames must be
// at least 1.
func New(numFrames int) *Manager {
	if numFrames < 1 {
		panic("buffer: numFrames must be at least 1")
	}
	m := &Manager{
		frames:    make([]frame, numFrames),
		pageTable: make(map[pageKey]int),
		files:     make(map[string]*fileHandle),
		lruHead:   -1,
		lruTail:   -1,
	}
	m.freeList = make([]int, numFrames)
	for i := range m.freeList {
		m.freeList[i] = numFrames - 1 - i
		m.frames[i].prev = -1
		m.frames[i].next = -1
	}
	return m
}

// IOCount returns the total number of page reads plus page writes the pool
// has performed since creation. Used to report the I/O cost of a query, per
// the engine's run_query summary line.
func (m *Manager) IOCount() int64 { return m.ioReads + m.ioWrites }

// RegisterFile opens filePath, creating it if it does not already exist,
// and returns whether the file already existed.
func (m *Manager) RegisterFile(filePath string) (existed bool, err error) {
	if _, ok := m.files[filePath]; ok {
		return true, nil
	}
	_, statErr := os.Stat(filePath)
	existed = statErr == nil

	f, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return false, fmt.Errorf("buffer: register %s: %w", filePath, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return false, fmt.Errorf("buffer: stat %s: %w", filePath, err)
	}
	m.files[filePath] = &fileHandle{f: f, nextPageID: int(info.Size() / page.Size)}
	return existed, nil
}

// GetPage fetches page pid of filePath into a frame, pinning it, and returns
// a Page[R] view over that frame's buffer. filePath must already be
// registered.
func GetPage[R page.Record[R]](m *Manager, pid int, filePath string) (*page.Page[R], error) {
	key := pageKey{filePath, pid}
	if fi, ok := m.pageTable[key]; ok {
		m.pin(fi)
		return page.Wrap[R](pid, m.frames[fi].data[:]), nil
	}

	fh, ok := m.files[filePath]
	if !ok {
		return nil, fmt.Errorf("buffer: file %s not registered", filePath)
	}

	fi, err := m.allocFrame()
	if err != nil {
		return nil, err
	}
	fr := &m.frames[fi]
	for i := range fr.data {
		fr.data[i] = 0
	}
	n, err := fh.f.ReadAt(fr.data[:], int64(pid)*page.Size)
	if err != nil && err != io.EOF && !(n > 0 && err == io.ErrUnexpectedEOF) {
		m.freeList = append(m.freeList, fi)
		return nil, fmt.Errorf("buffer: read %s page %d: %w", filePath, pid, err)
	}
	m.ioReads++

	fr.file = filePath
	fr.pid = pid
	fr.pinCount = 0
	fr.dirty = false
	fr.inUse = true
	m.pageTable[key] = fi
	m.pin(fi)
	return page.Wrap[R](pid, fr.data[:]), nil
}

// CreatePage allocates a new page at the end of filePath, pins it, and
// returns a zero-filled Page[R] view over it.
func CreatePage[R page.Record[R]](m *Manager, filePath string) (*page.Page[R], error) {
	fh, ok := m.files[filePath]
	if !ok {
		return nil, fmt.Errorf("buffer: file %s not registered", filePath)
	}
	pid := fh.nextPageID
	fh.nextPageID++

	fi, err := m.allocFrame()
	if err != nil {
		return nil, err
	}
	fr := &m.frames[fi]
	for i := range fr.data {
		fr.data[i] = 0
	}
	fr.file = filePath
	fr.pid = pid
	fr.pinCount = 0
	fr.dirty = false
	fr.inUse = true
	m.pageTable[pageKey{filePath, pid}] = fi
	m.pin(fi)
	return page.Init[R](pid, fr.data[:]), nil
}

// MarkDirty flags the frame holding (filePath, pid) so it is written back
// to disk before it is next evicted or forced.
func (m *Manager) MarkDirty(pid int, filePath string) {
	if fi, ok := m.pageTable[pageKey{filePath, pid}]; ok {
		m.frames[fi].dirty = true
	}
}

// UnpinPage decrements the pin count of (filePath, pid). Once a page's pin
// count reaches zero, it becomes eligible for eviction and moves to the
// most-recently-used end of the LRU list.
func (m *Manager) UnpinPage(pid int, filePath string) {
	fi, ok := m.pageTable[pageKey{filePath, pid}]
	if !ok {
		return
	}
	fr := &m.frames[fi]
	if fr.pinCount == 0 {
		log.Printf("buffer: unpin called on already-unpinned page %d of %s", pid, filePath)
		return
	}
	fr.pinCount--
	if fr.pinCount == 0 {
		m.lruPushBack(fi)
	}
}

// Force writes back every unpinned dirty frame. A frame that is still
// pinned is reported and left in place: the pool never writes back a page
// still in use by its caller.
func (m *Manager) Force() error {
	for i := range m.frames {
		fr := &m.frames[i]
		if !fr.inUse || !fr.dirty {
			continue
		}
		if fr.pinCount > 0 {
			log.Printf("buffer: force skipping pinned dirty page %d of %s", fr.pid, fr.file)
			continue
		}
		if err := m.writeBack(i); err != nil {
			return err
		}
	}
	return nil
}

// Close forces all dirty frames and closes every registered file.
func (m *Manager) Close() error {
	if err := m.Force(); err != nil {
		return err
	}
	for path, fh := range m.files {
		if err := fh.f.Close(); err != nil {
			return fmt.Errorf("buffer: close %s: %w", path, err)
		}
	}
	return nil
}

// pin increments a frame's pin count, removing it from the LRU list if this
// is its first pin.
func (m *Manager) pin(fi int) {
	fr := &m.frames[fi]
	if fr.pinCount == 0 {
		m.lruRemove(fi)
	}
	fr.pinCount++
}

// allocFrame returns a frame index ready to be overwritten, taking an
// unused frame if one is free, otherwise evicting the least-recently-used
// unpinned frame.
func (m *Manager) allocFrame() (int, error) {
	if n := len(m.freeList); n > 0 {
		fi := m.freeList[n-1]
		m.freeList = m.freeList[:n-1]
		return fi, nil
	}
	return m.evictLRU()
}

// evictLRU writes back (if dirty) and reclaims the frame at the front of
// the LRU list — the least-recently-used unpinned frame.
func (m *Manager) evictLRU() (int, error) {
	if m.lruHead == -1 {
		return -1, fmt.Errorf("buffer: pool exhausted, all %d frames pinned", len(m.frames))
	}
	fi := m.lruHead
	fr := &m.frames[fi]
	if fr.dirty {
		if err := m.writeBack(fi); err != nil {
			return -1, err
		}
	}
	m.lruRemove(fi)
	delete(m.pageTable, pageKey{fr.file, fr.pid})
	fr.inUse = false
	return fi, nil
}

// writeBack flushes a single dirty frame to its backing file.
func (m *Manager) writeBack(fi int) error {
	fr := &m.frames[fi]
	fh, ok := m.files[fr.file]
	if !ok {
		return fmt.Errorf("buffer: write back %s page %d: file not registered", fr.file, fr.pid)
	}
	if _, err := fh.f.WriteAt(fr.data[:], int64(fr.pid)*page.Size); err != nil {
		return fmt.Errorf("buffer: write back %s page %d: %w", fr.file, fr.pid, err)
	}
	m.ioWrites++
	fr.dirty = false
	return nil
}

// lruPushBack inserts frame fi at the most-recently-used end of the LRU
// list.
func (m *Manager) lruPushBack(fi int) {
	fr := &m.frames[fi]
	fr.prev = m.lruTail
	fr.next = -1
	if m.lruTail != -1 {
		m.frames[m.lruTail].next = fi
	} else {
		m.lruHead = fi
	}
	m.lruTail = fi
}

// lruRemove unlinks frame fi from the LRU list, if present in it.
func (m *Manager) lruRemove(fi int) {
	fr := &m.frames[fi]
	if fr.prev != -1 {
		m.frames[fr.prev].next = fr.next
	} else if m.lruHead == fi {
		m.lruHead = fr.next
	}
	if fr.next != -1 {
		m.frames[fr.next].prev = fr.prev
	} else if m.lruTail == fi {
		m.lruTail = fr.prev
	}
	fr.prev, fr.next = -1, -1
}
