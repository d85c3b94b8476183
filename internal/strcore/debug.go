package strcore

import (
	"fmt"
	"hash/fnv"
	"os"
	"runtime"
	"sync"
)

// debugEnabled gates the allocation tracker; mirrors the teacher's
// BD_DEBUG env-var gate (see internal/debug) but scoped to this package so
// string-core tracking can be toggled independently.
var debugEnabled = os.Getenv("BD_DEBUG") != ""

// freeListCap bounds the retained free-list of deleted allocations used to
// detect double-free.
const freeListCap = 4000

type allocRecord struct {
	site      string
	checksum  uint64
	freed     bool
}

var (
	trackerOnce sync.Once
	trackerMu   sync.Mutex
	freeList    []*allocRecord
)

func initTracker() {
	trackerOnce.Do(func() {
		freeList = make([]*allocRecord, 0, freeListCap)
	})
}

func callSite(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", file, line)
}

func trackNew(s *String) {
	if !debugEnabled {
		return
	}
	initTracker()
	s.track = &allocRecord{site: callSite(3)}
	trackMutate(s)
}

func (s *String) allocSite() string {
	if s.track == nil {
		return "unknown (debug tracking disabled)"
	}
	return s.track.site
}

func checksum(data []byte, capacity int) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte{byte(len(data)), byte(capacity)})
	_, _ = h.Write(data)
	return h.Sum64()
}

func trackMutate(s *String) {
	if !debugEnabled || s.track == nil {
		return
	}
	s.track.checksum = checksum(s.data, s.capacity)
}

// Verify recomputes the checksum and panics if the buffer was corrupted
// since the last tracked mutation. A no-op when debug tracking is
// disabled.
func (s *String) Verify() {
	if !debugEnabled || s.track == nil {
		return
	}
	if s.track.checksum != checksum(s.data, s.capacity) {
		panic(fmt.Sprintf("string core: corruption detected (allocated at %s)", s.track.site))
	}
}

// Delete releases a dynamic string's debug tracking record, checking for
// double-free. Static and const strings do not own a record. A no-op when
// debug tracking is disabled.
func (s *String) Delete() {
	if !debugEnabled || s.track == nil {
		return
	}
	trackerMu.Lock()
	defer trackerMu.Unlock()
	if s.track.freed {
		panic(fmt.Sprintf("string core: double free (allocated at %s)", s.track.site))
	}
	s.track.freed = true
	if len(freeList) >= freeListCap {
		freeList = freeList[1:]
	}
	freeList = append(freeList, s.track)
}
