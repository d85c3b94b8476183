package strcore

import "testing"

func withDebugEnabled(t *testing.T, fn func()) {
	old := debugEnabled
	debugEnabled = true
	defer func() { debugEnabled = old }()
	fn()
}

func TestVerifyDetectsCorruption(t *testing.T) {
	withDebugEnabled(t, func() {
		s := New()
		s.Set("hello")
		s.Verify() // should not panic

		s.data[0] = 'H' // mutate without going through trackMutate
		defer func() {
			if r := recover(); r == nil {
				t.Errorf("Verify() did not panic on corrupted buffer")
			}
		}()
		s.Verify()
	})
}

func TestDeleteDetectsDoubleFree(t *testing.T) {
	withDebugEnabled(t, func() {
		s := New()
		s.Set("x")
		s.Delete()

		defer func() {
			if r := recover(); r == nil {
				t.Errorf("Delete() did not panic on double free")
			}
		}()
		s.Delete()
	})
}

func TestDeleteNoopWhenDebugDisabled(t *testing.T) {
	old := debugEnabled
	debugEnabled = false
	defer func() { debugEnabled = old }()

	s := New()
	s.Set("x")
	s.Delete()
	s.Delete() // must not panic; tracking is off
}

func TestFreeListEvictsOldestPastCap(t *testing.T) {
	withDebugEnabled(t, func() {
		trackerMu.Lock()
		freeList = freeList[:0]
		trackerMu.Unlock()

		for i := 0; i < freeListCap+10; i++ {
			s := New()
			s.Set("x")
			s.Delete()
		}

		trackerMu.Lock()
		size := len(freeList)
		trackerMu.Unlock()
		if size > freeListCap {
			t.Errorf("freeList grew past cap: got %d, want <= %d", size, freeListCap)
		}
	})
}
