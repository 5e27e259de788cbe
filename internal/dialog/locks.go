package dialog

import "sync"

// familyLocks serializes whole read-modify-write sequences per family. The
// stores guard each individual call, but an execute step reads an
// aggregate, mutates it in process, and writes it back; two concurrent
// messages of one family would lose updates in that window without this.
type familyLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newFamilyLocks() *familyLocks {
	return &familyLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the family's mutex and returns its release function.
func (f *familyLocks) Lock(familyID string) func() {
	f.mu.Lock()
	l, ok := f.locks[familyID]
	if !ok {
		l = &sync.Mutex{}
		f.locks[familyID] = l
	}
	f.mu.Unlock()

	l.Lock()
	return l.Unlock
}
