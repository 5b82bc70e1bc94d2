package weave

// waitEntry is a patch parked because it arrived before an atom it depends
// on. blockingID is the atom the patch is waiting to see covered by the
// weave's weft.
type waitEntry struct {
	patch      *Patch
	blockingID AtomID
}

// WaitSet holds patches that could not be applied yet because a causal
// dependency hadn't arrived. It supports two access patterns in a single
// structure: pop the oldest parked patch (FIFO, as waitset.c does with a
// flat queue), and take every patch blocked on a specific atom id at once
// (as waiting_set.c does by indexing per id). The applier's retry uses the
// second.
type WaitSet struct {
	entries []*waitEntry
	byID    map[AtomID][]*waitEntry
}

// NewWaitSet returns an empty waiting set.
func NewWaitSet() *WaitSet {
	return &WaitSet{byID: make(map[AtomID][]*waitEntry)}
}

// Add parks patch until blockingID is covered by the weave's weft.
func (s *WaitSet) Add(patch *Patch, blockingID AtomID) {
	e := &waitEntry{patch: patch, blockingID: blockingID}
	s.entries = append(s.entries, e)
	s.byID[blockingID] = append(s.byID[blockingID], e)
}

// Empty reports whether no patch is parked.
func (s *WaitSet) Empty() bool {
	return len(s.entries) == 0
}

// Pop removes and returns the oldest parked patch, or nil if none is
// parked.
func (s *WaitSet) Pop() *Patch {
	if len(s.entries) == 0 {
		return nil
	}
	e := s.entries[0]
	s.entries = s.entries[1:]
	s.removeFromIndex(e)
	return e.patch
}

// TakeAllBlockedOn removes and returns every patch waiting on id, in the
// order they were added.
func (s *WaitSet) TakeAllBlockedOn(id AtomID) []*Patch {
	blocked, ok := s.byID[id]
	if !ok {
		return nil
	}
	delete(s.byID, id)

	set := make(map[*waitEntry]bool, len(blocked))
	for _, e := range blocked {
		set[e] = true
	}
	kept := s.entries[:0]
	for _, e := range s.entries {
		if !set[e] {
			kept = append(kept, e)
		}
	}
	s.entries = kept

	patches := make([]*Patch, len(blocked))
	for i, e := range blocked {
		patches[i] = e.patch
	}
	return patches
}

func (s *WaitSet) removeFromIndex(e *waitEntry) {
	bucket := s.byID[e.blockingID]
	for i, other := range bucket {
		if other == e {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(s.byID, e.blockingID)
	} else {
		s.byID[e.blockingID] = bucket
	}
}
