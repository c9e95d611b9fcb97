package arq

import "time"

// timerSet holds cancellable retransmission timers keyed by logical frame
// index. It is guarded by the engine mutex. A firing timer calls fire
// with its generation; the engine discards the call unless the generation
// is still current, so a timer cancelled after it started firing has no
// effect.
type timerSet struct {
	fire   func(key, gen uint64)
	gen    uint64
	active map[uint64]timerTask
}

type timerTask struct {
	t   *time.Timer
	gen uint64
}

func newTimerSet(fire func(key, gen uint64)) *timerSet {
	return &timerSet{fire: fire, active: make(map[uint64]timerTask)}
}

func (s *timerSet) schedule(key uint64, d time.Duration) {
	s.cancel(key)
	s.gen++
	gen := s.gen
	s.active[key] = timerTask{
		gen: gen,
		t:   time.AfterFunc(d, func() { s.fire(key, gen) }),
	}
}

func (s *timerSet) cancel(key uint64) {
	if task, ok := s.active[key]; ok {
		task.t.Stop()
		delete(s.active, key)
	}
}

func (s *timerSet) pending(key uint64) bool {
	_, ok := s.active[key]
	return ok
}

// claim reports whether (key, gen) is the live timer and retires it.
func (s *timerSet) claim(key, gen uint64) bool {
	task, ok := s.active[key]
	if !ok || task.gen != gen {
		return false
	}
	delete(s.active, key)
	return true
}

func (s *timerSet) stopAll() {
	for key, task := range s.active {
		task.t.Stop()
		delete(s.active, key)
	}
}

func (s *timerSet) count() int { return len(s.active) }
