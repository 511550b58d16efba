package memory

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hamed0406/flvexporter/internal/domain"
)

// StatusStore is a concurrent map from stream name to its latest state.
// Each entry is an atomic pointer so a reader always sees a complete
// (status, latency) pair without taking a lock.
type StatusStore struct {
	m sync.Map // string -> *atomic.Pointer[domain.StreamState]
}

func NewStatusStore() *StatusStore {
	return &StatusStore{}
}

func (s *StatusStore) Register(name string) bool {
	p := new(atomic.Pointer[domain.StreamState])
	p.Store(&domain.StreamState{Status: domain.StatusDown})
	_, loaded := s.m.LoadOrStore(name, p)
	return !loaded
}

// Write stores the verdict, registering name first if needed. A failed check
// never keeps a latency.
func (s *StatusStore) Write(name string, healthy bool, latencyMS float64) {
	st := &domain.StreamState{Status: domain.StatusDown, CheckedAt: time.Now().UTC()}
	if healthy {
		st.Status = domain.StatusUp
		st.ResponseTimeMS = latencyMS
	}
	if v, ok := s.m.Load(name); ok {
		v.(*atomic.Pointer[domain.StreamState]).Store(st)
		return
	}
	p := new(atomic.Pointer[domain.StreamState])
	p.Store(st)
	if v, loaded := s.m.LoadOrStore(name, p); loaded {
		v.(*atomic.Pointer[domain.StreamState]).Store(st)
	}
}

func (s *StatusStore) Read(name string) (domain.StreamState, bool) {
	v, ok := s.m.Load(name)
	if !ok {
		return domain.StreamState{}, false
	}
	return *v.(*atomic.Pointer[domain.StreamState]).Load(), true
}

func (s *StatusStore) Snapshot() map[string]domain.StreamState {
	out := make(map[string]domain.StreamState)
	s.m.Range(func(k, v any) bool {
		out[k.(string)] = *v.(*atomic.Pointer[domain.StreamState]).Load()
		return true
	})
	return out
}
