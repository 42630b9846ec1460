package checkin

import (
	"context"
	"sort"
	"sync"
	"time"

	"kidgate/pkg/domain"
	"kidgate/pkg/platform/sentinel"
)

// InMemoryStore keeps development and tests lightweight. One mutex is enough:
// contention in this domain is a handful of leader stations, and it gives the
// same per-record serialization the Postgres store gets from compare-and-set.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[domain.CheckInID]CheckIn
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[domain.CheckInID]CheckIn)}
}

func (s *InMemoryStore) Create(ctx context.Context, record CheckIn) error {
	if err := ctx.Err(); err != nil {
		return sentinel.ErrUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.records {
		if !existing.Live() {
			continue
		}
		if existing.ChildID == record.ChildID {
			return ErrChildActive
		}
		if existing.SecurityCode == record.SecurityCode {
			return ErrCodeTaken
		}
	}
	s.records[record.ID] = clone(record)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id domain.CheckInID) (CheckIn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return CheckIn{}, sentinel.ErrNotFound
	}
	return clone(record), nil
}

func (s *InMemoryStore) Transition(_ context.Context, id domain.CheckInID, action Action, now time.Time) (CheckIn, Status, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return CheckIn{}, "", false, sentinel.ErrNotFound
	}
	prev := record.Status
	next, changed, err := Next(prev, action)
	if err != nil {
		return CheckIn{}, prev, false, err
	}
	if !changed {
		return clone(record), prev, false, nil
	}
	record.Status = next
	if next == StatusCompleted {
		t := now.UTC()
		record.CheckoutTime = &t
	}
	s.records[id] = record
	return clone(record), prev, true, nil
}

func (s *InMemoryStore) AppendPhoto(_ context.Context, id domain.CheckInID, photoRef string) (CheckIn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return CheckIn{}, sentinel.ErrNotFound
	}
	if !record.Live() {
		return CheckIn{}, sentinel.ErrInvalidState
	}
	record.Photos = append(append([]string{}, record.Photos...), photoRef)
	s.records[id] = record
	return clone(record), nil
}

func (s *InMemoryStore) ListLiveByResponsible(_ context.Context, responsibleID domain.AdultID, limit int) ([]CheckIn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []CheckIn
	for _, r := range s.records {
		if r.Live() && r.ResponsibleID == responsibleID {
			out = append(out, clone(r))
		}
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) ListLive(_ context.Context) ([]CheckIn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []CheckIn
	for _, r := range s.records {
		if r.Live() {
			out = append(out, clone(r))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemoryStore) ListAlerts(_ context.Context) ([]CheckIn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []CheckIn
	for _, r := range s.records {
		if r.Status == StatusAlert {
			out = append(out, clone(r))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemoryStore) Health(context.Context) error { return nil }

func sortNewestFirst(records []CheckIn) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].CheckinTime.After(records[j].CheckinTime)
	})
}

// clone detaches the photos slice so readers never share backing arrays with
// the stored record.
func clone(r CheckIn) CheckIn {
	r.Photos = append([]string{}, r.Photos...)
	return r
}
