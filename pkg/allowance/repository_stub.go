package allowance

import (
	"context"
	"slices"
	"sync"
)

// RepositoryStub is an in-memory Repository. Set Err to make every call fail with it.
type RepositoryStub struct {
	mu      sync.Mutex
	records []WeeklyRecord
	Err     error
}

func NewRepositoryStub(records ...WeeklyRecord) *RepositoryStub {
	return &RepositoryStub{records: slices.Clone(records)}
}

func (s *RepositoryStub) QueryRecords(ctx context.Context, owner string) ([]WeeklyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	result := make([]WeeklyRecord, 0)
	for _, r := range s.records {
		if r.Owner == owner {
			result = append(result, r)
		}
	}
	return result, nil
}

func (s *RepositoryStub) AppendRecord(ctx context.Context, record WeeklyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.records = append(s.records, record)
	return nil
}

// All returns every stored record across owners.
func (s *RepositoryStub) All() []WeeklyRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.records)
}
