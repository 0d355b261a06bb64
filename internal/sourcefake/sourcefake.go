// Package sourcefake is an in-memory OrderSource for tests.
package sourcefake

import (
	"context"
	"errors"
	"sync"

	"sales-dashboard/internal/interfaces"
	"sales-dashboard/internal/normalize"
	"sales-dashboard/internal/types"
)

// ErrUpstream is returned by pages listed in FailPages
var ErrUpstream = errors.New("sourcefake: upstream failure")

// Call is one recorded ListOrders call
type Call struct {
	Range    types.DateRange
	Status   string
	Page     int
	PageSize int
}

// Source serves Records in the given order, filtered by emission date when
// the query range is bounded. Pages, when set, are served verbatim instead.
type Source struct {
	mu sync.Mutex

	Records []types.RawRecord
	// Pages overrides Records with fixed pages, indexed from page 1
	Pages   [][]types.RawRecord
	Details map[string]types.RawRecord
	// FailPages makes the listed page numbers fail with FailErr, or
	// ErrUpstream when FailErr is nil
	FailPages map[int]bool
	FailErr   error

	calls       []Call
	detailCalls []string
}

var _ interfaces.OrderSource = (*Source)(nil)

func New(records ...types.RawRecord) *Source {
	return &Source{Records: records, Details: map[string]types.RawRecord{}}
}

func (s *Source) ListOrders(ctx context.Context, r types.DateRange, status string, page, pageSize int) ([]types.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Range: r, Status: status, Page: page, PageSize: pageSize})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.FailPages[page] {
		if s.FailErr != nil {
			return nil, s.FailErr
		}
		return nil, ErrUpstream
	}

	if s.Pages != nil {
		if page < 1 || page > len(s.Pages) {
			return nil, nil
		}
		return s.Pages[page-1], nil
	}

	var matched []types.RawRecord
	for _, rec := range s.Records {
		if !inRange(rec, r) || !hasStatus(rec, status) {
			continue
		}
		matched = append(matched, rec)
	}
	if pageSize <= 0 {
		return matched, nil
	}
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (s *Source) GetOrder(ctx context.Context, id string) (types.RawRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.detailCalls = append(s.detailCalls, id)
	if ctx.Err() != nil {
		return nil, false
	}
	rec, ok := s.Details[id]
	return rec, ok
}

// SetDetail registers the detail record returned for id
func (s *Source) SetDetail(id string, rec types.RawRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Details == nil {
		s.Details = map[string]types.RawRecord{}
	}
	s.Details[id] = rec
}

// Calls returns the recorded ListOrders calls
func (s *Source) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// DetailCalls returns the ids passed to GetOrder
func (s *Source) DetailCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.detailCalls...)
}

// Reset clears the recorded calls
func (s *Source) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
	s.detailCalls = nil
}

func inRange(rec types.RawRecord, r types.DateRange) bool {
	if r.IsZero() {
		return true
	}
	raw, ok := normalize.Lookup(rec, normalize.EmissionPaths...)
	if !ok {
		return false
	}
	d, ok := normalize.ParseDate(raw, r.From.Location())
	if !ok {
		return false
	}
	return r.Contains(d)
}

func hasStatus(rec types.RawRecord, status string) bool {
	if status == "" {
		return true
	}
	got, _ := normalize.LookupString(rec, normalize.StatusPaths...)
	return got == status
}
