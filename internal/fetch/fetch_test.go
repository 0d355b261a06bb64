package fetch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/sourcefake"
	"sales-dashboard/internal/types"
)

func ids(recs []types.RawRecord) []any {
	out := make([]any, 0, len(recs))
	for _, r := range recs {
		out = append(out, r["id"])
	}
	return out
}

func TestFetchDedupKeepsFirstOccurrence(t *testing.T) {
	src := sourcefake.New()
	src.Pages = [][]types.RawRecord{
		{{"id": "41"}, {"id": "42", "total": "first"}},
		{{"id": "42", "total": "second"}},
	}

	res := New(src).Fetch(context.Background(), Query{PageSize: 2, MaxPages: 5})

	require.NoError(t, res.Err)
	assert.False(t, res.Partial)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 1, res.Duplicates)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "first", res.Records[1]["total"])
}

func TestFetchStopsOnShortPage(t *testing.T) {
	src := sourcefake.New()
	src.Pages = [][]types.RawRecord{
		{{"id": "1"}, {"id": "2"}},
		{{"id": "3"}},
		{{"id": "4"}},
	}

	res := New(src).Fetch(context.Background(), Query{PageSize: 2, MaxPages: 10})

	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, []any{"1", "2", "3"}, ids(res.Records))
	assert.Len(t, src.Calls(), 2)
}

func TestFetchHonoursPageCeiling(t *testing.T) {
	src := sourcefake.New()
	src.Pages = [][]types.RawRecord{
		{{"id": "1"}},
		{{"id": "2"}},
		{{"id": "3"}},
	}

	res := New(src).Fetch(context.Background(), Query{PageSize: 1, MaxPages: 2})

	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, []any{"1", "2"}, ids(res.Records))
}

func TestFetchPartialOnError(t *testing.T) {
	src := sourcefake.New()
	src.Pages = [][]types.RawRecord{
		{{"id": "1"}, {"id": "2"}},
		{{"id": "3"}, {"id": "4"}},
		{{"id": "5"}},
	}
	src.FailPages = map[int]bool{2: true}

	res := New(src).Fetch(context.Background(), Query{PageSize: 2, MaxPages: 5})

	assert.True(t, res.Partial)
	assert.ErrorIs(t, res.Err, sourcefake.ErrUpstream)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, []any{"1", "2"}, ids(res.Records))
}

func TestFetchInterrupted(t *testing.T) {
	src := sourcefake.New()
	src.Pages = [][]types.RawRecord{{{"id": "1"}}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := New(src).Fetch(ctx, Query{PageSize: 1, MaxPages: 3})
	assert.True(t, res.Partial)
	assert.True(t, res.Interrupted())
	assert.Empty(t, res.Records)

	src.FailPages = map[int]bool{1: true}
	src.FailErr = context.DeadlineExceeded
	res = New(src).Fetch(context.Background(), Query{PageSize: 1, MaxPages: 3})
	assert.True(t, res.Interrupted())

	src.FailErr = errors.New("HTTP 500")
	res = New(src).Fetch(context.Background(), Query{PageSize: 1, MaxPages: 3})
	assert.True(t, res.Partial)
	assert.False(t, res.Interrupted(), "upstream failures are not interruptions")
}

func TestFetchPassesQuery(t *testing.T) {
	src := sourcefake.New()
	r := types.DateRange{}

	New(src).Fetch(context.Background(), Query{Range: r, Status: "9", PageSize: 50, MaxPages: 4})

	calls := src.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "9", calls[0].Status)
	assert.Equal(t, 1, calls[0].Page)
	assert.Equal(t, 50, calls[0].PageSize)
}

func TestDedup(t *testing.T) {
	recs := []types.RawRecord{
		{"id": "1"},
		{"numero": "7"},
		{"obs": "no key"},
		{"id": "1"},
		{"numero": "7"},
	}

	out, dups, dropped := Dedup(recs)

	assert.Len(t, out, 2)
	assert.Equal(t, 2, dups)
	assert.Equal(t, 1, dropped)
}
