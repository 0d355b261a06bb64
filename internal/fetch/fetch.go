// Package fetch paginates the order source and deduplicates the result.
package fetch

import (
	"context"
	"errors"

	"sales-dashboard/internal/interfaces"
	"sales-dashboard/internal/logger"
	"sales-dashboard/internal/metrics"
	"sales-dashboard/internal/normalize"
	"sales-dashboard/internal/types"
)

// Query selects one paginated listing
type Query struct {
	Range    types.DateRange
	Status   string
	PageSize int
	MaxPages int
}

// Result is the merged, deduplicated listing.
// When Partial is set, Err holds the error that stopped pagination and
// Records holds everything fetched before it.
type Result struct {
	Records    []types.RawRecord
	Pages      int
	Duplicates int
	Dropped    int
	Partial    bool
	Err        error
}

// Interrupted reports a listing cut short by a cancelled or expired
// context rather than by the upstream. Such a result must not be cached.
func (r Result) Interrupted() bool {
	return r.Partial && (errors.Is(r.Err, context.Canceled) || errors.Is(r.Err, context.DeadlineExceeded))
}

type Fetcher struct {
	source interfaces.OrderSource
}

func New(source interfaces.OrderSource) *Fetcher {
	return &Fetcher{source: source}
}

// Fetch walks pages from 1 until a short page or the page ceiling
func (f *Fetcher) Fetch(ctx context.Context, q Query) Result {
	if q.PageSize <= 0 {
		q.PageSize = 100
	}
	if q.MaxPages <= 0 {
		q.MaxPages = 1
	}

	timer := logger.StartOperation(ctx, "fetch.pages",
		"range", q.Range.String(), "status", q.Status,
		"page_size", q.PageSize, "max_pages", q.MaxPages)

	var (
		all []types.RawRecord
		res Result
	)
	for page := 1; page <= q.MaxPages; page++ {
		recs, err := f.source.ListOrders(timer.Context(), q.Range, q.Status, page, q.PageSize)
		if err != nil {
			res.Partial = true
			res.Err = err
			logger.Warn(ctx, "Pagination stopped by upstream error",
				"page", page, "records_so_far", len(all), "error", err.Error())
			break
		}
		res.Pages++
		all = append(all, recs...)
		if len(recs) < q.PageSize {
			break
		}
	}

	res.Records, res.Duplicates, res.Dropped = Dedup(all)

	metrics.RecordPages(res.Pages)
	metrics.RecordDuplicates(res.Duplicates)
	if res.Partial {
		metrics.RecordPartialFetch()
	}

	fields := []any{"records", len(res.Records), "pages", res.Pages,
		"duplicates", res.Duplicates, "dropped", res.Dropped}
	if res.Partial {
		timer.EndWithError(res.Err, fields...)
		return res
	}
	timer.End(fields...)
	return res
}

// Dedup keeps the first occurrence of every record key. Records with no key
// are dropped.
func Dedup(recs []types.RawRecord) (out []types.RawRecord, duplicates, dropped int) {
	seen := make(map[string]struct{}, len(recs))
	out = make([]types.RawRecord, 0, len(recs))
	for _, rec := range recs {
		key, ok := normalize.RecordKey(rec)
		if !ok {
			dropped++
			continue
		}
		if _, dup := seen[key]; dup {
			duplicates++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}
	return out, duplicates, dropped
}
