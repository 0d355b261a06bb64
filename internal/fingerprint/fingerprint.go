// Package fingerprint derives freshness keys from the head record of a range.
package fingerprint

import (
	"context"

	"sales-dashboard/internal/interfaces"
	"sales-dashboard/internal/logger"
	"sales-dashboard/internal/normalize"
	"sales-dashboard/internal/types"
)

// Resolver asks the order source for the single most recent record of a
// range. A new or edited head changes the fingerprint; edits further down
// the range do not.
type Resolver struct {
	source interfaces.OrderSource
}

func New(source interfaces.OrderSource) *Resolver {
	return &Resolver{source: source}
}

// Resolve never fails: errors degrade to EmptyFingerprint
func (r *Resolver) Resolve(ctx context.Context, rng types.DateRange) types.Fingerprint {
	recs, err := r.source.ListOrders(ctx, rng, "", 1, 1)
	if err != nil {
		logger.Warn(ctx, "Fingerprint lookup failed", "range", rng.String(), "error", err.Error())
		return types.EmptyFingerprint
	}
	if len(recs) == 0 {
		return types.EmptyFingerprint
	}
	fp := Of(recs[0])
	logger.Debug(ctx, "Fingerprint resolved", "range", rng.String(), "fingerprint", fp.String())
	return fp
}

// Of builds the fingerprint of a head record
func Of(head types.RawRecord) types.Fingerprint {
	id, ok := normalize.LookupString(head, normalize.IDPaths...)
	if !ok {
		id = "0"
	}
	emitted, _ := normalize.LookupString(head, normalize.EmissionPaths...)
	return types.Fingerprint{HeadID: id, HeadEmitted: emitted}
}
