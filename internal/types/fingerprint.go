package types

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Fingerprint identifies the head record of a date range.
// Equal fingerprints mean the head is unchanged; edits to older records
// inside the range are not visible through it.
type Fingerprint struct {
	HeadID      string `json:"head_id"`
	HeadEmitted string `json:"head_emitted"`
	Empty       bool   `json:"empty"`
}

// EmptyFingerprint is returned for ranges without records or when the head
// record could not be fetched.
var EmptyFingerprint = Fingerprint{Empty: true}

func (f Fingerprint) String() string {
	if f.Empty {
		return "none"
	}
	return f.HeadID + "@" + f.HeadEmitted
}

// DateRange is an inclusive range of calendar days.
// The zero value is unbounded.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// NewDateRange truncates both bounds to their calendar day
func NewDateRange(from, to time.Time) DateRange {
	return DateRange{From: Day(from), To: Day(to)}
}

// Day strips the clock part keeping the location
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (r DateRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// Contains reports whether t falls within the range. Undated records are
// only contained by the unbounded range.
func (r DateRange) Contains(t *time.Time) bool {
	if r.IsZero() {
		return true
	}
	if t == nil {
		return false
	}
	d := Day(*t)
	from := time.Date(r.From.Year(), r.From.Month(), r.From.Day(), 0, 0, 0, 0, d.Location())
	to := time.Date(r.To.Year(), r.To.Month(), r.To.Day(), 0, 0, 0, 0, d.Location())
	return !d.Before(from) && !d.After(to)
}

func (r DateRange) FromISO() string { return r.From.Format(dateLayout) }

func (r DateRange) ToISO() string { return r.To.Format(dateLayout) }

func (r DateRange) String() string {
	return fmt.Sprintf("%s..%s", r.FromISO(), r.ToISO())
}
