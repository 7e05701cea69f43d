// Package items implements the promotional item lifecycle: capability-gated
// CRUD, date-range validation and image artifact bookkeeping.
package items

import (
	"math"
	"strings"
	"time"
)

// Item represents a promotional offer.
type Item struct {
	ID        int64     `json:"id"`
	Image     string    `json:"image"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Note      string    `json:"note"`
	CreatedBy int64     `json:"createdBy"`
	UpdatedBy *int64    `json:"updatedBy,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DurationDays returns the offer length in days, rounded up.
func (i Item) DurationDays() int {
	d := i.EndDate.Sub(i.StartDate)
	if d < 0 {
		d = -d
	}
	return int(math.Ceil(d.Hours() / 24))
}

// IsExpired reports whether the offer has ended relative to now.
func (i Item) IsExpired(now time.Time) bool {
	return i.EndDate.Before(now)
}

// HasInlineImage reports whether the image is an inline data URI rather than
// a stored artifact key. Inline images need no blob cleanup.
func (i Item) HasInlineImage() bool {
	return strings.HasPrefix(i.Image, "data:")
}

// Orphan is a stored image artifact queued for deferred deletion after its
// direct cleanup failed or its record was replaced.
type Orphan struct {
	ID         int64
	StorageKey string
	CreatedAt  time.Time
}
