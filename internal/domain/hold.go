package domain

import "time"

type HoldStatus string

const (
	HoldStatusActive    HoldStatus = "active"
	HoldStatusReleased  HoldStatus = "released"
	HoldStatusConverted HoldStatus = "converted"
)

// Hold reserves product quantity for a limited time. The token is an
// unguessable capability proving the right to act on the hold.
// Released and converted are both terminal.
type Hold struct {
	ID          string
	ProductID   string
	Quantity    int
	Token       string
	Status      HoldStatus
	ExpiresAt   time.Time
	ReleasedAt  *time.Time
	ConvertedAt *time.Time
	CreatedAt   time.Time
}

// Active reports whether the hold can still be released or converted.
func (h Hold) Active(now time.Time) bool {
	return h.Status == HoldStatusActive && h.ExpiresAt.After(now)
}
