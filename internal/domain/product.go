package domain

// Product carries the authoritative available-to-reserve stock counter.
// Stock only moves inside a transaction that also records the hold
// state change, so quantity is never created or destroyed.
type Product struct {
	ID          string
	Name        string
	SKU         string
	Description string
	Price       float64
	Stock       int
}
