package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is created pending, atomically with its hold's conversion, and
// finalized to completed or failed by the payment callback.
type Order struct {
	ID            string
	HoldID        string
	Status        OrderStatus
	TotalPrice    float64
	TransactionID *string
	CreatedAt     time.Time
}
