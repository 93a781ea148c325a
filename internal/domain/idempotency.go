package domain

import (
	"encoding/json"
	"time"
)

// IdempotencyRecord stores the outcome of a fully processed callback
// key. Write-once: replays of the same key return the stored response
// verbatim and never re-run the domain action.
type IdempotencyRecord struct {
	Key          string
	RequestPath  string
	ResponseBody json.RawMessage
	ResponseCode int
	CreatedAt    time.Time
}
