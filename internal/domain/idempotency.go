package domain

import (
	"encoding/json"
	"time"
)

// DefaultIdempotencyTTLHours is how long a cached response is replayed before
// the key is treated as absent again.
const DefaultIdempotencyTTLHours = 24

// IdempotencyRecord caches the first successful response produced under a
// client-supplied key. Replays within the TTL return ResponseData and
// StatusCode verbatim without re-executing the handler. Only 2xx responses
// are ever stored, so a failed attempt can be retried under the same key.
type IdempotencyRecord struct {
	Key          string          `json:"key"`
	RequestPath  string          `json:"request_path"`
	RequestBody  json.RawMessage `json:"request_body"`
	ResponseData json.RawMessage `json:"response_data"`
	StatusCode   int             `json:"status_code"`
	CreatedAt    time.Time       `json:"created_at"`
	ExpiresAt    time.Time       `json:"expires_at"`
}

// IsExpired reports whether the record's TTL has elapsed; expired records are
// treated as absent and may be overwritten by a fresh execution.
func (r *IdempotencyRecord) IsExpired() bool {
	return time.Now().UTC().After(r.ExpiresAt)
}

// IdempotencyCheck is the result of looking up a key before executing a
// handler.
type IdempotencyCheck struct {
	IsDuplicate  bool
	ResponseData json.RawMessage
	StatusCode   int
}
