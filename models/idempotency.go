package models

import "time"

// IdempotencyRecord remembers the first response to a mutating request made
// with an Idempotency-Key header.
type IdempotencyRecord struct {
	Key          string    `bson:"key" json:"key"`
	Method       string    `bson:"method" json:"method"`
	Path         string    `bson:"path" json:"path"`
	UserID       string    `bson:"userid" json:"userid"`
	RequestHash  string    `bson:"request_hash" json:"request_hash"`
	StatusCode   int       `bson:"status_code,omitempty" json:"status_code,omitempty"`
	ResponseBody []byte    `bson:"response_body,omitempty" json:"response_body,omitempty"`
	Completed    bool      `bson:"completed" json:"completed"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	ExpiresAt    time.Time `bson:"expires_at" json:"expires_at"`
}
