package domain

import "time"

// AnonymousUser is recorded when a request carries no resolved session.
const AnonymousUser = "ANONYMOUS"

// Audit is an immutable record of a completed request.
type Audit struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Endpoint  string    `json:"endpoint"`
	Method    string    `json:"method"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}
