package domain

import "time"

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusDone      RequestStatus = "done"
	RequestStatusFailed    RequestStatus = "failed"
	RequestStatusDuplicate RequestStatus = "duplicate"
)

// Request is a chat message queued for the command dispatcher.
type Request struct {
	ID         string
	Author     string
	Channel    string
	Text       string
	Status     RequestStatus
	ReceivedAt time.Time
}
