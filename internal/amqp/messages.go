package amqp

import (
	"encoding/json"
	"time"
)

// ImportEventMessage announces a completed statement import. It carries only
// identifiers and counts; consumers fetch full rows from the database.
type ImportEventMessage struct {
	Event     string    `json:"event"`
	AccountID int64     `json:"account_id"`
	Source    string    `json:"source"`
	Inserted  int       `json:"inserted"`
	Skipped   int       `json:"skipped"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	EventBatchCommitted   = "batch_committed"
	EventStatementFetched = "statement_fetched"
)

// NewBatchCommittedMessage builds the event published after a batch of
// candidate rows is committed to an account.
func NewBatchCommittedMessage(accountID int64, source string, inserted, skipped int) *ImportEventMessage {
	return &ImportEventMessage{
		Event:     EventBatchCommitted,
		AccountID: accountID,
		Source:    source,
		Inserted:  inserted,
		Skipped:   skipped,
		Timestamp: time.Now(),
	}
}

// NewStatementFetchedMessage builds the event published when the worker pulls
// a new statement attachment from the mailbox.
func NewStatementFetchedMessage(accountID int64, source string) *ImportEventMessage {
	return &ImportEventMessage{
		Event:     EventStatementFetched,
		AccountID: accountID,
		Source:    source,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ImportEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ImportEventMessageFromJSON creates a message from JSON bytes
func ImportEventMessageFromJSON(data []byte) (*ImportEventMessage, error) {
	var msg ImportEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
