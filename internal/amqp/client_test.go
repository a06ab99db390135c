package amqp

import (
	"context"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

func TestNewBatchCommittedMessage(t *testing.T) {
	msg := NewBatchCommittedMessage(7, "pdf", 12, 3)

	if msg.Event != EventBatchCommitted {
		t.Errorf("event = %q, want %q", msg.Event, EventBatchCommitted)
	}
	if msg.AccountID != 7 {
		t.Errorf("account id = %d, want 7", msg.AccountID)
	}
	if msg.Inserted != 12 || msg.Skipped != 3 {
		t.Errorf("counts = %d/%d, want 12/3", msg.Inserted, msg.Skipped)
	}
	if msg.Timestamp.IsZero() {
		t.Error("timestamp should be set")
	}
}

func TestImportEventMessageJSON(t *testing.T) {
	msg := NewStatementFetchedMessage(3, "gmail")

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	decoded, err := ImportEventMessageFromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if decoded.Event != EventStatementFetched {
		t.Errorf("event = %q, want %q", decoded.Event, EventStatementFetched)
	}
	if decoded.AccountID != 3 {
		t.Errorf("account id = %d, want 3", decoded.AccountID)
	}
	if decoded.Source != "gmail" {
		t.Errorf("source = %q, want %q", decoded.Source, "gmail")
	}
}

func TestImportEventMessageInvalidJSON(t *testing.T) {
	if _, err := ImportEventMessageFromJSON([]byte("{not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestDrainImportEventsDispatchesDeliveries(t *testing.T) {
	good, err := NewBatchCommittedMessage(7, "pdf", 2, 1).ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	msgs := make(chan amqp091.Delivery, 3)
	msgs <- amqp091.Delivery{Body: []byte("{not json")}
	msgs <- amqp091.Delivery{Body: good}
	close(msgs)

	var handled []*ImportEventMessage
	err = drainImportEvents(context.Background(), msgs, func(msg *ImportEventMessage) error {
		handled = append(handled, msg)
		return nil
	})
	if err == nil {
		t.Fatal("expected error when delivery channel closes")
	}

	if len(handled) != 1 {
		t.Fatalf("handled %d messages, want 1", len(handled))
	}
	if handled[0].Event != EventBatchCommitted || handled[0].AccountID != 7 {
		t.Errorf("handled = %+v, want batch_committed for account 7", handled[0])
	}
}

func TestDrainImportEventsStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msgs := make(chan amqp091.Delivery)
	done := make(chan error, 1)
	go func() {
		done <- drainImportEvents(ctx, msgs, func(*ImportEventMessage) error { return nil })
	}()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("drain did not stop on cancelled context")
	}
}
