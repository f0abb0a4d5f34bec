package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"esign-backend/internal/queue"
)

type stubProcessor struct {
	fail map[string]bool
	seen []string
}

func (s *stubProcessor) Process(ctx context.Context, msg queue.Message) error {
	s.seen = append(s.seen, msg.RecipientID)
	if s.fail[msg.RecipientID] {
		return errors.New("send failed")
	}
	return nil
}

func record(t *testing.T, id, recipientID string) events.SQSMessage {
	t.Helper()
	body, err := queue.EncodeMessage(queue.Message{Kind: queue.KindInvitation, DocumentID: "doc-1", RecipientID: recipientID, Version: queue.MessageVersion})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return events.SQSMessage{MessageId: id, Body: string(body)}
}

func TestProcessBatchContinuesPastFailures(t *testing.T) {
	p := &stubProcessor{fail: map[string]bool{"rec-2": true}}
	records := []events.SQSMessage{
		record(t, "m1", "rec-1"),
		{MessageId: "m-bad", Body: "{"},
		record(t, "m2", "rec-2"),
		record(t, "m3", "rec-3"),
	}

	delivered := processBatch(context.Background(), p, records)

	if delivered != 2 {
		t.Fatalf("expected 2 delivered, got %d", delivered)
	}
	if len(p.seen) != 3 {
		t.Fatalf("expected 3 processed, got %v", p.seen)
	}
}
