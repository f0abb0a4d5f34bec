package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"esign-backend/internal/queue"
)

type fakeSQS struct {
	deleted   []string
	deleteErr error
	calls     *[]string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	if f.calls != nil {
		*f.calls = append(*f.calls, "delete")
	}
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeProcessor struct {
	err       error
	processed []queue.Message
	calls     *[]string
}

func (f *fakeProcessor) Process(ctx context.Context, msg queue.Message) error {
	if f.calls != nil {
		*f.calls = append(*f.calls, "process")
	}
	f.processed = append(f.processed, msg)
	return f.err
}

func validMessage(t *testing.T, id, receipt string) sqstypes.Message {
	t.Helper()
	body, err := queue.EncodeMessage(queue.Message{
		Kind:        queue.KindSigned,
		DocumentID:  "doc-1",
		RecipientID: "rec-1",
		RequestID:   "req-1",
		Version:     queue.MessageVersion,
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return sqstypes.Message{
		MessageId:     aws.String(id),
		ReceiptHandle: aws.String(receipt),
		Body:          aws.String(string(body)),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}
}

func TestWorkerDeletesBeforeDelivering(t *testing.T) {
	var calls []string
	client := &fakeSQS{calls: &calls}
	proc := &fakeProcessor{calls: &calls}

	handleMessage(context.Background(), client, "queue", proc, validMessage(t, "m1", "r1"))

	if len(calls) != 2 || calls[0] != "delete" || calls[1] != "process" {
		t.Fatalf("expected delete then process, got %v", calls)
	}
	if proc.processed[0].RecipientID != "rec-1" {
		t.Fatalf("unexpected message %+v", proc.processed[0])
	}
}

func TestWorkerDoesNotRedeliverOnFailure(t *testing.T) {
	client := &fakeSQS{}
	proc := &fakeProcessor{err: errors.New("smtp down")}

	handleMessage(context.Background(), client, "queue", proc, validMessage(t, "m2", "r2"))

	if len(client.deleted) != 1 {
		t.Fatalf("expected message deleted even on failure, got %d", len(client.deleted))
	}
}

func TestWorkerSkipsDeliveryWhenDeleteFails(t *testing.T) {
	client := &fakeSQS{deleteErr: errors.New("throttled")}
	proc := &fakeProcessor{}

	handleMessage(context.Background(), client, "queue", proc, validMessage(t, "m3", "r3"))

	if len(proc.processed) != 0 {
		t.Fatalf("expected no delivery, got %d", len(proc.processed))
	}
}

func TestWorkerDiscardsInvalidMessages(t *testing.T) {
	for name, body := range map[string]string{
		"empty":        "",
		"bad json":     "{bad-json",
		"unknown kind": `{"kind":"reminder","documentId":"doc-1","recipientId":"rec-1","version":1}`,
	} {
		t.Run(name, func(t *testing.T) {
			client := &fakeSQS{}
			proc := &fakeProcessor{}
			msg := sqstypes.Message{
				MessageId:     aws.String("m4"),
				ReceiptHandle: aws.String("r4"),
				Body:          aws.String(body),
			}

			handleMessage(context.Background(), client, "queue", proc, msg)

			if len(client.deleted) != 1 {
				t.Fatalf("expected delete, got %d", len(client.deleted))
			}
			if len(proc.processed) != 0 {
				t.Fatalf("expected no processing, got %d", len(proc.processed))
			}
		})
	}
}
