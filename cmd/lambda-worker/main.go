package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"
	_ "time/tzdata"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"esign-backend/internal/bootstrap"
	"esign-backend/internal/queue"
	"esign-backend/internal/shared/config"
	"esign-backend/internal/shared/metrics"
	"esign-backend/internal/shared/telemetry"
	"esign-backend/internal/workerproc"
)

var (
	initOnce sync.Once
	initErr  error
	proc     processor
)

type processor interface {
	Process(ctx context.Context, msg queue.Message) error
}

func initApp() {
	cfg := config.Load()
	built, err := bootstrap.Build(context.Background(), cfg, bootstrap.RoleWorker)
	if err != nil {
		initErr = err
		return
	}
	proc = built.NotifyProcessor
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": initErr})
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	processBatch(ctx, proc, event.Records)
	// Delivery failures are never reported back, so nothing is redelivered.
	return events.SQSEventResponse{}, nil
}

func processBatch(ctx context.Context, p processor, records []events.SQSMessage) (delivered int) {
	for _, record := range records {
		metrics.IncWorkerJob("received")
		fields := map[string]any{"sqs_message_id": record.MessageId}
		msg, _, err := workerproc.ParseMessage(record.Body)
		if err != nil {
			fields["error"] = err.Error()
			telemetry.Error("worker.notify.invalid_message", fields)
			metrics.IncWorkerJob("discarded")
			continue
		}
		fields["kind"] = msg.Kind
		fields["document_id"] = msg.DocumentID
		fields["recipient_id"] = msg.RecipientID
		if err := p.Process(ctx, msg); err != nil {
			fields["error"] = err.Error()
			telemetry.Error("worker.notify.failed", fields)
			metrics.IncWorkerJob("failed")
			continue
		}
		telemetry.Info("worker.notify.delivered", fields)
		metrics.IncWorkerJob("delivered")
		delivered++
	}
	return delivered
}

func main() {
	lambda.Start(handler)
}
