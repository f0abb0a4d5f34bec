package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"

	"esign-backend/internal/bootstrap"
	"esign-backend/internal/documents"
	"esign-backend/internal/shared/config"
	"esign-backend/internal/shared/telemetry"
)

const defaultBatchSize = 200

type documentLister interface {
	ListIDsByStatus(ctx context.Context, status documents.Status, afterID string, limit int) ([]string, error)
}

type reconciler interface {
	Reconcile(ctx context.Context, documentID string) (bool, error)
}

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, bootstrap.RoleReconciler)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	batch := envInt("RECONCILE_BATCH_SIZE", defaultBatchSize)

	if len(os.Args) > 1 && os.Args[1] == "once" {
		runPass(ctx, app.DocumentsRepo, app.SigningService, batch)
		_ = app.Close(context.Background())
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.ReconcileSchedule, func() {
		runPass(ctx, app.DocumentsRepo, app.SigningService, batch)
	}); err != nil {
		log.Fatalf("invalid RECONCILE_SCHEDULE %q: %v", cfg.ReconcileSchedule, err)
	}
	c.Start()
	telemetry.Info("reconciler.started", map[string]any{"schedule": cfg.ReconcileSchedule, "batch": batch})

	<-ctx.Done()
	done := c.Stop()
	select {
	case <-done.Done():
	case <-time.After(30 * time.Second):
		telemetry.Warn("reconciler.shutdown_timeout", nil)
	}
	_ = app.Close(context.Background())
}

// runPass re-evaluates completion for every sent document, paging by id in
// batches. Documents that stay sent are expected; only promotions are counted
// as repairs.
func runPass(ctx context.Context, docs documentLister, svc reconciler, batch int) (checked, repaired int) {
	started := time.Now()
	if batch <= 0 {
		batch = defaultBatchSize
	}
	cursor := ""
	pages := 0
sweep:
	for {
		ids, err := docs.ListIDsByStatus(ctx, documents.StatusSent, cursor, batch)
		if err != nil {
			telemetry.Error("reconciler.list_failed", map[string]any{"error": err, "after_id": cursor})
			break
		}
		pages++
		for _, id := range ids {
			if ctx.Err() != nil {
				break sweep
			}
			checked++
			changed, err := svc.Reconcile(ctx, id)
			if err != nil {
				telemetry.Error("reconciler.document_failed", map[string]any{"document_id": id, "error": err})
				continue
			}
			if changed {
				repaired++
			}
		}
		if len(ids) < batch {
			break
		}
		cursor = ids[len(ids)-1]
	}
	telemetry.Info("reconciler.pass_completed", map[string]any{
		"checked":     checked,
		"repaired":    repaired,
		"pages":       pages,
		"duration_ms": time.Since(started).Milliseconds(),
	})
	return checked, repaired
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		return def
	}
	return val
}
