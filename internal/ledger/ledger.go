// Package ledger keeps a history of runs, the artifacts they produced and the
// publications they triggered, in a sqlite file or postgres database. History
// is advisory: recording failures are logged and never fail the run.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"quantforge/internal/gguf"
	"quantforge/internal/runner"
)

// Ledger records the history of a single run. A nil *Ledger is valid and
// records nothing, so callers never branch on whether history is enabled.
type Ledger struct {
	db  *gorm.DB
	run uuid.UUID
}

// Open connects to the run-history database and applies pending migrations.
// dsn is a postgres:// URL or a sqlite file path.
func Open(dsn string) (*Ledger, error) {
	db, err := gorm.Open(dialector(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connecting to ledger database: %w", err)
	}
	if err := GetMigrator(db).Migrate(); err != nil {
		return nil, fmt.Errorf("migrating ledger database: %w", err)
	}
	return &Ledger{db: db}, nil
}

func dialector(dsn string) gorm.Dialector {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return postgres.Open(dsn)
	}
	return sqlite.Open(dsn)
}

// BeginRun opens this ledger's run record. Later record calls attach to the
// run started here.
func (l *Ledger) BeginRun(ctx context.Context, layout gguf.Layout, quants []gguf.Level) {
	if l == nil {
		return
	}
	l.run = uuid.New()

	tags := make([]string, len(quants))
	for i, q := range quants {
		tags[i] = q.Tag()
	}
	quantsJSON, err := json.Marshal(tags)
	if err != nil {
		slog.Error("error encoding quant list", "run_id", l.run, "error", err)
	}

	run := Run{
		Id:        l.run,
		ModelId:   layout.ModelID,
		ModelName: layout.Name,
		Precision: layout.Precision.String(),
		Quants:    quantsJSON,
		Status:    RunRunning,
		StartTime: time.Now().UTC(),
	}
	if err := l.db.WithContext(ctx).Create(&run).Error; err != nil {
		slog.Error("error recording run start", "run_id", l.run, "error", err)
	}
}

// FinishRun closes the run record with its final status: completed, cancelled
// or failed.
func (l *Ledger) FinishRun(ctx context.Context, runErr error) {
	if l == nil {
		return
	}
	updates := map[string]any{
		"status":          runStatus(runErr),
		"completion_time": time.Now().UTC(),
	}
	if runErr != nil {
		updates["error"] = runErr.Error()
	}
	if err := l.db.WithContext(ctx).Model(&Run{Id: l.run}).Updates(updates).Error; err != nil {
		slog.Error("error recording run completion", "run_id", l.run, "error", err)
	}
}

func runStatus(err error) string {
	switch {
	case err == nil:
		return RunCompleted
	case runner.IsCancelled(err):
		return RunCancelled
	default:
		return RunFailed
	}
}

// BeginArtifact records that quantization to one level has started.
func (l *Ledger) BeginArtifact(ctx context.Context, quant gguf.Level, path string) {
	if l == nil {
		return
	}
	artifact := Artifact{
		RunId:     l.run,
		Quant:     quant.Tag(),
		Path:      path,
		Status:    JobRunning,
		StartTime: time.Now().UTC(),
	}
	if err := l.db.WithContext(ctx).Create(&artifact).Error; err != nil {
		slog.Error("error recording artifact start", "run_id", l.run, "quant", quant.Tag(), "error", err)
	}
}

// FinishArtifact closes an artifact record, capturing the file size when the
// artifact landed.
func (l *Ledger) FinishArtifact(ctx context.Context, quant gguf.Level, path string, jobErr error) {
	if l == nil {
		return
	}
	updates := map[string]any{
		"status":          JobCompleted,
		"completion_time": time.Now().UTC(),
	}
	if jobErr != nil {
		updates["status"] = JobFailed
	} else if info, err := os.Stat(path); err == nil {
		updates["size_bytes"] = info.Size()
	}
	if err := l.db.WithContext(ctx).Model(&Artifact{RunId: l.run, Quant: quant.Tag()}).Updates(updates).Error; err != nil {
		slog.Error("error recording artifact completion", "run_id", l.run, "quant", quant.Tag(), "error", err)
	}
}

// RecordPublication appends one publication run's outcome. It is called from
// the publication worker's goroutine.
func (l *Ledger) RecordPublication(target string, start time.Time, pubErr error) {
	if l == nil {
		return
	}
	pub := Publication{
		Id:             uuid.New(),
		RunId:          l.run,
		Target:         target,
		Status:         JobCompleted,
		StartTime:      start,
		CompletionTime: sql.NullTime{Time: time.Now().UTC(), Valid: true},
	}
	if pubErr != nil {
		pub.Status = JobFailed
		pub.Error = sql.NullString{String: pubErr.Error(), Valid: true}
	}
	if err := l.db.Create(&pub).Error; err != nil {
		slog.Error("error recording publication", "run_id", l.run, "target", target, "error", err)
	}
}
