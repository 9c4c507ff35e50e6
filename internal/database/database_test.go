package database

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/rmitchellscott/chartserver/internal/config"
	"github.com/rmitchellscott/chartserver/internal/rendering"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := RunMigrations(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	if err := RunMigrations(db); err != nil {
		t.Fatalf("second migration run: %v", err)
	}
	if !db.Migrator().HasTable(&RenderLog{}) {
		t.Fatal("render_logs table missing")
	}
	if !db.Migrator().HasIndex(&RenderLog{}, "idx_render_logs_chart_created") {
		t.Error("composite index missing")
	}
}

func TestRecordRender(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRenderLogService(db)
	t.Cleanup(svc.Close)
	ctx := context.Background()

	svc.RecordRender(ctx, rendering.RenderRecord{
		RequestID: "req-ok",
		Kind:      rendering.KindPie,
		Type:      "pie",
		Format:    rendering.FormatPNG,
		Quality:   80,
		Width:     600,
		Height:    400,
		Bytes:     1234,
		Duration:  15 * time.Millisecond,
	})
	svc.RecordRender(ctx, rendering.RenderRecord{
		RequestID: "req-bad",
		Kind:      rendering.KindBar,
		Type:      "donut",
		Format:    rendering.FormatSVG,
		Duration:  time.Millisecond,
		Err: &rendering.Error{
			Kind:     rendering.ErrChartBuild,
			Category: "bar_chart",
			Message:  "series_list is required",
			Status:   400,
		},
	})

	logs, err := svc.Recent(ctx, 10, false)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("got %d logs, want 2", len(logs))
	}

	failed, err := svc.Recent(ctx, 10, true)
	if err != nil {
		t.Fatalf("Recent failed only: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("got %d failed logs, want 1", len(failed))
	}
	bad := failed[0]
	if bad.RequestID != "req-bad" || bad.Chart != "bar" || bad.RequestedType != "donut" ||
		bad.ErrorKind != "chart_build" || bad.ErrorCategory != "bar_chart" {
		t.Errorf("failed entry = %+v", bad)
	}
	var meta renderMetadata
	if err := json.Unmarshal(bad.Metadata, &meta); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta.Status != 400 {
		t.Errorf("metadata status = %d, want 400", meta.Status)
	}
}

func TestGetRenderStats(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRenderLogService(db)
	t.Cleanup(svc.Close)
	ctx := context.Background()

	for i, f := range []rendering.Format{rendering.FormatPNG, rendering.FormatPNG, rendering.FormatWebP} {
		svc.RecordRender(ctx, rendering.RenderRecord{
			Kind:     rendering.KindLine,
			Format:   f,
			Bytes:    100 * (i + 1),
			Duration: time.Duration(10*(i+1)) * time.Millisecond,
		})
	}
	svc.RecordRender(ctx, rendering.RenderRecord{
		Kind:   rendering.KindTable,
		Format: rendering.FormatSVG,
		Err:    &rendering.Error{Kind: rendering.ErrChartBuild, Category: "table_chart", Message: "x", Status: 400},
	})

	stats, err := svc.Stats(ctx, time.Time{})
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalRenders != 4 || stats.FailedRenders != 1 {
		t.Errorf("totals = %d/%d, want 4/1", stats.TotalRenders, stats.FailedRenders)
	}
	if stats.TotalBytes != 600 {
		t.Errorf("TotalBytes = %d, want 600", stats.TotalBytes)
	}
	if stats.ByFormat["png"] != 2 || stats.ByFormat["webp"] != 1 || stats.ByFormat["svg"] != 1 {
		t.Errorf("ByFormat = %v", stats.ByFormat)
	}
	if stats.ByChart["line"] != 3 || stats.ByChart["table"] != 1 {
		t.Errorf("ByChart = %v", stats.ByChart)
	}
	if stats.ByErrorCategory["table_chart"] != 1 {
		t.Errorf("ByErrorCategory = %v", stats.ByErrorCategory)
	}
	if stats.AverageDurationMs != 15 {
		t.Errorf("AverageDurationMs = %v, want 15", stats.AverageDurationMs)
	}

	future, err := svc.Stats(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Stats(future): %v", err)
	}
	if future.TotalRenders != 0 || future.Since == nil {
		t.Errorf("future stats = %+v", future)
	}
}

func TestRecordRenderDoesNotWaitForDatabase(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRenderLogService(db)
	t.Cleanup(svc.Close)
	ctx := context.Background()

	// Hold the only connection so the writer cannot insert.
	tx := db.Begin()
	if tx.Error != nil {
		t.Fatal(tx.Error)
	}

	const total = renderLogQueueSize + 2*renderLogBatchSize + 100
	start := time.Now()
	for i := 0; i < total; i++ {
		svc.RecordRender(ctx, rendering.RenderRecord{Kind: rendering.KindBar, Format: rendering.FormatSVG})
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("recording %d renders took %v", total, elapsed)
	}
	if svc.Dropped() == 0 {
		t.Error("no records dropped with the queue full")
	}

	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := svc.Flush(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Flush with a blocked writer = %v, want deadline exceeded", err)
	}

	if err := tx.Rollback().Error; err != nil {
		t.Fatal(err)
	}
	if err := svc.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	var count int64
	if err := db.Model(&RenderLog{}).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != total-svc.Dropped() {
		t.Errorf("stored %d rows, want %d", count, total-svc.Dropped())
	}
}

func TestCloseDrainsQueue(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRenderLogService(db)
	for i := 0; i < 5; i++ {
		svc.RecordRender(context.Background(), rendering.RenderRecord{Kind: rendering.KindLine, Format: rendering.FormatPNG})
	}
	svc.Close()
	svc.Close()
	svc.RecordRender(context.Background(), rendering.RenderRecord{Kind: rendering.KindLine})

	var count int64
	if err := db.Model(&RenderLog{}).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 5 {
		t.Errorf("stored %d rows after Close, want 5", count)
	}
	if err := svc.Flush(context.Background()); err != nil {
		t.Errorf("Flush after Close = %v", err)
	}
}

func TestCleanupOldData(t *testing.T) {
	db := setupTestDB(t)
	old := &RenderLog{Chart: "bar", Format: "svg", Success: true, CreatedAt: time.Now().Add(-48 * time.Hour)}
	fresh := &RenderLog{Chart: "bar", Format: "svg", Success: true}
	if err := db.Create(old).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := db.Create(fresh).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	n, err := CleanupOldData(db, 24*time.Hour)
	if err != nil {
		t.Fatalf("CleanupOldData: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d rows, want 1", n)
	}
	var remaining RenderLog
	if err := db.First(&remaining, "id = ?", old.ID).Error; !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("old row still present: %v", err)
	}
}

func TestInitializeNone(t *testing.T) {
	DB = nil
	if err := Initialize(&config.DatabaseConfig{Type: "none"}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if GetDB() != nil {
		t.Error("DB should stay nil for type none")
	}
	if err := Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestOpenUnsupported(t *testing.T) {
	if _, err := Open(&config.DatabaseConfig{Type: "mysql"}); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestInitializeSQLite(t *testing.T) {
	t.Cleanup(func() {
		Close()
		DB = nil
	})
	cfg := &config.DatabaseConfig{Type: "sqlite", DataDir: t.TempDir()}
	if err := Initialize(cfg); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if GetDB() == nil {
		t.Fatal("DB not set")
	}
}
