package audit

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/silli-ai/reasoner/pkg/models"
)

func tempCfg(t *testing.T) models.AuditConfig {
	t.Helper()
	return models.AuditConfig{
		Enabled:       true,
		DBPath:        filepath.Join(t.TempDir(), "audit_test.db"),
		RetentionDays: 30,
		MaxBodySize:   1024,
	}
}

func mustNew(t *testing.T, cfg models.AuditConfig) *Logger {
	t.Helper()
	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func sampleEntry() models.AuditEntry {
	hash, prefix := HashFamilyID("family-42")
	return models.AuditEntry{
		RequestID:    "req-001",
		FamilyHash:   hash,
		FamilyPrefix: prefix,
		Dyad:         "tantrum",
		Model:        "llama3.2:3b",
		CacheStatus:  "MISS",
		Status:       "ok",
		RequestBody:  `{"dyad":"tantrum"}`,
		ResponseBody: `{"tips":[]}`,
		LatencyMs:    150,
		CreatedAt:    time.Now(),
	}
}

func TestLogAndQuery(t *testing.T) {
	l := mustNew(t, tempCfg(t))
	ctx := context.Background()

	if err := l.Log(ctx, sampleEntry()); err != nil {
		t.Fatalf("Log: %v", err)
	}

	entries, err := l.Query(ctx, models.AuditQueryOpts{Dyad: "tantrum"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].RequestID != "req-001" {
		t.Errorf("expected req-001, got %s", entries[0].RequestID)
	}
	if entries[0].CacheStatus != "MISS" {
		t.Errorf("expected MISS, got %s", entries[0].CacheStatus)
	}
}

func TestQueryFilters(t *testing.T) {
	l := mustNew(t, tempCfg(t))
	ctx := context.Background()

	a := sampleEntry()
	b := sampleEntry()
	b.RequestID = "req-002"
	b.Dyad = "night"
	b.CacheStatus = "HIT"
	_ = l.Log(ctx, a)
	_ = l.Log(ctx, b)

	entries, err := l.Query(ctx, models.AuditQueryOpts{CacheStatus: "HIT"})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].RequestID != "req-002" {
		t.Errorf("unexpected filter result: %+v", entries)
	}

	entries, err = l.Query(ctx, models.AuditQueryOpts{RequestID: "req-001"})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Dyad != "tantrum" {
		t.Errorf("unexpected request-id result: %+v", entries)
	}
}

func TestBodyTruncation(t *testing.T) {
	cfg := tempCfg(t)
	cfg.MaxBodySize = 16
	l := mustNew(t, cfg)
	ctx := context.Background()

	e := sampleEntry()
	e.ResponseBody = strings.Repeat("y", 100)
	if err := l.Log(ctx, e); err != nil {
		t.Fatal(err)
	}

	entries, _ := l.Query(ctx, models.AuditQueryOpts{})
	if len(entries[0].ResponseBody) != 16 {
		t.Errorf("expected body capped at 16 bytes, got %d", len(entries[0].ResponseBody))
	}
}

func TestStats(t *testing.T) {
	l := mustNew(t, tempCfg(t))
	ctx := context.Background()

	a := sampleEntry()
	b := sampleEntry()
	b.RequestID = "req-002"
	_ = l.Log(ctx, a)
	_ = l.Log(ctx, b)

	stats, err := l.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 1 || stats[0].Dyad != "tantrum" || stats[0].Count != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestCleanup(t *testing.T) {
	l := mustNew(t, tempCfg(t))
	ctx := context.Background()

	old := sampleEntry()
	old.CreatedAt = time.Now().AddDate(0, 0, -90)
	_ = l.Log(ctx, old)

	fresh := sampleEntry()
	fresh.RequestID = "req-002"
	_ = l.Log(ctx, fresh)

	deleted, err := l.Cleanup(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted row, got %d", deleted)
	}
}

func TestHashFamilyID(t *testing.T) {
	h1, p1 := HashFamilyID("family-42")
	h2, _ := HashFamilyID("family-42")
	h3, _ := HashFamilyID("family-43")

	if h1 != h2 {
		t.Error("hash must be deterministic")
	}
	if h1 == h3 {
		t.Error("different IDs must hash differently")
	}
	if p1 != "family-4" {
		t.Errorf("unexpected prefix: %s", p1)
	}
	if strings.Contains(h1, "family") {
		t.Error("hash leaks the raw ID")
	}
}
