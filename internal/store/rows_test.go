package store

import (
	"context"
	"testing"

	"cyclemap/internal/market"
)

func TestUpsert_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRowStore()

	first := market.MonthRecord{MonthKey: "2024-01", Open: 40000, Close: 45000, Source: market.SourceSeed}
	second := market.MonthRecord{MonthKey: "2024-01", Open: 40000, Close: 50000, Source: market.SourceBinanceLive}
	if err := s.Upsert(ctx, first); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Upsert(ctx, second); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	rows, err := s.Values(ctx)
	if err != nil {
		t.Fatalf("values: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0] != second {
		t.Errorf("expected last write to win, got %+v", rows[0])
	}
}

func TestUpsert_EmptyKeyRejected(t *testing.T) {
	s := NewMemoryRowStore()
	if err := s.Upsert(context.Background(), market.MonthRecord{Open: 1, Close: 2}); err == nil {
		t.Fatal("expected error for empty month key")
	}
}

func TestValues_SortedAscending(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRowStore()
	for _, key := range []string{"2023-12", "2011-01", "2024-04", "2016-06"} {
		if err := s.Upsert(ctx, market.MonthRecord{MonthKey: key, Open: 1, Close: 2}); err != nil {
			t.Fatalf("upsert %s: %v", key, err)
		}
	}
	rows, err := s.Values(ctx)
	if err != nil {
		t.Fatalf("values: %v", err)
	}
	want := []string{"2011-01", "2016-06", "2023-12", "2024-04"}
	for i, key := range want {
		if rows[i].MonthKey != key {
			t.Errorf("rows[%d] = %s, want %s", i, rows[i].MonthKey, key)
		}
	}
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRowStore()
	_ = s.Upsert(ctx, market.MonthRecord{MonthKey: "2024-01", Open: 40000, Close: 45000})

	row, ok, err := s.Get(ctx, "2024-01")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if row.Close != 45000 {
		t.Errorf("close = %v, want 45000", row.Close)
	}
	if _, ok, _ := s.Get(ctx, "1999-01"); ok {
		t.Error("expected miss for absent key")
	}
}
