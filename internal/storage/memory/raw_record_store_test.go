package memory

import (
	"context"
	"errors"
	"testing"

	"agrimarket/internal/domain"
	"agrimarket/internal/storage"
)

func TestRawRecordStore_FetchSampleKeepsMostRecent(t *testing.T) {
	store := NewRawRecordStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec := domain.RawRecord{"item": domain.String("Onion"), "seq": domain.Number(float64(i))}
		if err := store.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	sample, err := store.FetchSample(ctx, 3)
	if err != nil {
		t.Fatalf("FetchSample failed: %v", err)
	}
	if len(sample) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(sample))
	}
	for i, rec := range sample {
		seq, _ := rec.Get("seq").Float()
		if int(seq) != i+2 {
			t.Errorf("sample[%d] seq = %v, want %d", i, seq, i+2)
		}
	}
}

func TestRawRecordStore_InsertBulkRejectsEmpty(t *testing.T) {
	store := NewRawRecordStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []domain.RawRecord{{"item": domain.String("A")}, {}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}

	sample, _ := store.FetchSample(ctx, 10)
	if len(sample) != 0 {
		t.Errorf("Expected failed batch to insert nothing, got %d", len(sample))
	}
}

func TestRawRecordStore_FetchSampleCancelled(t *testing.T) {
	store := NewRawRecordStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.FetchSample(ctx, 10); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRawRecordStore_InvalidLimit(t *testing.T) {
	store := NewRawRecordStore()
	if _, err := store.FetchSample(context.Background(), 0); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
