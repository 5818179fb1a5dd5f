package repository

import (
	"fmt"
	"sync"
	"testing"

	"github.com/vibast-solutions/ms-go-website/app/entity"
)

func TestRecordStoreEvictsOldest(t *testing.T) {
	t.Parallel()

	store := NewRecordStore(0)
	if store.Capacity() != 100 {
		t.Fatalf("expected default capacity 100, got %d", store.Capacity())
	}

	for i := 0; i < 105; i++ {
		store.Append(entity.EmailRecord{MessageID: fmt.Sprintf("m-%d", i), Status: entity.EmailStatusSent})
	}

	records := store.List()
	if len(records) != 100 || store.Len() != 100 {
		t.Fatalf("expected 100 records, got %d", len(records))
	}
	if records[0].MessageID != "m-5" || records[99].MessageID != "m-104" {
		t.Fatalf("unexpected order: first=%s last=%s", records[0].MessageID, records[99].MessageID)
	}
}

func TestRecordStoreListIsCopy(t *testing.T) {
	t.Parallel()

	store := NewRecordStore(2)
	store.Append(entity.EmailRecord{MessageID: "a"})

	records := store.List()
	records[0].MessageID = "changed"
	if store.List()[0].MessageID != "a" {
		t.Fatalf("List must return a copy")
	}
}

func TestRecordStoreStats(t *testing.T) {
	t.Parallel()

	store := NewRecordStore(10)
	store.Append(entity.EmailRecord{Status: entity.EmailStatusSent})
	store.Append(entity.EmailRecord{Status: entity.EmailStatusFailed})
	store.Append(entity.EmailRecord{Status: entity.EmailStatusSent})

	stats := store.Stats()
	if stats.Sent != 2 || stats.Failed != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestRecordStoreConcurrentAppend(t *testing.T) {
	t.Parallel()

	store := NewRecordStore(50)
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.Append(entity.EmailRecord{MessageID: fmt.Sprintf("m-%d", i)})
		}(i)
	}
	wg.Wait()

	if store.Len() != 50 {
		t.Fatalf("expected 50 records, got %d", store.Len())
	}
}
