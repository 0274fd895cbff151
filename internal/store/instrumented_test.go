package store_test

import (
	"context"
	"testing"
	"time"

	"donorslot/internal/domain"
	"donorslot/internal/store"
	"donorslot/internal/store/memory"
)

type recordedOp struct {
	backend string
	op      string
	err     error
}

type recordingObserver struct {
	ops []recordedOp
}

func (r *recordingObserver) ObserveStoreOp(backend, op string, d time.Duration, err error) {
	r.ops = append(r.ops, recordedOp{backend: backend, op: op, err: err})
}

func TestInstrumented_ReportsOperations(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	inner := memory.New()
	b := store.NewInstrumented(inner, "memory", obs)

	a := domain.Appointment{
		DonorID:  "d1",
		CenterID: "c1",
		Date:     time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		Time:     "09:00",
	}
	if _, err := b.InsertIfAbsent(ctx, a); err != nil {
		t.Fatalf("InsertIfAbsent error: %v", err)
	}
	if _, err := b.InsertIfAbsent(ctx, a); err == nil {
		t.Fatalf("expected conflict on second insert")
	}

	if len(obs.ops) != 2 {
		t.Fatalf("ops = %d, want 2", len(obs.ops))
	}
	if obs.ops[0].op != "insert_if_absent" || obs.ops[0].backend != "memory" || obs.ops[0].err != nil {
		t.Fatalf("unexpected first op: %+v", obs.ops[0])
	}
	if !store.IsConflict(obs.ops[1].err) {
		t.Fatalf("second op err = %v, want slot conflict", obs.ops[1].err)
	}
}
