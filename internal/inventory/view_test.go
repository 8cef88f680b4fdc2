package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/zaloga/internal/model"
)

func waitRefresh(t *testing.T, ch <-chan Snapshot, want int) Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-ch:
			if len(snap.Items) == want {
				return snap
			}
		case <-deadline:
			t.Fatalf("timed out waiting for a refresh with %d items", want)
			return Snapshot{}
		}
	}
}

func TestViewMountLoads(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Create(adminCtx(), model.Item{Kind: model.KindPart, Name: "Bearing", SerialNumber: "SN-1", Quantity: 0}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	v := NewView(svc, model.KindPart, false)
	if !v.Snapshot().Loading {
		t.Error("expected view to be loading before mount")
	}

	if err := v.Mount(context.Background()); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	defer v.Unmount()

	snap := v.Snapshot()
	if snap.Loading {
		t.Error("expected loading to clear after mount")
	}
	if snap.Err != nil {
		t.Errorf("unexpected error: %v", snap.Err)
	}
	if len(snap.Items) != 1 || len(snap.LowStock) != 1 {
		t.Errorf("expected 1 item and 1 low stock, got %d and %d", len(snap.Items), len(snap.LowStock))
	}
	if snap.IsAdmin {
		t.Error("expected non-admin view")
	}
}

func TestTwoViewsRefreshOnInsert(t *testing.T) {
	svc, hub := newTestService(t)
	ctx := context.Background()

	a := NewView(svc, model.KindMachine, true)
	b := NewView(svc, model.KindMachine, false)

	aCh := make(chan Snapshot, 10)
	bCh := make(chan Snapshot, 10)
	a.OnRefresh(func(s Snapshot) { aCh <- s })
	b.OnRefresh(func(s Snapshot) { bCh <- s })

	if err := a.Mount(ctx); err != nil {
		t.Fatalf("Mount a: %v", err)
	}
	if err := b.Mount(ctx); err != nil {
		t.Fatalf("Mount b: %v", err)
	}

	if _, err := svc.Create(adminCtx(), model.Item{Kind: model.KindMachine, Name: "Lathe", SerialNumber: "M-1", Quantity: 4}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	waitRefresh(t, aCh, 1)
	snap := waitRefresh(t, bCh, 1)
	if snap.Items[0].Name != "Lathe" {
		t.Errorf("expected Lathe, got %q", snap.Items[0].Name)
	}

	a.Unmount()
	b.Unmount()
	b.Unmount()

	if n := hub.Subscribers(model.KindMachine.Table()); n != 0 {
		t.Errorf("expected subscriptions released, got %d", n)
	}
}

func TestViewLoadFailure(t *testing.T) {
	svc, _ := newTestService(t)
	svc.db.Close()

	v := NewView(svc, model.KindPart, true)
	v.Refresh(context.Background())

	snap := v.Snapshot()
	if snap.Err == nil {
		t.Fatal("expected load error")
	}
	if len(snap.Items) != 0 || snap.Loading {
		t.Errorf("expected empty, loaded list; got %d items, loading=%v", len(snap.Items), snap.Loading)
	}
}

func TestViewDropsRefreshAfterUnmount(t *testing.T) {
	svc, _ := newTestService(t)

	v := NewView(svc, model.KindPart, true)
	if err := v.Mount(context.Background()); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	before := v.Snapshot()
	v.Unmount()

	called := false
	v.OnRefresh(func(Snapshot) { called = true })

	if _, err := svc.Create(adminCtx(), model.Item{Kind: model.KindPart, Name: "Bearing", SerialNumber: "SN-1", Quantity: 2}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	v.Refresh(context.Background())
	if called {
		t.Error("listener called after Unmount")
	}
	if got := v.Snapshot(); len(got.Items) != len(before.Items) {
		t.Errorf("items after Unmount = %d, want %d", len(got.Items), len(before.Items))
	}

	// Unmount stays idempotent.
	v.Unmount()
}
