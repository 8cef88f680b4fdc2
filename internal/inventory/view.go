package inventory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/erazemk/zaloga/internal/model"
)

// Snapshot is the renderable state of a list view.
type Snapshot struct {
	Kind     model.Kind
	Items    []model.Item
	LowStock []model.Item
	Err      error
	Loading  bool
	IsAdmin  bool
}

// View is the server-side state of one mounted list. Each open dashboard
// tab or event stream owns its own View.
type View struct {
	svc     *Service
	kind    model.Kind
	isAdmin bool

	mu        sync.Mutex
	items     []model.Item
	err       error
	loading   bool
	gen       uint64
	unmounted bool
	listeners []func(Snapshot)

	cancel  context.CancelFunc
	release func()
	kick    chan struct{}
	done    chan struct{}
}

// NewView creates a view of kind. Call Mount to start it.
func NewView(svc *Service, kind model.Kind, isAdmin bool) *View {
	return &View{
		svc:     svc,
		kind:    kind,
		isAdmin: isAdmin,
		loading: true,
	}
}

// Mount loads the list and subscribes to changes. Every change event
// triggers a full reload. Mount may be called once.
func (v *View) Mount(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	v.kick = make(chan struct{}, 1)
	v.done = make(chan struct{})

	release, err := v.svc.Subscribe(ctx, v.kind, v.trigger)
	if err != nil {
		cancel()
		close(v.done)
		return err
	}

	v.mu.Lock()
	v.cancel = cancel
	v.release = release
	v.mu.Unlock()

	go v.loop(ctx)
	v.Refresh(ctx)
	return nil
}

// Unmount releases the subscription and discards any in-flight refresh.
// Later refreshes no longer update the view or call listeners.
func (v *View) Unmount() {
	v.mu.Lock()
	cancel, release := v.cancel, v.release
	v.cancel, v.release = nil, nil
	v.gen++
	v.unmounted = true
	v.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	release()
	<-v.done
}

// OnRefresh registers fn to be called with the new state after each refresh.
func (v *View) OnRefresh(fn func(Snapshot)) {
	v.mu.Lock()
	v.listeners = append(v.listeners, fn)
	v.mu.Unlock()
}

// Refresh reloads the list. A load failure leaves the list empty and sets
// the snapshot's Err. Results that arrive after Unmount are dropped.
func (v *View) Refresh(ctx context.Context) {
	v.mu.Lock()
	v.gen++
	gen := v.gen
	v.mu.Unlock()

	items, err := v.svc.List(ctx, v.kind)
	if err != nil {
		slog.Error("failed to refresh list", "kind", v.kind, "error", err)
		items = nil
	}

	v.mu.Lock()
	if v.unmounted || gen != v.gen || ctx.Err() != nil {
		v.mu.Unlock()
		return
	}
	v.items = items
	v.err = err
	v.loading = false
	snap := v.snapshotLocked()
	listeners := append([]func(Snapshot){}, v.listeners...)
	v.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

// Snapshot returns the current state.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

func (v *View) snapshotLocked() Snapshot {
	items := append([]model.Item(nil), v.items...)
	return Snapshot{
		Kind:     v.kind,
		Items:    items,
		LowStock: v.svc.LowStock(items),
		Err:      v.err,
		Loading:  v.loading,
		IsAdmin:  v.isAdmin,
	}
}

// trigger schedules a refresh, coalescing bursts of events.
func (v *View) trigger() {
	select {
	case v.kick <- struct{}{}:
	default:
	}
}

func (v *View) loop(ctx context.Context) {
	defer close(v.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-v.kick:
			v.Refresh(ctx)
		}
	}
}
