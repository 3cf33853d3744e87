package bridge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/atdiar/particlebridge"

// Renderer owns the shadow trees of the mounted roots and applies batches to
// them. It is not safe for concurrent use: every call must come from the UI
// loop, which Render takes care of.
type Renderer struct {
	adapters map[int]*Adapter
	roots    map[int]*Adapter

	manager    ElementManager
	dispatcher *Dispatcher
	tracer     trace.Tracer
	log        *slog.Logger

	inBatch bool
}

// Option configures a Renderer.
type Option func(*Renderer)

func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) { r.log = l }
}

func WithElementManager(m ElementManager) Option {
	return func(r *Renderer) { r.manager = m }
}

func WithDispatcher(d *Dispatcher) Option {
	return func(r *Renderer) { r.dispatcher = d }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Renderer) { r.tracer = tp.Tracer(tracerName) }
}

func NewRenderer(options ...Option) *Renderer {
	r := &Renderer{
		adapters: make(map[int]*Adapter),
		roots:    make(map[int]*Adapter),
	}
	for _, o := range options {
		o(r)
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	if r.manager == nil {
		r.manager = DefaultElementManager{}
	}
	if r.dispatcher == nil {
		r.dispatcher = NewDispatcher(r.log)
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer(tracerName)
	}
	return r
}

// Dispatcher returns the work queue batches are marshaled onto.
func (r *Renderer) Dispatcher() *Dispatcher { return r.dispatcher }

// Mount creates the root adapter of a logical tree whose root component has
// the given id. Its top-level elements are inserted into container, which is
// owned by the host and never added or removed by the renderer.
func (r *Renderer) Mount(componentID int, container Component) *Adapter {
	root := newRootAdapter(fmt.Sprintf("root#%d", componentID), container)
	r.adapters[componentID] = root
	r.roots[componentID] = root
	r.log.Debug("mounted root", "component", componentID, "container", fmt.Sprintf("%T", container))
	return root
}

// Adapter returns the adapter registered for a component id.
func (r *Renderer) Adapter(componentID int) (*Adapter, bool) {
	a, ok := r.adapters[componentID]
	return a, ok
}

func (r *Renderer) register(componentID int, a *Adapter) {
	r.adapters[componentID] = a
}

// Render applies b on the UI loop and waits for the outcome.
func (r *Renderer) Render(ctx context.Context, b Batch) error {
	return r.dispatcher.Invoke(ctx, func(ctx context.Context) error {
		return r.UpdateDisplay(ctx, b)
	})
}

// UpdateDisplay applies a batch. Every update is applied to the adapter of
// its component, collecting pending edits; the physical adapters holding
// pending edits are then flushed from the deepest to the shallowest, and the
// adapters of disposed components are finally released.
//
// An error while applying edits aborts the batch before any mutation reaches
// the element manager.
func (r *Renderer) UpdateDisplay(ctx context.Context, b Batch) (err error) {
	if r.inBatch {
		return ErrReentrantBatch
	}
	r.inBatch = true
	defer func() { r.inBatch = false }()

	id := uuid.NewString()
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "Renderer.UpdateDisplay", trace.WithAttributes(
		attribute.String("batch.id", id),
		attribute.Int("batch.updates", len(b.Updates)),
		attribute.Int("batch.frames", len(b.Frames)),
	))
	defer func() {
		batchDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			batchesTotal.WithLabelValues("error").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			r.log.ErrorContext(ctx, "batch aborted", "batch", id, "error", err)
		} else {
			batchesTotal.WithLabelValues("ok").Inc()
		}
		span.End()
	}()

	pass := &editPass{r: r, batch: b, seen: make(map[*Adapter]struct{})}
	for _, u := range b.Updates {
		if len(u.Edits) == 0 {
			continue
		}
		a, ok := r.adapters[u.ComponentID]
		if !ok {
			pass.abort()
			return fmt.Errorf("%w: %d", ErrUnknownComponent, u.ComponentID)
		}
		if err := pass.applyEdits(a, u.ComponentID, u.Edits); err != nil {
			pass.abort()
			return err
		}
	}

	flushed, err := r.flush(ctx, pass.dirty)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("batch.flushed_adapters", len(pass.dirty)), attribute.Int("batch.mutations", flushed))

	for _, cid := range b.Disposed {
		if a, ok := r.adapters[cid]; ok {
			delete(r.adapters, cid)
			delete(r.roots, cid)
			a.dispose()
		}
	}
	r.log.InfoContext(ctx, "batch applied", "batch", id, "updates", len(b.Updates), "flushed", flushed, "duration", time.Since(start))
	return nil
}

// flush issues the pending edits of dirty, deepest adapters first so that
// children are complete before their parent is inserted anywhere. Adapters of
// equal depth keep their discovery order.
func (r *Renderer) flush(ctx context.Context, dirty []*Adapter) (int, error) {
	slices.SortStableFunc(dirty, func(a, b *Adapter) int { return b.depth - a.depth })
	total := 0
	for i, a := range dirty {
		n, err := a.flush(ctx, r.manager, r.log)
		total += n
		if err != nil {
			for _, rest := range dirty[i+1:] {
				rest.clearPending()
			}
			return total, err
		}
	}
	return total, nil
}

// abort drops the edits queued by an interrupted pass.
func (p *editPass) abort() {
	for _, a := range p.dirty {
		a.clearPending()
	}
}

// Unmount removes the whole tree of a mounted root from its container and
// disposes the adapters below the root.
func (r *Renderer) Unmount(ctx context.Context, componentID int) error {
	root, ok := r.roots[componentID]
	if !ok {
		return fmt.Errorf("%w: %d is not a mounted root", ErrUnknownComponent, componentID)
	}
	edits := make([]EditOp, 0, len(root.children))
	for i := len(root.children) - 1; i >= 0; i-- {
		edits = append(edits, Remove(i))
	}
	b := Batch{Updates: []ComponentUpdate{{ComponentID: componentID, Edits: edits}}}
	for cid, a := range r.adapters {
		if a != root && a.root() == root {
			b.Disposed = append(b.Disposed, cid)
		}
	}
	slices.Sort(b.Disposed)
	if err := r.UpdateDisplay(ctx, b); err != nil {
		return err
	}
	// The container belongs to the host and is left alive.
	delete(r.adapters, componentID)
	delete(r.roots, componentID)
	root.disposed = true
	return nil
}

func (a *Adapter) root() *Adapter {
	for {
		p := a.Parent()
		if p == nil {
			return a
		}
		a = p
	}
}

// Dump writes the adapter tree of every mounted root, by component id.
func (r *Renderer) Dump(w io.Writer) error {
	ids := make([]int, 0, len(r.roots))
	for id := range r.roots {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if err := r.roots[id].Dump(w); err != nil {
			return err
		}
	}
	return nil
}
