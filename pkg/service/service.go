package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/getmockd/kbase/pkg/api/types"
	"github.com/getmockd/kbase/pkg/broadcast"
	"github.com/getmockd/kbase/pkg/entity"
	"github.com/getmockd/kbase/pkg/logging"
	"github.com/getmockd/kbase/pkg/persistence"
	"github.com/getmockd/kbase/pkg/store"
)

// Result is the outcome of a Save, Delete or Dump.
type Result struct {
	Status   types.Status
	Warnings []store.Warning
	// Err is the underlying failure for a non-OK status. It is meant for
	// logs, not for clients.
	Err error
}

// Response converts the result to its wire form.
func (r Result) Response() types.StatusResponse {
	msg := ""
	if !r.Status.OK() {
		msg = statusMessage(r.Status)
	}
	return types.NewStatusResponse(r.Status, store.Strings(r.Warnings), msg)
}

func statusMessage(s types.Status) string {
	switch s {
	case types.StatusInvalidPath:
		return "destination is not writable"
	case types.StatusIOError:
		return "failed to write the knowledge base"
	default:
		return s.String()
	}
}

// Service wraps a Store with snapshotting, broadcasting and dumping.
type Service struct {
	mu sync.Mutex

	store     *store.Store
	backend   persistence.Backend
	publisher broadcast.Publisher
	dumper    *persistence.Dumper
	observer  Observer
	log       *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithBackend sets where automatic snapshots are written. Without one,
// mutations are not snapshotted.
func WithBackend(b persistence.Backend) Option {
	return func(s *Service) { s.backend = b }
}

// WithPublisher sets the state broadcaster.
func WithPublisher(p broadcast.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithDumper sets the dumper used for explicit Dump calls.
func WithDumper(d *persistence.Dumper) Option {
	return func(s *Service) {
		if d != nil {
			s.dumper = d
		}
	}
}

// WithObserver sets the operation observer.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates a Service over st.
func New(st *store.Store, opts ...Option) *Service {
	if st == nil {
		st = store.New()
	}
	s := &Service{
		store:     st,
		publisher: broadcast.Nop{},
		dumper:    persistence.NewDumper(),
		observer:  NoopObserver{},
		log:       logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save upserts every record in batch. Records that name an unknown location
// are stored anyway and reported as warnings.
func (s *Service) Save(ctx context.Context, batch entity.Batch) Result {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	warnings := s.store.Save(batch)
	for _, w := range warnings {
		s.log.Warn("saved record references an unknown location",
			"kind", w.Kind, "name", w.Name, "field", w.Field, "reference", w.Reference)
	}

	res := s.commitLocked(ctx, OpSave)
	res.Warnings = warnings
	s.log.Debug("save", "records", batch.Len(), "warnings", len(warnings), "status", res.Status)
	s.observer.OnOperation(OpSave, res.Status, len(warnings), time.Since(start))
	return res
}

// Delete removes every named record in batch. Unknown names are ignored.
func (s *Service) Delete(ctx context.Context, batch entity.Batch) Result {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.store.Delete(batch)

	res := s.commitLocked(ctx, OpDelete)
	s.log.Debug("delete", "requested", batch.Len(), "removed", removed, "status", res.Status)
	s.observer.OnOperation(OpDelete, res.Status, 0, time.Since(start))
	return res
}

// commitLocked snapshots and broadcasts the current state. A snapshot
// failure is reported as IO_ERROR but the state is still broadcast.
func (s *Service) commitLocked(ctx context.Context, op Operation) Result {
	res := Result{Status: types.StatusOK}

	if s.backend != nil {
		if err := s.backend.Write(ctx, s.store.Collections()); err != nil {
			s.log.Error("failed to write snapshot", "operation", op, "backend", s.backend.String(), "error", err)
			res.Status = types.StatusIOError
			res.Err = err
		}
	}

	s.publishLocked(ctx)
	s.observer.OnState(s.store.Counts())
	return res
}

func (s *Service) publishLocked(ctx context.Context) {
	if err := s.publisher.Publish(ctx, s.store.Snapshot()); err != nil {
		s.log.Warn("failed to broadcast state", "error", err)
	}
}

// Dump writes the current state to dest, independently of the automatic
// snapshot. An unusable destination yields INVALID_PATH and writes nothing.
func (s *Service) Dump(ctx context.Context, dest string) Result {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	res := Result{Status: types.StatusOK}
	if err := s.dumper.Check(dest); err != nil {
		s.log.Warn("rejected dump destination", "path", dest, "error", err)
		res = Result{Status: types.StatusInvalidPath, Err: err}
	} else if err := s.dumper.Dump(ctx, dest, s.store.Collections()); err != nil {
		s.log.Error("failed to dump knowledge base", "path", dest, "error", err)
		res = Result{Status: types.StatusFromError(err), Err: err}
	} else {
		s.log.Info("dumped knowledge base", "path", dest)
	}

	s.observer.OnOperation(OpDump, res.Status, 0, time.Since(start))
	return res
}

// Announce broadcasts the current state. It is called once at startup.
func (s *Service) Announce(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishLocked(ctx)
	s.observer.OnState(s.store.Counts())
}

// State returns a copy of the current knowledge base.
func (s *Service) State() entity.State {
	return s.store.Snapshot()
}

// Counts returns the size of each collection.
func (s *Service) Counts() map[entity.Kind]int {
	return s.store.Counts()
}

// SnapshotTarget describes the snapshot backend, or "" without one.
func (s *Service) SnapshotTarget() string {
	if s.backend == nil {
		return ""
	}
	return s.backend.String()
}
