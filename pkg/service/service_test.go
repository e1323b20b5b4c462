package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/kbase/pkg/api/types"
	"github.com/getmockd/kbase/pkg/broadcast"
	"github.com/getmockd/kbase/pkg/entity"
	"github.com/getmockd/kbase/pkg/persistence"
	"github.com/getmockd/kbase/pkg/store"
)

type failingBackend struct {
	persistence.Backend
	err error
}

func (b failingBackend) Write(context.Context, entity.Collections) error { return b.err }
func (b failingBackend) String() string                                 { return "failing" }

type recordingObserver struct {
	mu     sync.Mutex
	ops    []Operation
	status []types.Status
	counts map[entity.Kind]int
}

func (o *recordingObserver) OnOperation(op Operation, s types.Status, _ int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, op)
	o.status = append(o.status, s)
}

func (o *recordingObserver) OnState(counts map[entity.Kind]int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counts = counts
}

func newTestService(t *testing.T) (*Service, *broadcast.Recorder, string) {
	t.Helper()
	snapshot := filepath.Join(t.TempDir(), "kbase.tmpdb")
	rec := &broadcast.Recorder{}
	svc := New(store.New(),
		WithBackend(persistence.NewFileBackend(snapshot)),
		WithPublisher(rec),
	)
	return svc, rec, snapshot
}

func kitchenBatch() entity.Batch {
	return entity.Batch{
		Locations:  []entity.Location{{Name: "kitchen"}},
		Viewpoints: []entity.Viewpoint{{Name: "v1", Parent: "kitchen"}},
		Objects:    []entity.Object{{Name: "mug", DefaultLoc: "kitchen"}},
	}
}

func TestService_KitchenScenario(t *testing.T) {
	svc, rec, snapshot := newTestService(t)
	ctx := context.Background()

	res := svc.Save(ctx, kitchenBatch())
	assert.Equal(t, types.StatusOK, res.Status)
	assert.Empty(t, res.Warnings)

	onDisk, err := persistence.ReadSnapshot(snapshot)
	require.NoError(t, err)
	assert.Equal(t, svc.State(), onDisk.State())

	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, svc.State(), last)

	res = svc.Delete(ctx, entity.Batch{Locations: []entity.Location{{Name: "kitchen"}}})
	assert.Equal(t, types.StatusOK, res.Status)

	state := svc.State()
	assert.Empty(t, state.Locations)
	require.Len(t, state.Viewpoints, 1)
	assert.Equal(t, "kitchen", state.Viewpoints[0].Parent, "references are not cascaded")
	require.Len(t, state.Objects, 1)
	assert.Equal(t, 2, rec.Count())

	dumpPath := filepath.Join(t.TempDir(), "out.yaml")
	res = svc.Dump(ctx, dumpPath)
	require.Equal(t, types.StatusOK, res.Status)

	dumped, err := persistence.ReadSnapshot(dumpPath)
	require.NoError(t, err)
	assert.Equal(t, state, dumped.State())
}

func TestService_SaveWithDanglingReference(t *testing.T) {
	svc, rec, _ := newTestService(t)

	res := svc.Save(context.Background(), entity.Batch{
		Viewpoints: []entity.Viewpoint{{Name: "v1", Parent: "X"}},
	})

	assert.Equal(t, types.StatusOK, res.Status)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "X", res.Warnings[0].Reference)
	assert.Len(t, svc.State().Viewpoints, 1)
	assert.Equal(t, 1, rec.Count())

	resp := res.Response()
	assert.Equal(t, "OK", resp.Status)
	assert.Len(t, resp.Warnings, 1)
	assert.Empty(t, resp.Message)
}

func TestService_DeleteUnknownStillBroadcasts(t *testing.T) {
	svc, rec, _ := newTestService(t)

	res := svc.Delete(context.Background(), entity.Batch{Persons: []entity.Person{{Name: "ghost"}}})

	assert.Equal(t, types.StatusOK, res.Status)
	assert.Equal(t, 1, rec.Count())
}

func TestService_DumpDoesNotTouchSnapshot(t *testing.T) {
	svc, _, snapshot := newTestService(t)
	ctx := context.Background()
	require.Equal(t, types.StatusOK, svc.Save(ctx, kitchenBatch()).Status)

	before, err := os.ReadFile(snapshot)
	require.NoError(t, err)
	info, err := os.Stat(snapshot)
	require.NoError(t, err)

	res := svc.Dump(ctx, filepath.Join(t.TempDir(), "copy.yaml"))
	require.Equal(t, types.StatusOK, res.Status)

	after, err := os.ReadFile(snapshot)
	require.NoError(t, err)
	infoAfter, err := os.Stat(snapshot)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, info.ModTime(), infoAfter.ModTime())
}

func TestService_DumpInvalidPath(t *testing.T) {
	svc, _, _ := newTestService(t)
	missing := filepath.Join(t.TempDir(), "nope", "out.yaml")

	tests := []struct {
		name string
		dest string
	}{
		{"missing directory", missing},
		{"bare file name", "out.yaml"},
		{"s3 without client", "s3://bucket/key.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := svc.Dump(context.Background(), tt.dest)
			assert.Equal(t, types.StatusInvalidPath, res.Status)
			assert.ErrorIs(t, res.Err, persistence.ErrInvalidDestination)
			assert.Equal(t, "INVALID_PATH", res.Response().Status)
		})
	}
	_, err := os.Stat(missing)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestService_SnapshotFailureIsIOErrorButMutationKept(t *testing.T) {
	rec := &broadcast.Recorder{}
	svc := New(store.New(),
		WithBackend(failingBackend{err: errors.New("disk full")}),
		WithPublisher(rec),
	)

	res := svc.Save(context.Background(), entity.Batch{Persons: []entity.Person{{Name: "ann"}}})

	assert.Equal(t, types.StatusIOError, res.Status)
	assert.EqualError(t, res.Err, "disk full")
	assert.Len(t, svc.State().Persons, 1)
	assert.Equal(t, 1, rec.Count(), "state is broadcast even when the snapshot fails")
}

func TestService_BroadcastFailureDoesNotFailCall(t *testing.T) {
	svc := New(store.New(), WithPublisher(broadcast.Func(func(context.Context, entity.State) error {
		return errors.New("no broker")
	})))

	res := svc.Save(context.Background(), entity.Batch{Persons: []entity.Person{{Name: "ann"}}})
	assert.Equal(t, types.StatusOK, res.Status)
}

func TestService_Announce(t *testing.T) {
	st := store.New()
	st.LoadFrom(entity.Collections{Locations: map[string]entity.Location{"hall": {Name: "hall"}}})
	rec := &broadcast.Recorder{}
	svc := New(st, WithPublisher(rec))

	svc.Announce(context.Background())

	require.Equal(t, 1, rec.Count())
	last, _ := rec.Last()
	require.Len(t, last.Locations, 1)
	assert.Equal(t, "hall", last.Locations[0].Name)
}

func TestService_Observer(t *testing.T) {
	obs := &recordingObserver{}
	svc := New(nil, WithObserver(obs))
	ctx := context.Background()

	svc.Save(ctx, kitchenBatch())
	svc.Delete(ctx, entity.Batch{Objects: []entity.Object{{Name: "mug"}}})
	svc.Dump(ctx, "no-dir.yaml")

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, []Operation{OpSave, OpDelete, OpDump}, obs.ops)
	assert.Equal(t, []types.Status{types.StatusOK, types.StatusOK, types.StatusInvalidPath}, obs.status)
	assert.Equal(t, 1, obs.counts[entity.KindLocation])
	assert.Equal(t, 0, obs.counts[entity.KindObject])
}

func TestService_ConcurrentSavesSerialize(t *testing.T) {
	svc, rec, snapshot := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, n := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Save(ctx, entity.Batch{Persons: []entity.Person{{Name: n}}})
		}()
	}
	wg.Wait()

	assert.Len(t, svc.State().Persons, len(names))
	assert.Equal(t, len(names), rec.Count())

	onDisk, err := persistence.ReadSnapshot(snapshot)
	require.NoError(t, err)
	assert.Len(t, onDisk.Persons, len(names), "the last snapshot reflects the last operation")
}

func TestService_SnapshotTarget(t *testing.T) {
	assert.Empty(t, New(nil).SnapshotTarget())
	assert.Equal(t, "file:/tmp/x", New(nil, WithBackend(persistence.NewFileBackend("/tmp/x"))).SnapshotTarget())
}
