package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/kbase/pkg/admin"
	"github.com/getmockd/kbase/pkg/api/types"
	"github.com/getmockd/kbase/pkg/cli/internal/output"
	"github.com/getmockd/kbase/pkg/entity"
	"github.com/getmockd/kbase/pkg/persistence"
	"github.com/getmockd/kbase/pkg/service"
	"github.com/getmockd/kbase/pkg/store"
	"github.com/getmockd/kbase/pkg/websocket"
)

// captureOutput redirects command output for the duration of the test.
func captureOutput(t *testing.T) (stdout, stderr *bytes.Buffer) {
	t.Helper()
	stdout, stderr = &bytes.Buffer{}, &bytes.Buffer{}
	oldOut, oldErr := output.Stdout, output.Stderr
	output.Stdout, output.Stderr = stdout, stderr
	t.Cleanup(func() {
		output.Stdout, output.Stderr = oldOut, oldErr
	})
	return stdout, stderr
}

// isolateConfig keeps user config files and KBASE_* variables out of the test.
func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	for _, kv := range os.Environ() {
		if name, _, _ := strings.Cut(kv, "="); strings.HasPrefix(name, "KBASE_") {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
}

func changedSet(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}

func getFreePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("boom")))
	assert.Equal(t, 2, ExitCode(&ExitError{Code: 2}))
	assert.Equal(t, 3, ExitCode(fmt.Errorf("wrapped: %w", &ExitError{Code: 3, Err: errors.New("bad")})))
}

func TestExitError_Message(t *testing.T) {
	assert.Equal(t, "exit status 4", (&ExitError{Code: 4}).Error())
	inner := errors.New("no such file")
	err := &ExitError{Code: 2, Err: inner}
	assert.Equal(t, "no such file", err.Error())
	assert.ErrorIs(t, err, inner)
}

func TestRunServe_MissingFileIsFatal(t *testing.T) {
	isolateConfig(t)
	_, stderr := captureOutput(t)

	dir := t.TempDir()
	f := &serveFlags{
		file:         filepath.Join(dir, "missing.yaml"),
		snapshotPath: filepath.Join(dir, "kb.tmpdb"),
		noGRPC:       true,
		noMQTT:       true,
	}

	err := runServe(context.Background(), f, changedSet("snapshot-path", "no-grpc", "no-mqtt"))
	require.Error(t, err)
	assert.Equal(t, types.StatusFileNotFound.ExitCode(), ExitCode(err))
	assert.ErrorIs(t, err, persistence.ErrNotFound)
	assert.Contains(t, stderr.String(), "failed to load initial knowledge base")
	assert.NoFileExists(t, f.snapshotPath)
}

func TestRunServe_MalformedFile(t *testing.T) {
	isolateConfig(t)
	captureOutput(t)

	dir := t.TempDir()
	doc := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(doc, []byte("- just\n- a list\n"), 0o600))

	err := runServe(context.Background(), &serveFlags{file: doc, noGRPC: true, noMQTT: true},
		changedSet("no-grpc", "no-mqtt"))
	require.Error(t, err)
	assert.Equal(t, types.StatusMalformedDocument.ExitCode(), ExitCode(err))
}

func TestRunServe_InvalidConfig(t *testing.T) {
	isolateConfig(t)
	captureOutput(t)

	err := runServe(context.Background(), &serveFlags{logLevel: "chatty"}, changedSet("log-level"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")
	assert.Equal(t, 1, ExitCode(err))
}

func TestRunServe_ResumeSaveAndShutdown(t *testing.T) {
	isolateConfig(t)
	captureOutput(t)

	dir := t.TempDir()
	snapshot := filepath.Join(dir, "kb.tmpdb")
	require.NoError(t, persistence.WriteSnapshot(snapshot, entity.State{
		Locations: []entity.Location{{Name: "kitchen"}},
	}.Collections()))

	port := getFreePort(t)
	f := &serveFlags{
		resume:       true,
		host:         "127.0.0.1",
		port:         port,
		snapshotPath: snapshot,
		noGRPC:       true,
		noMQTT:       true,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runServe(ctx, f, changedSet("host", "port", "snapshot-path", "no-grpc", "no-mqtt"))
	}()

	client := NewHTTPClient(fmt.Sprintf("http://127.0.0.1:%d", port))
	require.Eventually(t, func() bool {
		_, err := client.Health(context.Background())
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	state, err := client.State(context.Background())
	require.NoError(t, err)
	require.Len(t, state.Locations, 1)
	assert.Equal(t, "kitchen", state.Locations[0].Name)

	resp, err := client.Save(context.Background(), entity.Batch{
		Viewpoints: []entity.Viewpoint{{Name: "v1", Parent: "kitchen"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.Status)
	assert.Empty(t, resp.Warnings)

	onDisk, err := persistence.ReadSnapshot(snapshot)
	require.NoError(t, err)
	assert.Contains(t, onDisk.Viewpoints, "v1")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not shut down")
	}
}

func TestLoadServeConfig_FlagsWin(t *testing.T) {
	isolateConfig(t)
	t.Setenv("KBASE_ADMIN_PORT", "5000")
	t.Setenv("KBASE_GRPC_PORT", "5001")

	f := &serveFlags{port: 6000, noMQTT: true, snapshotDriver: "sqlite", snapshotPath: "/tmp/kb.db"}
	cfg, err := loadServeConfig(f, changedSet("port", "no-mqtt", "snapshot-driver", "snapshot-path"))
	require.NoError(t, err)

	assert.Equal(t, 6000, cfg.Admin.Port)
	assert.Equal(t, "flag", cfg.Source("ADMIN_PORT"))
	assert.Equal(t, 5001, cfg.GRPC.Port)
	assert.Equal(t, "env", cfg.Source("GRPC_PORT"))
	assert.False(t, cfg.MQTT.Enabled)
	assert.True(t, cfg.GRPC.Enabled)
	assert.Equal(t, "sqlite", cfg.Snapshot.Driver)
}

func TestServeCmd_FileAndResumeAreExclusive(t *testing.T) {
	captureOutput(t)
	rootCmd.SetArgs([]string{"serve", "-f", "kb.yaml", "--resume"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		serveFlagVals = serveFlags{}
		_ = serveCmd.Flags().Set("file", "")
		_ = serveCmd.Flags().Set("resume", "false")
		serveCmd.Flags().Lookup("file").Changed = false
		serveCmd.Flags().Lookup("resume").Changed = false
	})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[file resume]")
}

func TestSaveBatch(t *testing.T) {
	t.Run("flags", func(t *testing.T) {
		b, err := saveBatch(nil, &recordFlags{
			locations:  []string{"kitchen"},
			viewpoints: []string{"v1"},
			parent:     "kitchen",
			objects:    []string{"mug"},
			defaultLoc: "kitchen",
			category:   "dishware",
			persons:    []string{"ann"},
			attrs:      []string{"color=red"},
		})
		require.NoError(t, err)
		require.Len(t, b.Locations, 1)
		assert.Equal(t, "kitchen", b.Viewpoints[0].Parent)
		assert.Equal(t, "dishware", b.Objects[0].Category)
		assert.Equal(t, "red", b.Objects[0].Attributes["color"])
		assert.Equal(t, "ann", b.Persons[0].Name)

		b.Objects[0].Attributes["color"] = "blue"
		assert.Equal(t, "red", b.Persons[0].Attributes["color"], "records do not share attribute maps")
	})

	t.Run("document", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "kb.yaml")
		require.NoError(t, persistence.WriteSnapshot(path, entity.State{
			Locations: []entity.Location{{Name: "hall"}},
		}.Collections()))

		b, err := saveBatch([]string{path}, &recordFlags{persons: []string{"bob"}})
		require.NoError(t, err)
		assert.Equal(t, "hall", b.Locations[0].Name)
		assert.Equal(t, "bob", b.Persons[0].Name)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := saveBatch(nil, &recordFlags{})
		assert.ErrorContains(t, err, "nothing to save")

		_, err = saveBatch(nil, &recordFlags{viewpoints: []string{"v1"}})
		assert.ErrorContains(t, err, "--parent")

		_, err = saveBatch(nil, &recordFlags{objects: []string{"mug"}})
		assert.ErrorContains(t, err, "--default-loc")

		_, err = saveBatch(nil, &recordFlags{persons: []string{"ann"}, attrs: []string{"novalue"}})
		assert.ErrorContains(t, err, "key=value")

		_, err = saveBatch([]string{filepath.Join(t.TempDir(), "none.yaml")}, &recordFlags{})
		assert.Error(t, err)
	})
}

func TestDeleteBatch(t *testing.T) {
	b, err := deleteBatch(nil, &recordFlags{locations: []string{"kitchen"}, objects: []string{"mug"}})
	require.NoError(t, err)
	assert.Equal(t, "kitchen", b.Locations[0].Name)
	assert.Equal(t, "mug", b.Objects[0].Name)

	_, err = deleteBatch(nil, &recordFlags{})
	assert.ErrorContains(t, err, "nothing to delete")
}

func TestReportStatus(t *testing.T) {
	stdout, stderr := captureOutput(t)

	err := reportStatus(types.NewStatusResponse(types.StatusOK, []string{`object "mug" refers to unknown location "attic"`}, ""))
	require.NoError(t, err)
	assert.Equal(t, "OK\n", stdout.String())
	assert.Contains(t, stderr.String(), "Warning: object \"mug\"")

	err = reportStatus(types.NewStatusResponse(types.StatusInvalidPath, nil, "destination directory does not exist"))
	require.Error(t, err)
	assert.Equal(t, types.StatusInvalidPath.ExitCode(), ExitCode(err))
	assert.Equal(t, "INVALID_PATH: destination directory does not exist", err.Error())
}

func TestHTTPClient(t *testing.T) {
	svc := service.New(store.New())
	srv := httptest.NewServer(admin.NewAPI(svc).Handler())
	defer srv.Close()

	c := NewHTTPClient(srv.URL + "/")
	ctx := context.Background()

	resp, err := c.Save(ctx, entity.Batch{Objects: []entity.Object{{Name: "mug", DefaultLoc: "attic"}}})
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.Status)
	assert.Len(t, resp.Warnings, 1)

	state, err := c.State(ctx)
	require.NoError(t, err)
	require.Len(t, state.Objects, 1)

	resp, err = c.Dump(ctx, filepath.Join(t.TempDir(), "missing", "kb.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "INVALID_PATH", resp.Status)

	resp, err = c.Delete(ctx, entity.Batch{Objects: []entity.Object{{Name: "mug"}}})
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.Status)

	health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
}

func TestHTTPClient_ServerNotRunning(t *testing.T) {
	c := NewHTTPClient(fmt.Sprintf("http://127.0.0.1:%d", getFreePort(t)))
	_, err := c.Save(context.Background(), entity.Batch{})
	assert.ErrorIs(t, err, ErrServerNotRunning)
	_, err = c.State(context.Background())
	assert.ErrorIs(t, err, ErrServerNotRunning)
}

func TestNewClient_UnknownTransport(t *testing.T) {
	_, err := newClient("carrier-pigeon")
	assert.ErrorContains(t, err, "unknown transport")
}

func TestPrintState(t *testing.T) {
	stdout, _ := captureOutput(t)
	state := entity.State{Locations: []entity.Location{{Name: "kitchen"}}}

	require.NoError(t, printState(state))
	decoded, err := persistence.Decode(stdout.Bytes())
	require.NoError(t, err)
	assert.Contains(t, decoded.Locations, "kitchen")

	stdout.Reset()
	stateSummary = true
	t.Cleanup(func() { stateSummary = false })
	require.NoError(t, printState(state))
	assert.Contains(t, stdout.String(), "KIND")
	assert.Contains(t, stdout.String(), "location")
}

func TestWatchClientID(t *testing.T) {
	a, b := watchClientID(), watchClientID()
	assert.True(t, strings.HasPrefix(a, "kbase-watch-"), a)
	assert.Len(t, a, len("kbase-watch-")+16)
	assert.NotEqual(t, a, b)
}

func TestStreamURLFromAdmin(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{in: "http://localhost:4390", want: "ws://localhost:4390/state/stream"},
		{in: "https://kb.example.com/api/", want: "wss://kb.example.com/api/state/stream"},
		{in: "ftp://x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := streamURLFromAdmin(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWatchWebSocket(t *testing.T) {
	hub := websocket.NewHub()
	defer hub.Close()
	svc := service.New(store.New(), service.WithPublisher(hub))
	srv := httptest.NewServer(admin.NewAPI(svc, admin.WithStream(hub)).Handler())
	defer srv.Close()

	svc.Announce(context.Background())
	streamURL, err := streamURLFromAdmin(srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []entity.State
	handle := func(s entity.State) error {
		got = append(got, s)
		if len(got) == 1 {
			go svc.Save(context.Background(), entity.Batch{Persons: []entity.Person{{Name: "ann"}}})
		}
		return nil
	}
	require.NoError(t, watchWebSocket(ctx, streamURL, 2, handle))
	require.Len(t, got, 2)
	assert.True(t, got[0].Empty())
	require.Len(t, got[1].Persons, 1)
	assert.Equal(t, "ann", got[1].Persons[0].Name)
}

func TestConsume(t *testing.T) {
	states := make(chan entity.State, 3)
	states <- entity.State{}
	states <- entity.State{}
	close(states)

	n := 0
	count := func(entity.State) error { n++; return nil }

	assert.NoError(t, consume(context.Background(), states, 1, count))
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, consume(context.Background(), states, 0, count), errStreamClosed)
	assert.Equal(t, 2, n)

	boom := errors.New("boom")
	more := make(chan entity.State, 1)
	more <- entity.State{}
	assert.ErrorIs(t, consume(context.Background(), more, 0, func(entity.State) error { return boom }), boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, consume(ctx, make(chan entity.State), 0, count))
}

func TestVersionInfo(t *testing.T) {
	info := versionInfo()
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.Go)
	assert.NotEmpty(t, info.OS)
}
