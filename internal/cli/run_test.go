package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendaylight/netvirt-sub025/internal/ha"
	"github.com/opendaylight/netvirt-sub025/internal/testutil"
)

func runCommand(t *testing.T, ctx context.Context, rootOpts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	cmd.SetContext(ctx)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRunStopsOnCancel(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "topology.db")

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	out, err := runCommand(t, ctx, &RootOptions{Format: "text"}, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Replication engine started")

	_, statErr := os.Stat(dbPath)
	assert.NoError(t, statErr, "database should have been created")
}

func TestRunUsesConfigDatabase(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "from-config.db")
	cfgPath := filepath.Join(dir, "hwvtepha.cue")
	cfg := "database: \"" + dbPath + "\"\nwaitlist_ttl: \"1m\"\nlog_level: \"warn\"\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err := runCommand(t, ctx, &RootOptions{Format: "text", Config: cfgPath})
	require.NoError(t, err)

	_, statErr := os.Stat(dbPath)
	assert.NoError(t, statErr)
}

func TestRunInvalidConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "bad.cue")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`waitlist_ttl: "soon"`), 0644))

	out, err := runCommand(t, context.Background(), &RootOptions{Format: "json", Config: cfgPath})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
	assert.Contains(t, out, `"code":"E100"`)
}

func TestRunMissingConfigFile(t *testing.T) {
	_, err := runCommand(t, context.Background(),
		&RootOptions{Format: "text", Config: filepath.Join(t.TempDir(), "absent.cue")})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunRejectsArgs(t *testing.T) {
	_, err := runCommand(t, context.Background(), &RootOptions{Format: "text"}, "extra")
	require.Error(t, err)
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	ha.New(testutil.OpenStore(t), ha.Options{Registerer: reg})

	srv := httptest.NewServer(metricsHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "hwvtepha_waitlist_pending")
	assert.Contains(t, string(body), "hwvtepha_scheduler_queue_depth")

	resp2, err := http.Get(srv.URL + "/other")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}
