package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendaylight/netvirt-sub025/internal/model"
	"github.com/opendaylight/netvirt-sub025/internal/store"
	"github.com/opendaylight/netvirt-sub025/internal/testutil"
)

// seedDatabase writes one child with a switch and a logical switch to the
// observed plane and a declared parent, then closes the store.
func seedDatabase(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "topology.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)

	a := model.GlobalPath("a")
	testutil.MustPutNode(t, st, model.PlaneObserved, testutil.ChildNode("a", "ha1", "1.0"))
	testutil.MustPutNode(t, st, model.PlaneObserved, testutil.SwitchNode(a, "tor1", "10.0.0.1"))
	testutil.MustPutEntity(t, st, model.PlaneObserved, a, testutil.LogicalSwitch("ls1", "5000"))
	testutil.MustPutNode(t, st, model.PlaneDeclared, testutil.ParentNode(model.ParentPathForHAID("ha1"), "1.0", a))

	require.NoError(t, st.Close())
	return dbPath
}

func runDumpCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewDumpCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestDumpText(t *testing.T) {
	dbPath := seedDatabase(t)

	out, err := runDumpCommand(t, "text", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "== declared ==")
	assert.Contains(t, out, "== observed ==")
	assert.Contains(t, out, "hwvtep://uuid/a global db_version=1.0 managers=tcp:a:6640")
	assert.Contains(t, out, "  logical-switch ls1 tunnel_key=5000")
}

func TestDumpSinglePlane(t *testing.T) {
	dbPath := seedDatabase(t)

	out, err := runDumpCommand(t, "text", "--db", dbPath, "--plane", "observed")
	require.NoError(t, err)
	assert.NotContains(t, out, "== declared ==")
	assert.Contains(t, out, "== observed ==")
}

func TestDumpJSON(t *testing.T) {
	dbPath := seedDatabase(t)

	out, err := runDumpCommand(t, "json", "--db", dbPath, "--plane", "operational")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   []struct {
			Plane string `json:"plane"`
			Nodes []struct {
				Path    string `json:"path"`
				Records []struct {
					Type  string          `json:"type"`
					Key   string          `json:"key"`
					Value json.RawMessage `json:"value"`
				} `json:"records"`
			} `json:"nodes"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "observed", resp.Data[0].Plane)

	nodes := resp.Data[0].Nodes
	require.Len(t, nodes, 2)
	assert.Equal(t, "hwvtep://uuid/a", nodes[0].Path)
	assert.Equal(t, "hwvtep://uuid/a/physicalswitch/tor1", nodes[1].Path)
	require.Len(t, nodes[0].Records, 1)
	assert.Equal(t, "logical-switch", nodes[0].Records[0].Type)
	assert.Equal(t, "ls1", nodes[0].Records[0].Key)
	assert.Contains(t, string(nodes[0].Records[0].Value), `"tunnel_key":"5000"`)
	assert.Empty(t, nodes[1].Records)
}

func TestDumpMissingDatabase(t *testing.T) {
	out, err := runDumpCommand(t, "json", "--db", filepath.Join(t.TempDir(), "absent.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, `"code":"E200"`)
}

func TestDumpInvalidPlane(t *testing.T) {
	_, err := runDumpCommand(t, "text", "--db", "unused.db", "--plane", "both")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid --plane")
}
