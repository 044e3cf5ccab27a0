package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeValidate(t *testing.T, opts *RootOptions, args ...string) (*bytes.Buffer, *bytes.Buffer, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewValidateCommand(opts)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	return out, errOut, cmd.Execute()
}

func TestValidateValidSchema(t *testing.T) {
	out, errOut, err := executeValidate(t, &RootOptions{Format: "text", Verbose: true}, cubesDir)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "✓ Schema valid: 2 cube(s), 12 member(s)")
	assert.Contains(t, errOut.String(), "Cube orders: 4 dimension(s), 3 measure(s), 1 segment(s)")
}

func TestValidateValidSchemaJSON(t *testing.T) {
	out, _, err := executeValidate(t, &RootOptions{Format: "json"}, cubesDir)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"orders", "users"}, resp.Data.Cubes)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	out, _, err := executeValidate(t, &RootOptions{Format: "text"}, "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005")
	assert.Contains(t, out.String(), "not found")
}

func TestValidateEmptyDirectory(t *testing.T) {
	_, _, err := executeValidate(t, &RootOptions{Format: "text"}, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E003")
}

func TestValidateInvalidCube(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.cue"), []byte(`
cube: orders: {
	sql_table: "orders"
	measures: total: {sql: "amount", type: "median"}
}
`), 0o644))

	out, _, err := executeValidate(t, &RootOptions{Format: "text"}, dir)
	require.Error(t, err)
	assert.Contains(t, out.String(), "✗ Validation failed")
	assert.Contains(t, out.String(), "E201")
}
