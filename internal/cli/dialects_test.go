package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cubesql/internal/dialect"
)

func TestDialectsText(t *testing.T) {
	out := &bytes.Buffer{}
	cmd := NewDialectsCommand(&RootOptions{Format: "text"})
	cmd.SetOut(out)
	cmd.SetArgs(nil)

	require.NoError(t, cmd.Execute())
	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, len(dialect.Names())+1)
	assert.Contains(t, out.String(), "elasticsearch")
	assert.Regexp(t, `oracle\s+:1\s+yes\s+yes\s+128`, out.String())
}

func TestDialectsJSON(t *testing.T) {
	out := &bytes.Buffer{}
	cmd := NewDialectsCommand(&RootOptions{Format: "json"})
	cmd.SetOut(out)
	cmd.SetArgs(nil)
	require.NoError(t, cmd.Execute())

	var resp struct {
		Data []dialect.Capabilities `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.Len(t, resp.Data, len(dialect.Names()))

	byName := map[string]dialect.Capabilities{}
	for _, c := range resp.Data {
		byName[c.Name] = c
	}
	assert.False(t, byName["elasticsearch"].Intervals)
	assert.False(t, byName["elasticsearch"].Offset)
	assert.Equal(t, "$1", byName["postgres"].Placeholder)
}
