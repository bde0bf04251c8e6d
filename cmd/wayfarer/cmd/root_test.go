package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/wayfarer/pkg/version"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRootHelpListsCommands(t *testing.T) {
	out, err := executeCommand(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "serve")
	assert.Contains(t, out, "seed")
	assert.Contains(t, out, "ask")
	assert.Contains(t, out, "version")
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "wayfarer")
	assert.Contains(t, out, version.Version)
}

func TestVersionShort(t *testing.T) {
	out, err := executeCommand(t, "version", "--short")
	require.NoError(t, err)
	assert.Contains(t, out, version.Version)
}

func TestVersionJSON(t *testing.T) {
	out, err := executeCommand(t, "version", "--json")
	require.NoError(t, err)

	var info version.BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestAskRequiresArgument(t *testing.T) {
	_, err := executeCommand(t, "ask")
	assert.Error(t, err)
}
