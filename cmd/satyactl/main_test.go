package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/satyalens/domain"
)

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	a := &app{out: &out}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.Execute()
	return out.String(), err
}

func TestRoot_RejectsUnknownFormat(t *testing.T) {
	_, err := execute("--out", "yaml", "settings", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--out")
}

func TestCommands_ValidateArgs(t *testing.T) {
	for _, args := range [][]string{
		{"grant-admin"},
		{"revoke-admin", "a", "b"},
		{"reset-guest"},
		{"settings", "set", "ai_enabled"},
	} {
		_, err := execute(args...)
		assert.Error(t, err, args)
	}
}

func TestPrint(t *testing.T) {
	var out bytes.Buffer
	a := &app{out: &out, format: "text"}
	require.NoError(t, a.print(domain.Setting{Key: "ai_enabled", Value: "false"}))
	assert.Equal(t, "ai_enabled=false\n", out.String())

	out.Reset()
	a.format = "json"
	require.NoError(t, a.print(map[string]any{"reset": true}))
	assert.JSONEq(t, `{"reset":true}`, out.String())
}
