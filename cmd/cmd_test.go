package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSegmentID(t *testing.T) {
	id, err := parseSegmentID("42")
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	for _, bad := range []string{"", "0", "-1", "abc", "1.5"} {
		_, err := parseSegmentID(bad)
		assert.Error(t, err, bad)
	}
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range RootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"start", "refresh", "delete", "changes", "export"} {
		assert.True(t, names[want], want)
	}
}

func TestRefreshArgs(t *testing.T) {
	t.Cleanup(func() { refreshAll = false })

	refreshAll = true
	assert.Error(t, refreshCmd.Args(refreshCmd, []string{"1"}))
	assert.NoError(t, refreshCmd.Args(refreshCmd, nil))

	refreshAll = false
	assert.Error(t, refreshCmd.Args(refreshCmd, nil))
	assert.NoError(t, refreshCmd.Args(refreshCmd, []string{"1"}))
}
