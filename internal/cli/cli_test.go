package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRegistered(t *testing.T) {
	for _, path := range [][]string{
		{"serve"},
		{"selection", "list"},
		{"selection", "add"},
		{"selection", "clear"},
		{"grid"},
		{"heatmap", "channels"},
		{"heatmap", "values"},
		{"heatmap", "legend"},
		{"db", "status"},
		{"db", "rollback"},
		{"discover"},
		{"licenses"},
		{"version"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestGridFlags(t *testing.T) {
	for _, name := range []string{"filter", "sort", "desc", "ids"} {
		assert.NotNil(t, gridCmd.Flags().Lookup(name), name)
	}
}
