package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"extract", "validate", "heal", "runs", "schema"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "study-extract", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestExtractCommand_Flags(t *testing.T) {
	files := extractCmd.Flags().Lookup("files")
	require.NotNil(t, files, "extract command should have --files flag")

	limit := extractCmd.Flags().Lookup("limit")
	require.NotNil(t, limit, "extract command should have --limit flag")
	assert.Equal(t, "0", limit.DefValue)
}

func TestValidateCommand_Flags(t *testing.T) {
	require.NotNil(t, validateCmd.Flags().Lookup("files"))
	limit := validateCmd.Flags().Lookup("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "0", limit.DefValue)
}

func TestHealCommand_Flags(t *testing.T) {
	flag := healCmd.Flags().Lookup("run-extraction")
	require.NotNil(t, flag, "heal command should have --run-extraction flag")
	assert.Equal(t, "false", flag.DefValue)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["show"])

	limit := runsListCmd.Flags().Lookup("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "50", limit.DefValue)
}
