package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServeCmd_FlagDefaults(t *testing.T) {
	assert.Equal(t, "8000", serveCmd.Flags().Lookup("port").DefValue, "default port must remain 8000")
	assert.Equal(t, "0.0.0.0", serveCmd.Flags().Lookup("host").DefValue, "default host must remain 0.0.0.0")
	assert.Equal(t, "false", serveCmd.Flags().Lookup("api-only").DefValue)
	assert.Equal(t, "false", serveCmd.Flags().Lookup("dashboard-only").DefValue)
	assert.Equal(t, "leaderboard.csv", serveCmd.Flags().Lookup("leaderboard").DefValue)
}

func TestRootCmd_RegistersServeSubcommand(t *testing.T) {
	found := false
	for _, c := range rootCmd.Commands() {
		if c.Name() == "serve" {
			found = true
		}
	}
	assert.True(t, found, "serve subcommand must be registered on rootCmd")
}

func TestRootCmd_DefaultLogLevel(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("log")
	assert.NotNil(t, flag, "log flag must be registered")
	assert.Equal(t, "info", flag.DefValue, "default log level must be info")
}

func TestRootCmd_LogFileFlagDefaultsToDisabled(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("log-file")
	assert.NotNil(t, flag, "log-file flag must be registered")
	assert.Equal(t, "", flag.DefValue, "log-file must default to disabled")
}
