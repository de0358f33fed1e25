package config

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func newTestCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	AddPersistentFlags(cmd)
	return cmd
}

func Test_NewDefaultsAPIUrl(t *testing.T) {
	viper.Reset()
	cfg, err := New(newTestCommand())
	assert.NoError(t, err)
	assert.Equal(t, "https://vercel.com/api", cfg.APIUrl)
	assert.Nil(t, cfg.Signature)
}

func Test_NewHonorsSignatureFlag(t *testing.T) {
	viper.Reset()
	cmd := newTestCommand()
	assert.NoError(t, cmd.PersistentFlags().Set("signature", "true"))
	assert.NoError(t, cmd.PersistentFlags().Set("team", "my-team"))

	cfg, err := New(cmd)
	assert.NoError(t, err)
	assert.NotNil(t, cfg.Signature)
	assert.True(t, cfg.Signature.Enabled)
	assert.Equal(t, "my-team", cfg.TeamSlug)
}

func Test_InvalidLogLevelEnvErrors(t *testing.T) {
	viper.Reset()
	t.Setenv(EnvLogLevel, "not-a-level")
	_, err := New(newTestCommand())
	assert.Error(t, err)
}
