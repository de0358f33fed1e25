// Package config resolves the ambient CLI configuration: log verbosity,
// remote cache endpoint and credentials, and signing. Precedence is
// flags > environment > defaults, the same order the rest of the stack uses.
package config

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"runtime"

	"github.com/hashicorp/go-hclog"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vercel/turborepo-cache/internal/signature"
)

// EnvLogLevel is the environment variable used to set the log level directly,
// overridden by any -v/-vv/-vvv flags present on the command line.
const EnvLogLevel = "TURBO_LOG_LEVEL"

const envPrefix = "TURBO"

// Config carries the resolved settings a cache-engine command needs.
type Config struct {
	Logger hclog.Logger

	APIUrl   string
	Token    string
	TeamID   string
	TeamSlug string

	Workers int

	UsePreflight bool
	Signature    *signature.Authenticator
}

// IsCI reports whether we appear to be running under a CI/CD environment,
// either because stdout isn't a terminal or CI is explicitly set.
func IsCI() bool {
	return !isatty.IsTerminal(os.Stdout.Fd()) || os.Getenv("CI") != ""
}

// AddPersistentFlags registers the flags shared by every subcommand onto cmd.
func AddPersistentFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.CountP("verbosity", "v", "verbosity level; pass up to three times")
	flags.String("api", "", "override the remote cache API URL")
	flags.String("token", "", "bearer token for the remote cache")
	flags.String("team", "", "remote cache team slug")
	flags.Int("workers", runtime.NumCPU()+2, "number of concurrent upload/download workers")
	flags.Bool("signature", false, "sign uploads and verify downloads with TURBO_REMOTE_CACHE_SIGNATURE_KEY")
	flags.Bool("preflight", false, "use a CORS preflight request before contacting the remote cache")

	_ = viper.BindPFlag("api", flags.Lookup("api"))
	_ = viper.BindPFlag("token", flags.Lookup("token"))
	_ = viper.BindPFlag("team", flags.Lookup("team"))
	_ = viper.BindPFlag("workers", flags.Lookup("workers"))
	_ = viper.BindPFlag("signature", flags.Lookup("signature"))
	_ = viper.BindPFlag("preflight", flags.Lookup("preflight"))
}

// New resolves a Config from cmd's flags, the environment, and defaults.
func New(cmd *cobra.Command) (*Config, error) {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	logger, err := buildLogger(cmd)
	if err != nil {
		return nil, err
	}

	apiURL := viper.GetString("api")
	if apiURL == "" {
		apiURL = "https://vercel.com/api"
	}

	cfg := &Config{
		Logger:       logger,
		APIUrl:       apiURL,
		Token:        viper.GetString("token"),
		TeamID:       viper.GetString("team_id"),
		TeamSlug:     viper.GetString("team"),
		Workers:      viper.GetInt("workers"),
		UsePreflight: viper.GetBool("preflight"),
	}

	if viper.GetBool("signature") {
		cfg.Signature = &signature.Authenticator{TeamID: cfg.TeamID, Enabled: true}
	}

	return cfg, nil
}

func buildLogger(cmd *cobra.Command) (hclog.Logger, error) {
	level := hclog.NoLevel
	if v := os.Getenv(EnvLogLevel); v != "" {
		level = hclog.LevelFromString(v)
		if level == hclog.NoLevel {
			return nil, fmt.Errorf("%s value %q is not a valid log level", EnvLogLevel, v)
		}
	}

	if count, err := cmd.Flags().GetCount("verbosity"); err == nil {
		switch {
		case count >= 3:
			level = hclog.Trace
		case count == 2:
			level = hclog.Debug
		case count == 1:
			level = hclog.Info
		}
	}

	var output io.Writer = ioutil.Discard
	color := hclog.ColorOff
	if level != hclog.NoLevel {
		output = os.Stderr
		color = hclog.AutoColor
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:   "turborepo-cache",
		Level:  level,
		Color:  color,
		Output: output,
	}), nil
}
