package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rafabd1/Parallax/internal/config"
)

// envPrefix namespaces environment overrides, e.g. PARALLAX_SAMPLES=5.
const envPrefix = "PARALLAX"

var configFile string

// addConfigFlags registers one flag per config key with its default.
func addConfigFlags(fs *pflag.FlagSet) {
	d := config.DefaultConfig()
	fs.StringP("target", "t", d.Target, "Target endpoint (https://host:port); defaults to the Host header on 443/TLS")
	fs.StringP("request", "r", d.RequestFile, "File holding the raw base request ('-' for stdin)")
	fs.String("catalogue", d.CatalogueFile, "YAML mutation catalogue (default: built-in catalogue)")
	fs.StringSliceP("mutations", "m", d.Mutations, "Catalogue mutations to use, in order (default: all)")
	fs.IntP("samples", "n", d.SampleCount, "Attempts per combination")
	fs.IntP("max-combination", "k", d.MaxCombinationSize, "Maximum number of mutations per combination")
	fs.Bool("suppress", d.Suppression, "Skip combinations containing conflicting mutations")
	fs.Duration("timeout", d.AttemptTimeout, "Timeout for a single attempt")
	fs.Duration("deadline-buffer", d.DeadlineBuffer, "Slack added to the computed campaign deadline")
	fs.Duration("deadline", d.OverallDeadline, "Fixed campaign deadline, overrides the computed one")
	fs.IntP("concurrency", "c", d.Concurrency, "Combinations probed in parallel")
	fs.Duration("shutdown-grace", d.ShutdownGrace, "Time running probes get to finish on shutdown")
	fs.Float64("rate-limit", d.RateLimit, "Requests per second per site (0 disables pacing)")
	fs.Int("max-conns", d.MaxConnsPerTarget, "Maximum simultaneous connections per target (0 = unlimited)")
	fs.StringP("proxy", "x", d.ProxyInput, "SOCKS5 proxy URL, comma-separated list or file")
	fs.Bool("verify-tls", d.VerifyTLS, "Verify target TLS certificates")
	fs.Int64("read-limit", d.ReadLimit, "Maximum response body bytes kept per sample")
	fs.StringP("output", "o", d.OutputFile, "Report file (default: stdout)")
	fs.StringP("format", "f", d.OutputFormat, "Report format: json or text")
	fs.Bool("include-raw", d.IncludeRaw, "Include raw requests and responses in the report")
	fs.StringP("loglevel", "l", d.Verbosity, "Log level (debug, info, warn, error, fatal)")
	fs.Bool("no-color", d.NoColor, "Disable colored output")
	fs.BoolP("silent", "s", d.Silent, "Only print errors and the report")
	fs.Bool("no-progress", d.NoProgress, "Disable the progress bar")
}

// loadConfig merges flags, PARALLAX_* environment variables, the optional config
// file and defaults, in that order of precedence.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", configFile, err)
		}
	}
	if len(args) > 0 {
		v.Set("request", args[0])
	}

	cfg := config.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return cfg, nil
}
