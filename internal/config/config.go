package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all the configuration for a Parallax campaign.
// Fields are populated by Viper from flags, environment and an optional YAML file.
type Config struct {
	Target             string        `mapstructure:"target"`    // https://host:port; empty derives it from the Host header
	RequestFile        string        `mapstructure:"request"`   // raw base request; "-" reads stdin
	CatalogueFile      string        `mapstructure:"catalogue"` // YAML mutation catalogue; empty uses built-ins
	Mutations          []string      `mapstructure:"mutations"` // catalogue names to use; empty uses all
	SampleCount        int           `mapstructure:"samples"`
	MaxCombinationSize int           `mapstructure:"max-combination"`
	Suppression        bool          `mapstructure:"suppress"`
	AttemptTimeout     time.Duration `mapstructure:"timeout"`
	DeadlineBuffer     time.Duration `mapstructure:"deadline-buffer"`
	OverallDeadline    time.Duration `mapstructure:"deadline"` // overrides the computed campaign deadline when > 0
	Concurrency        int           `mapstructure:"concurrency"`
	ShutdownGrace      time.Duration `mapstructure:"shutdown-grace"`
	RateLimit          float64       `mapstructure:"rate-limit"` // requests per second per site, 0 disables pacing
	MaxConnsPerTarget  int           `mapstructure:"max-conns"`
	ProxyInput         string        `mapstructure:"proxy"` // Raw input for proxies (URL, list, or file path)
	ParsedProxies      []ProxyEntry
	VerifyTLS          bool   `mapstructure:"verify-tls"`
	ReadLimit          int64  `mapstructure:"read-limit"`
	OutputFile         string `mapstructure:"output"`
	OutputFormat       string `mapstructure:"format"`
	IncludeRaw         bool   `mapstructure:"include-raw"`
	Verbosity          string `mapstructure:"loglevel"`
	NoColor            bool   `mapstructure:"no-color"` // To disable colored output
	Silent             bool   `mapstructure:"silent"`   // To suppress non-critical logs
	NoProgress         bool   `mapstructure:"no-progress"`
}

// ProxyEntry holds the parsed components of a proxy string.
type ProxyEntry struct {
	URL      string
	Scheme   string
	Host     string // host:port
	Username string
	Password string
}

// String returns the proxy URL string representation.
// Omits user/pass if not present. Defaults to socks5 scheme if not present.
func (pe *ProxyEntry) String() string {
	userInfo := ""
	if pe.Username != "" {
		userInfo = pe.Username
		if pe.Password != "" {
			userInfo += ":" + pe.Password
		}
		userInfo += "@"
	}
	schemeToUse := pe.Scheme
	if schemeToUse == "" {
		schemeToUse = "socks5"
	}
	return fmt.Sprintf("%s://%s%s", schemeToUse, userInfo, pe.Host)
}

// DefaultDeadlineBuffer is added to the computed campaign deadline.
const DefaultDeadlineBuffer = 60 * time.Second

// DefaultConfig returns a Config struct populated with default values.
func DefaultConfig() *Config {
	return &Config{
		Mutations:          []string{},
		SampleCount:        3,
		MaxCombinationSize: 2,
		Suppression:        true,
		AttemptTimeout:     10 * time.Second,
		DeadlineBuffer:     DefaultDeadlineBuffer,
		Concurrency:        10,
		ShutdownGrace:      5 * time.Second,
		MaxConnsPerTarget:  10,
		ReadLimit:          1 << 20,
		OutputFormat:       "json",
		Verbosity:          "info",
		ParsedProxies:      []ProxyEntry{},
	}
}

// Validate checks the Config after it has been populated by Viper.
func (c *Config) Validate() error {
	if c.SampleCount <= 0 {
		return fmt.Errorf("samples must be positive, got %d", c.SampleCount)
	}
	if c.MaxCombinationSize <= 0 {
		return fmt.Errorf("max-combination must be positive, got %d", c.MaxCombinationSize)
	}
	if c.AttemptTimeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.DeadlineBuffer < 0 {
		return fmt.Errorf("deadline-buffer cannot be negative")
	}
	if c.OverallDeadline < 0 {
		return fmt.Errorf("deadline cannot be negative")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	if c.ShutdownGrace < 0 {
		return fmt.Errorf("shutdown-grace cannot be negative")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate-limit cannot be negative")
	}
	if c.MaxConnsPerTarget < 0 {
		return fmt.Errorf("max-conns cannot be negative")
	}
	if c.RequestFile == "" {
		return fmt.Errorf("a base request file is required")
	}
	switch strings.ToLower(c.OutputFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("unsupported output format %q (use json or text)", c.OutputFormat)
	}
	return nil
}

// LoadLinesFromFile reads non-empty, non-comment lines from a file.
func LoadLinesFromFile(filePath string) ([]string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var result []string
	for _, line := range strings.Split(string(content), "\n") {
		trimmedLine := strings.TrimSpace(line)
		if trimmedLine != "" && !strings.HasPrefix(trimmedLine, "#") {
			result = append(result, trimmedLine)
		}
	}
	return result, nil
}

// String summarizes the configuration for debug logging.
func (c *Config) String() string {
	return fmt.Sprintf("Target: %s, Request: %s, Catalogue: %s, Samples: %d, MaxCombination: %d, Suppress: %t, Timeout: %s, DeadlineBuffer: %s, Deadline: %s, Concurrency: %d, RateLimit: %.2f, MaxConns: %d, Proxies: %d, Format: %s, Verbosity: %s",
		c.Target, c.RequestFile, c.CatalogueFile, c.SampleCount, c.MaxCombinationSize, c.Suppression, c.AttemptTimeout, c.DeadlineBuffer, c.OverallDeadline, c.Concurrency, c.RateLimit, c.MaxConnsPerTarget, len(c.ParsedProxies), c.OutputFormat, c.Verbosity)
}
