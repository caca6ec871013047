package httpmsg

import (
	"fmt"
	"net"
	"strconv"
)

// Target is the service endpoint a request is delivered to.
type Target struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	TLS  bool   `json:"tls"`
}

// Address returns the host:port form used for dialing.
func (t Target) Address() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// String returns the target as a URL-like string (e.g. https://example.com:443).
func (t Target) String() string {
	scheme := "http"
	if t.TLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, t.Address())
}

// Validate checks that the target can be dialed.
func (t Target) Validate() error {
	if t.Host == "" {
		return fmt.Errorf("target host cannot be empty")
	}
	if t.Port <= 0 || t.Port > 65535 {
		return fmt.Errorf("target port %d out of range", t.Port)
	}
	return nil
}
