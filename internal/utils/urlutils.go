package utils

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/rafabd1/Parallax/internal/httpmsg"
)

// ParseTarget turns "https://host[:port]", "http://host[:port]" or "host[:port]"
// into a Target. Bare hosts default to TLS on 443, as do unknown schemes.
func ParseTarget(raw string) (httpmsg.Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return httpmsg.Target{}, fmt.Errorf("empty target")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return httpmsg.Target{}, fmt.Errorf("invalid target %q: %w", raw, err)
	}

	target := httpmsg.Target{Host: u.Hostname(), TLS: !strings.EqualFold(u.Scheme, "http")}
	if target.TLS {
		target.Port = 443
	} else {
		target.Port = 80
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return httpmsg.Target{}, fmt.Errorf("invalid port in target %q: %w", raw, err)
		}
		target.Port = port
	}
	if err := target.Validate(); err != nil {
		return httpmsg.Target{}, err
	}
	return target, nil
}

// TargetFromHostHeader builds a TLS target on port 443 from a Host header value,
// honoring an explicit port. An empty value yields localhost. IPv6 literals lose
// their brackets.
func TargetFromHostHeader(hostHeader string) httpmsg.Target {
	host := strings.TrimSpace(hostHeader)
	if host == "" {
		host = "localhost"
	}
	target := httpmsg.Target{Host: host, Port: 443, TLS: true}
	if h, p, err := net.SplitHostPort(host); err == nil {
		if port, err := strconv.Atoi(p); err == nil {
			target.Host = h
			target.Port = port
		}
	} else if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		target.Host = host[1 : len(host)-1]
	}
	return target
}

// SiteKey groups hosts by registrable domain (eTLD+1) so that subdomains of the same
// site share pacing. IP addresses and hosts without a public suffix are returned as is.
func SiteKey(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if net.ParseIP(host) != nil {
		return host
	}
	site, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return site
}
