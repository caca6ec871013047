package utils

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/rafabd1/Parallax/internal/config"
)

// ParseProxyInput parses a proxy input string (a single proxy URL, a comma-separated
// list, or a file path with one proxy per line) into ProxyEntry values.
// Entries without a scheme default to socks5, the only scheme raw connections can use.
func ParseProxyInput(proxyInput string, logger Logger) ([]config.ProxyEntry, error) {
	if proxyInput == "" {
		return nil, nil
	}

	var proxyStrings []string
	if _, err := os.Stat(proxyInput); err == nil {
		logger.Debugf("Proxy input '%s' appears to be a file. Attempting to read.", proxyInput)
		lines, errRead := config.LoadLinesFromFile(proxyInput)
		if errRead != nil {
			return nil, fmt.Errorf("failed to read proxy file '%s': %w", proxyInput, errRead)
		}
		proxyStrings = lines
	} else {
		proxyStrings = strings.Split(proxyInput, ",")
	}

	var parsedProxies []config.ProxyEntry
	for _, str := range proxyStrings {
		trimmedStr := strings.TrimSpace(str)
		if trimmedStr == "" {
			continue
		}
		urlStr := trimmedStr
		if !strings.Contains(urlStr, "://") {
			urlStr = "socks5://" + urlStr
		}

		parsedURL, err := url.Parse(urlStr)
		if err != nil {
			logger.Warnf("Failed to parse proxy string '%s': %v. Skipping this proxy.", trimmedStr, err)
			continue
		}
		if parsedURL.Hostname() == "" || parsedURL.Port() == "" {
			logger.Warnf("Proxy string '%s' has no host:port. Skipping.", trimmedStr)
			continue
		}

		entry := config.ProxyEntry{
			Scheme: strings.ToLower(parsedURL.Scheme),
			Host:   net.JoinHostPort(parsedURL.Hostname(), parsedURL.Port()),
		}
		if parsedURL.User != nil {
			entry.Username = parsedURL.User.Username()
			entry.Password, _ = parsedURL.User.Password()
		}
		entry.URL = entry.String()
		parsedProxies = append(parsedProxies, entry)
	}

	if len(proxyStrings) > 0 && len(parsedProxies) == 0 {
		return nil, fmt.Errorf("proxy input '%s' provided, but no valid proxies could be parsed", proxyInput)
	}
	for _, p := range parsedProxies {
		logger.Debugf("Parsed proxy details: Scheme: %s, Host: %s, Username: %s", p.Scheme, p.Host, p.Username)
	}
	return parsedProxies, nil
}
