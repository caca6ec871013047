package networking

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"sync"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/sync/semaphore"

	"github.com/rafabd1/Parallax/internal/config"
	"github.com/rafabd1/Parallax/internal/httpmsg"
	"github.com/rafabd1/Parallax/internal/utils"
)

// DefaultDialTimeout bounds connection setup when the caller's context has no deadline.
const DefaultDialTimeout = 10 * time.Second

// Client writes raw request bytes to a fresh TCP or TLS connection and reads one
// response back. Requests are never normalized, so ambiguous framing reaches the
// target exactly as built.
type Client struct {
	config           *config.Config
	logger           utils.Logger
	direct           proxy.ContextDialer
	proxies          []proxy.ContextDialer
	parsedProxies    []config.ProxyEntry
	proxyLock        sync.Mutex
	domainProxyIndex map[string]int
	connLock         sync.Mutex
	connLimits       map[string]*semaphore.Weighted
}

// NewClient builds a Client from cfg. Every entry in cfg.ParsedProxies must be
// a SOCKS5 proxy; raw requests cannot be relayed through HTTP proxies.
func NewClient(cfg *config.Config, logger utils.Logger) (*Client, error) {
	direct := &net.Dialer{Timeout: DefaultDialTimeout, KeepAlive: -1}
	c := &Client{
		config:           cfg,
		logger:           logger,
		direct:           direct,
		parsedProxies:    cfg.ParsedProxies,
		domainProxyIndex: make(map[string]int),
		connLimits:       make(map[string]*semaphore.Weighted),
	}

	for _, entry := range cfg.ParsedProxies {
		proxyURL, err := url.Parse(entry.String())
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %s: %w", entry.String(), err)
		}
		d, err := proxy.FromURL(proxyURL, direct)
		if err != nil {
			return nil, fmt.Errorf("unsupported proxy %s: %w", entry.String(), err)
		}
		cd, ok := d.(proxy.ContextDialer)
		if !ok {
			cd = contextlessDialer{d}
		}
		c.proxies = append(c.proxies, cd)
	}
	if len(c.proxies) > 0 {
		logger.Debugf("[Client] Using %d SOCKS proxies.", len(c.proxies))
	}
	return c, nil
}

// dialerForDomain selects a proxy for a given target domain using round-robin per domain.
func (c *Client) dialerForDomain(targetDomain string) proxy.ContextDialer {
	if len(c.proxies) == 0 {
		return c.direct
	}
	c.proxyLock.Lock()
	defer c.proxyLock.Unlock()

	currentIndex, exists := c.domainProxyIndex[targetDomain]
	if !exists {
		currentIndex = 0
	} else {
		currentIndex = (currentIndex + 1) % len(c.proxies)
	}
	c.domainProxyIndex[targetDomain] = currentIndex
	c.logger.Debugf("[Client] Selected proxy '%s' for '%s' (Index: %d)", c.parsedProxies[currentIndex].Host, targetDomain, currentIndex)
	return c.proxies[currentIndex]
}

// Acquire reserves one of the MaxConnsPerTarget connection slots for target,
// blocking until one is free or ctx is done. The returned func releases it.
func (c *Client) Acquire(ctx context.Context, target httpmsg.Target) (func(), error) {
	if c.config.MaxConnsPerTarget <= 0 {
		return func() {}, nil
	}
	key := target.Address()
	c.connLock.Lock()
	sem, ok := c.connLimits[key]
	if !ok {
		sem = semaphore.NewWeighted(int64(c.config.MaxConnsPerTarget))
		c.connLimits[key] = sem
	}
	c.connLock.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}

// Send delivers req.Raw to req.Target and reads one response. The connection is
// closed afterwards. ctx bounds the whole exchange. Send does not take a
// connection slot; callers honouring MaxConnsPerTarget hold one from Acquire.
func (c *Client) Send(ctx context.Context, req *httpmsg.Request) (*httpmsg.Response, error) {
	target := req.Target
	if err := target.Validate(); err != nil {
		return nil, err
	}

	conn, err := c.dial(ctx, target)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	// unblock pending reads and writes as soon as ctx is cancelled
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := conn.Write(req.Raw); err != nil {
		return nil, c.wrapErr(ctx, fmt.Sprintf("failed to write request to %s", target), err)
	}

	resp, err := httpmsg.ReadResponse(conn, req.Method(), c.config.ReadLimit)
	if err != nil {
		return nil, c.wrapErr(ctx, fmt.Sprintf("failed to read response from %s", target), err)
	}
	c.logger.Debugf("[Client] %s answered %d (%d bytes)", target, resp.StatusCode, len(resp.Raw))
	return resp, nil
}

func (c *Client) dial(ctx context.Context, target httpmsg.Target) (net.Conn, error) {
	conn, err := c.dialerForDomain(target.Host).DialContext(ctx, "tcp", target.Address())
	if err != nil {
		return nil, c.wrapErr(ctx, fmt.Sprintf("failed to connect to %s", target), err)
	}
	if !target.TLS {
		return conn, nil
	}

	tlsConn := tls.Client(conn, &tls.Config{
		ServerName:         target.Host,
		InsecureSkipVerify: !c.config.VerifyTLS,
		NextProtos:         []string{"http/1.1"},
	})
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, c.wrapErr(ctx, fmt.Sprintf("TLS handshake with %s failed", target), err)
	}
	return tlsConn, nil
}

// wrapErr attaches the context error when ctx caused the failure so callers can
// match it with errors.Is.
func (c *Client) wrapErr(ctx context.Context, msg string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %v: %w", msg, err, ctxErr)
	}
	// connection deadlines are only ever taken from ctx
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%s: %v: %w", msg, err, context.DeadlineExceeded)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

type contextlessDialer struct {
	proxy.Dialer
}

func (d contextlessDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := d.Dial(network, address)
		ch <- result{conn, err}
	}()
	select {
	case r := <-ch:
		return r.conn, r.err
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}
