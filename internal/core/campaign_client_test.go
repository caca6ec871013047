package core

import (
	"bufio"
	"context"
	"net"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafabd1/Parallax/internal/config"
	"github.com/rafabd1/Parallax/internal/httpmsg"
	"github.com/rafabd1/Parallax/internal/networking"
	"github.com/rafabd1/Parallax/internal/utils"
)

var _ SlotAcquirer = (*networking.Client)(nil)

// slowServer answers every request after delay.
func slowServer(t *testing.T, delay time.Duration) httpmsg.Target {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				tp := textproto.NewReader(bufio.NewReader(conn))
				if _, err := tp.ReadLine(); err != nil {
					return
				}
				if _, err := tp.ReadMIMEHeader(); err != nil {
					return
				}
				time.Sleep(delay)
				_, _ = conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n"))
			}(conn)
		}
	}()

	return httpmsg.Target{Host: "127.0.0.1", Port: ln.Addr().(*net.TCPAddr).Port}
}

func TestRunAllQueuesForConnectionSlotsOutsideTheAttemptBudget(t *testing.T) {
	target := slowServer(t, 150*time.Millisecond)
	cfg := config.DefaultConfig()
	cfg.MaxConnsPerTarget = 1
	client, err := networking.NewClient(cfg, &utils.NoOpLogger{})
	require.NoError(t, err)

	opts := testOptions()
	opts.SampleCount = 1
	opts.MaxCombinationSize = 1
	opts.Concurrency = 4
	opts.AttemptTimeout = 400 * time.Millisecond
	opts.DeadlineBuffer = 5 * time.Second
	sink := &recordingSink{}
	r := newTestRunner(t, opts, client, sink)

	base := httpmsg.NewRequest(target, []byte("GET / HTTP/1.1\r\nHost: localhost\r\n\r\n"))
	res, err := r.RunAll(context.Background(), base, []Mutation{plainMutation{"a"}, plainMutation{"b"}, plainMutation{"c"}, plainMutation{"d"}})

	require.NoError(t, err)
	require.Len(t, res.Results, 4)
	for _, cr := range res.Results {
		require.Len(t, cr.Samples, 1)
		assert.Equal(t, 200, cr.Samples[0].Response.StatusCode)
		assert.Less(t, cr.Samples[0].Elapsed, 300*time.Millisecond, cr.Description)
	}
	assert.Zero(t, sink.count("Request timeout for: "))
}
