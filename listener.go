package kestrel

import (
	"context"
	"net"
	"strings"
	"syscall"
	"time"
)

// listener implements `net.Listener` over either a TCP or a Unix domain
// socket, applying `Config.ReuseAddress`, per `spec.md` §6. The backlog
// from `Config.Backlog` is stored but not passed to the socket, so the
// operating system's default listen backlog applies.
type listener struct {
	net.Listener

	reuseAddress bool
	backlog      int
}

// ListenerOptions configures `newListener`. It is kept separate from
// `Config` as a seam for transport-level settings that aren't part of
// the `spec.md` §6 configuration surface.
type ListenerOptions struct{}

// newListener returns a `listener` configured from cfg, not yet bound to
// an address -- call `listen`.
func newListener(cfg *Config, opts ListenerOptions) *listener {
	backlog := cfg.Backlog
	if backlog <= 0 {
		backlog = 256
	}

	return &listener{
		reuseAddress: cfg.ReuseAddress,
		backlog:      backlog,
	}
}

// listen binds l to address, which is either a "host:port" TCP address
// or a "unix:/path/to.sock" Unix domain socket path, per `spec.md` §6's
// "hostname:port | unix-socket-path" address option.
func (l *listener) listen(address string) error {
	network := "tcp"
	if rest, ok := strings.CutPrefix(address, "unix:"); ok {
		network, address = "unix", rest
	}

	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			if network != "tcp" || !l.reuseAddress {
				return nil
			}

			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = syscall.SetsockoptInt(
					int(fd),
					syscall.SOL_SOCKET,
					syscall.SO_REUSEADDR,
					1,
				)
			})
			if err != nil {
				return err
			}

			return sockErr
		},
	}

	nl, err := lc.Listen(context.Background(), network, address)
	if err != nil {
		return err
	}

	l.Listener = nl

	return nil
}

// Accept implements `net.Listener`, applying TCP keep-alive to accepted
// connections.
func (l *listener) Accept() (net.Conn, error) {
	c, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}

	if tc, ok := c.(*net.TCPConn); ok {
		tc.SetKeepAlive(true)
		tc.SetKeepAlivePeriod(3 * time.Minute)
	}

	return c, nil
}
