package tor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"golang.org/x/sync/errgroup"
)

// Readiness poll tuning.
const (
	// DefaultStartupTimeout bounds how long Enable waits for the daemon's
	// ports. A warm Tor install opens its listeners within seconds; the
	// generous bound covers first-run consensus downloads on slow links.
	DefaultStartupTimeout = 90 * time.Second

	// DefaultPollInterval is the delay between readiness attempts. The
	// poll is time-sliced rather than a hard block so cancellation (user
	// disabling Tor mid-start) is honored between attempts.
	DefaultPollInterval = 500 * time.Millisecond

	// probeDialTimeout bounds each individual connection attempt.
	probeDialTimeout = 2 * time.Second
)

// SOCKS5 protocol constants for the readiness handshake.
const (
	socks5Version      = 0x05
	socks5AuthNone     = 0x00
	socks5AuthNoAccept = 0xFF
	socks5CmdConnect   = 0x01
	socks5AddrDomain   = 0x03

	// probeOnion is a synthetic .onion address used in the CONNECT probe.
	// It does not exist; we only need the daemon to process the request,
	// and a fabricated address avoids touching any real service.
	probeOnion = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa.onion"
)

// waitReady polls the daemon's SOCKS and control ports until both are
// reachable, the process exits, or the timeout elapses. The two ports are
// probed concurrently; readiness requires both.
//
// The SOCKS check is a full SOCKS5 handshake rather than a bare TCP dial:
// a listener that accepts connections but does not speak SOCKS5 (a stale
// service squatting on 9050) must not count as ready.
func waitReady(ctx context.Context, proc Process, timeout, interval time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// A process exit during the poll is a crash, not a timeout. Fold it
	// into the context so both probe loops stop immediately.
	exitCtx, exitCancel := context.WithCancelCause(ctx)
	defer exitCancel(nil)
	go func() {
		select {
		case <-proc.Done():
			exitCancel(ErrProcessExited)
		case <-exitCtx.Done():
		}
	}()

	g, gctx := errgroup.WithContext(exitCtx)
	g.Go(func() error {
		return pollUntil(gctx, interval, func(ctx context.Context) error {
			return probeSocks(ctx, proc.SocksAddr())
		})
	})
	g.Go(func() error {
		return pollUntil(gctx, interval, func(ctx context.Context) error {
			return probeTCP(ctx, proc.ControlAddr())
		})
	})

	if err := g.Wait(); err != nil {
		if cause := context.Cause(exitCtx); errors.Is(cause, ErrProcessExited) {
			return ErrProcessExited
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrStartupTimeout
		}
		if errors.Is(err, context.Canceled) {
			return ErrStartCancelled
		}
		return err
	}
	return nil
}

// pollUntil retries probe every interval until it succeeds or the context
// ends. Probe failures are expected while the daemon is still binding its
// listeners, so they are not propagated; only the context's end is.
func pollUntil(ctx context.Context, interval time.Duration, probe func(context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := probe(ctx); err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// probeTCP checks that the address accepts a TCP connection. Sufficient
// for the control port, where we only verify connectivity and implement
// no authentication protocol.
func probeTCP(ctx context.Context, addr string) error {
	d := net.Dialer{Timeout: probeDialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return conn.Close()
}

// probeSocks verifies that addr speaks SOCKS5 without authentication and
// processes CONNECT requests. Any CONNECT reply, including a failure code
// for the synthetic address, proves the daemon is proxying.
func probeSocks(ctx context.Context, addr string) error {
	d := net.Dialer{Timeout: probeDialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(probeDialTimeout)); err != nil {
		return err
	}

	// Version negotiation: offer "no authentication" only.
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return err
	}

	authResp := make([]byte, 2)
	if _, err := io.ReadFull(conn, authResp); err != nil {
		return fmt.Errorf("not a SOCKS5 proxy: %w", err)
	}
	if authResp[0] != socks5Version {
		return errors.New("not a SOCKS5 proxy: bad version")
	}
	if authResp[1] == socks5AuthNoAccept || authResp[1] != socks5AuthNone {
		return errors.New("SOCKS5 proxy requires authentication")
	}

	// CONNECT to the synthetic onion. Tor replies with a failure code for
	// the non-existent address, which is fine: any well-formed reply means
	// the request was processed.
	req := []byte{socks5Version, socks5CmdConnect, 0x00, socks5AddrDomain, byte(len(probeOnion))}
	req = append(req, probeOnion...)
	req = append(req, 0x00, 0x50) // port 80
	if _, err := conn.Write(req); err != nil {
		return err
	}

	reply := make([]byte, 4)
	if _, err := io.ReadFull(conn, reply); err != nil {
		return fmt.Errorf("no CONNECT reply: %w", err)
	}
	if reply[0] != socks5Version {
		return errors.New("malformed CONNECT reply")
	}
	return nil
}
