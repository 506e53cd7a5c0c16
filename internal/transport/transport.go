package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

// Dialer opens single-use probe connections.
type Dialer struct {
	// Timeout bounds the TCP dial, the TLS handshake and every
	// individual read or write on the resulting connection.
	Timeout time.Duration

	// RootCAs overrides the system certificate pool when non-nil.
	RootCAs *x509.CertPool
}

// Conn is an established plain or TLS connection.
type Conn struct {
	ctx     context.Context
	raw     net.Conn
	stream  net.Conn // raw, or the TLS session wrapping it
	tls     *tls.Conn
	addr    string
	timeout time.Duration
	stop    func() bool
}

// Connect dials host:port over TCP. For the https scheme the stream is
// wrapped in TLS, verified against host, offering alpn during the
// handshake. The caller must Close the returned Conn.
func (d *Dialer) Connect(ctx context.Context, host string, port int, scheme string, alpn []string) (*Conn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	nd := &net.Dialer{Timeout: d.Timeout}
	raw, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectionError{Op: "dial", Addr: addr, Err: err}
	}

	c := &Conn{
		ctx:     ctx,
		raw:     raw,
		stream:  raw,
		addr:    addr,
		timeout: d.Timeout,
	}
	// Unblock pending reads and writes when the caller gives up.
	c.stop = context.AfterFunc(ctx, func() {
		_ = raw.SetDeadline(time.Unix(1, 0))
	})

	if scheme != "https" {
		return c, nil
	}

	tc := tls.Client(raw, &tls.Config{
		ServerName: host,
		NextProtos: alpn,
		RootCAs:    d.RootCAs,
	})
	hctx := ctx
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}
	if err := tc.HandshakeContext(hctx); err != nil {
		c.Close()
		if isTimeout(err) || ctx.Err() != nil {
			return nil, &ConnectionError{Op: "tls handshake", Addr: addr, Err: err}
		}
		return nil, &TLSHandshakeError{Host: host, Err: err}
	}
	c.tls = tc
	c.stream = tc
	return c, nil
}

// Send writes all of p to the connection.
func (c *Conn) Send(p []byte) error {
	if c.timeout > 0 {
		_ = c.stream.SetWriteDeadline(time.Now().Add(c.timeout))
	}
	// Checked after the deadline is set so a cancellation racing with it
	// cannot be overwritten.
	if err := c.ctx.Err(); err != nil {
		return &ConnectionError{Op: "write", Addr: c.addr, Err: err}
	}
	if _, err := c.stream.Write(p); err != nil {
		return &ConnectionError{Op: "write", Addr: c.addr, Err: err}
	}
	return nil
}

// Read receives up to len(p) bytes. It returns io.EOF unwrapped once the
// peer has closed the stream; other failures are *ConnectionError.
func (c *Conn) Read(p []byte) (int, error) {
	if c.timeout > 0 {
		_ = c.stream.SetReadDeadline(time.Now().Add(c.timeout))
	}
	if err := c.ctx.Err(); err != nil {
		return 0, &ConnectionError{Op: "read", Addr: c.addr, Err: err}
	}
	n, err := c.stream.Read(p)
	if err != nil {
		// A TLS peer that closes without close_notify still ends the
		// response.
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return n, io.EOF
		}
		return n, &ConnectionError{Op: "read", Addr: c.addr, Err: err}
	}
	return n, nil
}

// NegotiatedProtocol returns the ALPN protocol the peer selected. ok is
// false for plaintext connections and when the peer selected nothing.
func (c *Conn) NegotiatedProtocol() (proto string, ok bool) {
	if c.tls == nil {
		return "", false
	}
	proto = c.tls.ConnectionState().NegotiatedProtocol
	return proto, proto != ""
}

// IsTLS reports whether the connection is encrypted.
func (c *Conn) IsTLS() bool { return c.tls != nil }

// Close releases the connection. It is safe to call more than once.
func (c *Conn) Close() error {
	if c.stop != nil {
		c.stop()
	}
	// Closing the raw socket avoids a close_notify write that could
	// block on a peer that stopped reading.
	err := c.raw.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// ConnectionError covers DNS failures, refused connections, resets and
// timeouts.
type ConnectionError struct {
	Op   string
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline expiry.
func (e *ConnectionError) Timeout() bool { return isTimeout(e.Err) }

// TLSHandshakeError is returned when the TLS handshake fails, including
// certificate verification failures.
type TLSHandshakeError struct {
	Host string
	Err  error
}

func (e *TLSHandshakeError) Error() string {
	return fmt.Sprintf("tls handshake with %s: %v", e.Host, e.Err)
}

func (e *TLSHandshakeError) Unwrap() error { return e.Err }
