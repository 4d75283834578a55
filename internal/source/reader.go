package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.bug.st/serial"

	"github.com/rfidlab/smarttray/internal/model"
	"github.com/rfidlab/smarttray/internal/obs"
	"github.com/rfidlab/smarttray/internal/tray"
)

// DialFunc opens the reader's byte stream. The returned stream must be
// bounded: reads return within the configured timeout, either with
// (0, nil) (serial) or a timeout error (net deadlines).
type DialFunc func(ctx context.Context) (io.ReadCloser, error)

// Reader consumes newline-terminated EPC tokens from an external byte
// stream and forwards them to the aggregator. Connection loss triggers a
// reconnect with exponential backoff, forever; this is an unattended kiosk
// process and the reader must outlive any endpoint flakiness.
type Reader struct {
	agg  *tray.Aggregator
	id   string
	dial DialFunc
}

// NewReader builds a reader over an arbitrary dialer.
func NewReader(agg *tray.Aggregator, id string, dial DialFunc) *Reader {
	return &Reader{agg: agg, id: id, dial: dial}
}

// NewSerialReader builds a reader over a serial port.
func NewSerialReader(agg *tray.Aggregator, port string, baud int, timeout time.Duration) *Reader {
	dial := func(ctx context.Context) (io.ReadCloser, error) {
		p, err := serial.Open(port, &serial.Mode{BaudRate: baud})
		if err != nil {
			return nil, err
		}
		if err := p.SetReadTimeout(timeout); err != nil {
			_ = p.Close()
			return nil, err
		}
		return p, nil
	}
	return NewReader(agg, "serial:"+port, dial)
}

// NewTCPReader builds a reader over a TCP endpoint (network-attached RFID
// antennas expose a raw line stream).
func NewTCPReader(agg *tray.Aggregator, addr string, timeout time.Duration) *Reader {
	dial := func(ctx context.Context) (io.ReadCloser, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		return &deadlineConn{Conn: conn, timeout: timeout}, nil
	}
	return NewReader(agg, "tcp:"+addr, dial)
}

// deadlineConn arms a read deadline before every read so the pump loop can
// observe cancellation between tokens.
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	_ = c.Conn.SetReadDeadline(time.Now().Add(c.timeout))
	return c.Conn.Read(p)
}

// ID implements Producer.
func (r *Reader) ID() string { return r.id }

// Run implements Producer.
func (r *Reader) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		conn, err := r.connect(ctx)
		if err != nil {
			return nil
		}
		obs.Logger.Infow("reader_connected", "source", r.id)
		err = r.pump(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		obs.Logger.Warnw("reader_disconnected", "source", r.id, "error", err)
	}
	return nil
}

// connect dials with exponential backoff until it succeeds or ctx is done.
func (r *Reader) connect(ctx context.Context) (io.ReadCloser, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0

	var conn io.ReadCloser
	op := func() error {
		c, err := r.dial(ctx)
		if err != nil {
			obs.Logger.Warnw("reader_connect_failed", "source", r.id, "error", err)
			return err
		}
		conn = c
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return conn, nil
}

// pump reads the stream until it breaks or ctx is done.
func (r *Reader) pump(ctx context.Context, conn io.Reader) error {
	buf := make([]byte, 256)
	var pending []byte
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := conn.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			for {
				i := bytes.IndexByte(pending, '\n')
				if i < 0 {
					break
				}
				token := string(pending[:i])
				pending = pending[i+1:]
				r.handle(token)
			}
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return err
		}
		// n == 0, err == nil: serial read timeout, re-check ctx.
	}
}

// handle normalizes one inbound token. Empty lines are ignored; unknown
// tags are dropped and logged, never surfaced to the operator.
func (r *Reader) handle(token string) {
	tag := model.NormalizeTag(token)
	if tag == "" {
		return
	}
	ev := model.ScanEvent{Tag: tag, SourceID: r.id, At: time.Now()}
	_, err := r.agg.Submit(ev)
	switch {
	case err == nil:
		obs.Logger.Debugw("reader_scan", "source", r.id, "tag", tag)
	case errors.Is(err, tray.ErrUnknownTag):
		obs.Logger.Warnw("reader_unknown_tag", "source", r.id, "tag", tag)
	default:
		obs.Logger.Infow("reader_scan_rejected", "source", r.id, "tag", tag, "error", err)
	}
}
