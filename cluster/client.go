package cluster

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-sif/sifacc"
	"github.com/go-sif/sifacc/errors"
	"github.com/go-sif/sifacc/internal/metrics"
	"github.com/go-sif/sifacc/internal/protocol"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// Client pushes accumulator updates from a worker process to a Server. A Client is
// safe for concurrent use: batches pushed by different tasks are serialized over
// the single aggregation connection, and each Push returns once its own batch has
// been acknowledged.
type Client struct {
	opts   *ClientOptions
	log    *zap.Logger
	lock   sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	broken error
	closed bool
}

// Dial connects to the Server at addr, retrying at one second intervals
func Dial(ctx context.Context, addr string, opts *ClientOptions) (*Client, error) {
	if opts == nil {
		opts = &ClientOptions{}
	}
	opts = CloneClientOptions(opts)
	ensureDefaultClientOptionsValues(opts)
	dialer := &net.Dialer{Timeout: opts.DialTimeout}
	var err error
	for retries := 0; retries < opts.DialRetries; retries++ {
		var conn net.Conn
		conn, err = dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			opts.Logger.Debug("Connected to accumulator server", zap.String("addr", addr))
			return &Client{
				opts:   opts,
				log:    opts.Logger,
				conn:   conn,
				reader: bufio.NewReader(conn),
				writer: bufio.NewWriter(conn),
			}, nil
		}
		opts.Logger.Debug("Unable to connect to accumulator server",
			zap.String("addr", addr), zap.Int("attempt", retries+1), zap.Error(err))
		if retries == opts.DialRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
			// Wait 1 second and try again
		}
	}
	return nil, errors.TransportError{Op: "dial", Err: err}
}

// Push sends a batch of updates and blocks until the Server acknowledges that every
// update has been merged. If Push fails, the Client can no longer be used, since
// the Server may or may not have merged the batch.
func (c *Client) Push(ctx context.Context, batch []sifacc.Update) (err error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	defer func() {
		if err != nil {
			metrics.PushesTotal.WithLabelValues("error").Inc()
		} else {
			metrics.PushesTotal.WithLabelValues("ok").Inc()
		}
	}()
	if c.closed {
		return fmt.Errorf("accumulator client is closed")
	}
	if c.broken != nil {
		return fmt.Errorf("accumulator client is unusable after an earlier failure: %w", c.broken)
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	if err = c.conn.SetDeadline(time.Now().Add(c.opts.RPCTimeout)); err != nil {
		return c.fail("deadline", err)
	}
	// interrupt blocking I/O if ctx is cancelled
	interrupted := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetDeadline(time.Unix(1, 0))
		close(interrupted)
	})
	defer stop()
	if err = protocol.WriteBatch(c.writer, batch); err != nil {
		return c.fail("write", err)
	}
	if err = c.writer.Flush(); err != nil {
		return c.fail("write", err)
	}
	if err = protocol.ReadAck(c.reader); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return c.fail("ack", err)
	}
	if !stop() {
		// ctx was cancelled after the acknowledgement arrived
		<-interrupted
	}
	if err = c.conn.SetDeadline(time.Time{}); err != nil {
		return c.fail("deadline", err)
	}
	return nil
}

// PushTaskContext pushes the updates accumulated by a completed task
func (c *Client) PushTaskContext(ctx context.Context, tc *sifacc.TaskContext) error {
	updates := tc.Updates()
	c.log.Debug("Pushing task accumulator updates",
		zap.String("task_context", tc.ID()), zap.Int("updates", len(updates)))
	return c.Push(ctx, updates)
}

// Close announces the end of the update stream and closes the connection
func (c *Client) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	var result *multierror.Error
	if c.broken == nil {
		c.conn.SetDeadline(time.Now().Add(c.opts.RPCTimeout))
		if err := protocol.WriteEndOfStream(c.writer); err != nil {
			result = multierror.Append(result, err)
		} else if err := c.writer.Flush(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := c.conn.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// fail marks the Client as unusable and closes its connection
func (c *Client) fail(op string, err error) error {
	terr := errors.TransportError{Op: op, Err: err}
	c.broken = terr
	c.conn.Close()
	c.log.Warn("Accumulator push failed", zap.String("op", op), zap.Error(err))
	return terr
}
