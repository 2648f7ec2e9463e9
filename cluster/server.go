package cluster

import (
	"bufio"
	"context"
	goerrors "errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-sif/sifacc"
	"github.com/go-sif/sifacc/errors"
	"github.com/go-sif/sifacc/internal/metrics"
	"github.com/go-sif/sifacc/internal/protocol"
	"github.com/go-sif/sifacc/internal/stats"
	"github.com/go-sif/sifacc/registry"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// Server receives accumulator updates from workers and merges them into a
// Registry. A Server accepts exactly one aggregation connection during its
// lifetime; all of a worker process's tasks share that connection through a
// single Client. The serving loop runs in the background, and its termination
// is observable through Done and Err.
type Server struct {
	opts          *ServerOptions
	registry      *registry.Registry
	log           *zap.Logger
	lifecycleLock sync.Mutex
	state         State
	listener      net.Listener
	conn          net.Conn
	addr          net.Addr
	stopping      atomic.Bool
	done          chan struct{}
	err           error
	statsTracker  *stats.ServiceStatistics
}

// NewServer creates a Server which merges updates into reg
func NewServer(reg *registry.Registry, opts *ServerOptions) *Server {
	if opts == nil {
		opts = &ServerOptions{}
	}
	opts = CloneServerOptions(opts)
	ensureDefaultServerOptionsValues(opts)
	return &Server{
		opts:         opts,
		registry:     reg,
		log:          opts.Logger,
		done:         make(chan struct{}),
		statsTracker: &stats.ServiceStatistics{},
	}
}

// Start binds the Server and begins serving in the background, returning the bound port
// without waiting for a connection
func (s *Server) Start() (int, error) {
	s.lifecycleLock.Lock()
	defer s.lifecycleLock.Unlock()
	if s.state != Idle {
		return 0, errors.ServerStateError{State: s.state.String()}
	}
	lis, err := net.Listen("tcp", s.opts.connectionString())
	if err != nil {
		return 0, errors.TransportError{Op: "listen", Err: err}
	}
	s.listener = lis
	s.addr = lis.Addr()
	s.state = Listening
	s.statsTracker.Start()
	port := lis.Addr().(*net.TCPAddr).Port
	s.log.Info("Accumulator server listening", zap.String("addr", s.addr.String()))
	go s.run(lis)
	return port, nil
}

// Shutdown stops the Server, interrupting any blocked accept or read, and waits
// for the serving loop to exit. It is safe to call more than once, and on a
// Server which has already stopped.
func (s *Server) Shutdown() error {
	s.lifecycleLock.Lock()
	switch s.state {
	case Idle:
		s.state = Stopped
		close(s.done)
		s.lifecycleLock.Unlock()
		return nil
	case Stopped:
		s.lifecycleLock.Unlock()
		return nil
	case ShuttingDown:
		s.lifecycleLock.Unlock()
		<-s.done
		return nil
	}
	s.stopping.Store(true)
	s.state = ShuttingDown
	var result *multierror.Error
	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !goerrors.Is(err, net.ErrClosed) {
			result = multierror.Append(result, err)
		}
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil && !goerrors.Is(err, net.ErrClosed) {
			result = multierror.Append(result, err)
		}
	}
	s.lifecycleLock.Unlock()
	<-s.done
	return result.ErrorOrNil()
}

// Done is closed once the serving loop has exited
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Err returns the failure which terminated the serving loop, or nil if it has
// not terminated or terminated normally
func (s *Server) Err() error {
	s.lifecycleLock.Lock()
	defer s.lifecycleLock.Unlock()
	return s.err
}

// Wait blocks until the serving loop exits, returning its failure, if any
func (s *Server) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return s.Err()
	}
}

// State returns the current lifecycle State of the Server
func (s *Server) State() State {
	s.lifecycleLock.Lock()
	defer s.lifecycleLock.Unlock()
	return s.state
}

// Addr returns the address the Server is bound to, or nil if it has not been started
func (s *Server) Addr() net.Addr {
	s.lifecycleLock.Lock()
	defer s.lifecycleLock.Unlock()
	return s.addr
}

// Stats returns statistics about the batches this Server has merged
func (s *Server) Stats() sifacc.ServiceStatistics {
	return s.statsTracker
}

func (s *Server) run(lis net.Listener) {
	err := s.serve(lis)
	s.lifecycleLock.Lock()
	s.state = Stopped
	s.err = err
	s.lifecycleLock.Unlock()
	s.statsTracker.Finish()
	if err != nil {
		metrics.ServerFailuresTotal.Inc()
		s.log.Error("Accumulator server terminated abnormally", zap.Error(err))
	} else {
		s.log.Info("Accumulator server stopped")
	}
	close(s.done)
}

func (s *Server) serve(lis net.Listener) error {
	conn, err := lis.Accept()
	if err != nil {
		if s.isShutdownError(err) {
			return nil
		}
		return errors.TransportError{Op: "accept", Err: err}
	}
	s.lifecycleLock.Lock()
	if s.stopping.Load() {
		// Shutdown won the race with Accept
		s.lifecycleLock.Unlock()
		conn.Close()
		return nil
	}
	s.conn = conn
	s.state = Serving
	s.lifecycleLock.Unlock()
	defer conn.Close()
	// no further connections are accepted
	if err := lis.Close(); err != nil && !goerrors.Is(err, net.ErrClosed) {
		s.log.Warn("Unable to close accumulator listener", zap.Error(err))
	}
	s.log.Info("Accepted accumulator aggregation connection", zap.String("remote", conn.RemoteAddr().String()))

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)
	for {
		if s.stopping.Load() {
			return nil
		}
		batch, err := protocol.ReadBatch(reader, s.opts.MaxEntrySize)
		if err != nil {
			switch {
			case s.isShutdownError(err):
				return nil
			case err == io.EOF:
				s.log.Info("Aggregation connection closed by worker")
				return nil
			case goerrors.Is(err, protocol.ErrEndOfStream):
				s.log.Info("Worker ended the update stream")
				return nil
			default:
				return errors.TransportError{Op: "read", Err: err}
			}
		}
		start := time.Now()
		if err = s.registry.MergeBatch(batch); err != nil {
			return err
		}
		metrics.BatchesTotal.Inc()
		metrics.BatchSize.Observe(float64(len(batch)))
		if err = protocol.WriteAck(writer); err == nil {
			err = writer.Flush()
		}
		if err != nil {
			if s.isShutdownError(err) {
				return nil
			}
			return errors.TransportError{Op: "ack", Err: err}
		}
		s.statsTracker.RecordBatch(start, len(batch))
	}
}

// isShutdownError determines whether a network error was caused by Shutdown closing a socket
func (s *Server) isShutdownError(err error) bool {
	return s.stopping.Load() || goerrors.Is(err, net.ErrClosed)
}
