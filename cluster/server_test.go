package cluster

import (
	"context"
	goerrors "errors"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/go-sif/sifacc"
	"github.com/go-sif/sifacc/accumulators"
	"github.com/go-sif/sifacc/errors"
	"github.com/go-sif/sifacc/internal/protocol"
	"github.com/go-sif/sifacc/registry"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func startTestServer(t *testing.T, reg *registry.Registry) (*Server, int) {
	server := NewServer(reg, &ServerOptions{Host: "127.0.0.1"})
	port, err := server.Start()
	require.Nil(t, err)
	require.NotZero(t, port)
	return server, port
}

func dialRaw(t *testing.T, port int) net.Conn {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), time.Second)
	require.Nil(t, err)
	return conn
}

func waitStopped(t *testing.T, server *Server) {
	select {
	case <-server.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop in time")
	}
}

func TestServerMergesBatchAndAcks(t *testing.T) {
	defer goleak.VerifyNone(t)
	reg := registry.New(nil)
	acc, err := sifacc.NewDriverAccumulator(1, sifacc.Int64(0), accumulators.IntSum())
	require.Nil(t, err)
	require.Nil(t, reg.Register(acc))
	server, port := startTestServer(t, reg)
	defer server.Shutdown()

	conn := dialRaw(t, port)
	defer conn.Close()
	require.Nil(t, protocol.WriteBatch(conn, []sifacc.Update{
		{ID: 1, Value: sifacc.Int64(5)},
		{ID: 1, Value: sifacc.Int64(3)},
	}))
	ack := make([]byte, 1)
	_, err = io.ReadFull(conn, ack)
	require.Nil(t, err)
	require.Equal(t, protocol.AckByte, ack[0])

	v, err := reg.Read(1)
	require.Nil(t, err)
	require.True(t, v.Equal(sifacc.Int64(8)))
	require.Equal(t, Serving, server.State())

	// exactly one ack per batch
	require.Nil(t, conn.SetReadDeadline(time.Now().Add(50*time.Millisecond)))
	_, err = conn.Read(ack)
	var nerr net.Error
	require.True(t, goerrors.As(err, &nerr) && nerr.Timeout())

	require.Nil(t, server.Shutdown())
	require.Nil(t, server.Err())
	require.Equal(t, Stopped, server.State())
	require.EqualValues(t, 1, server.Stats().GetNumBatchesMerged())
	require.EqualValues(t, 2, server.Stats().GetNumUpdatesMerged())
}

func TestServerMergesBatchesInArrivalOrder(t *testing.T) {
	defer goleak.VerifyNone(t)
	reg := registry.New(nil)
	acc, err := sifacc.NewDriverAccumulator(2, sifacc.String(""), accumulators.Concat())
	require.Nil(t, err)
	require.Nil(t, reg.Register(acc))
	server, port := startTestServer(t, reg)
	defer server.Shutdown()

	conn := dialRaw(t, port)
	defer conn.Close()
	for _, s := range []string{"a", "b"} {
		require.Nil(t, protocol.WriteBatch(conn, []sifacc.Update{{ID: 2, Value: sifacc.String(s)}}))
		require.Nil(t, protocol.ReadAck(conn))
	}
	v, err := reg.Read(2)
	require.Nil(t, err)
	require.True(t, v.Equal(sifacc.String("ab")))
}

func TestServerRecoversUnregisteredID(t *testing.T) {
	defer goleak.VerifyNone(t)
	reg := registry.New(nil)
	server, port := startTestServer(t, reg)
	defer server.Shutdown()

	conn := dialRaw(t, port)
	defer conn.Close()
	require.Nil(t, protocol.WriteBatch(conn, []sifacc.Update{{ID: 12, Value: sifacc.Float64(2.5)}}))
	require.Nil(t, protocol.ReadAck(conn))

	acc, err := reg.Lookup(12)
	require.Nil(t, err)
	require.Equal(t, sifacc.Driver, acc.Role())
	v, err := acc.Read()
	require.Nil(t, err)
	require.True(t, v.Equal(sifacc.Float64(2.5)))
}

func TestShutdownWhileListening(t *testing.T) {
	defer goleak.VerifyNone(t)
	server, port := startTestServer(t, registry.New(nil))
	require.Equal(t, Listening, server.State())

	stopped := make(chan error, 1)
	go func() { stopped <- server.Shutdown() }()
	select {
	case err := <-stopped:
		require.Nil(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Shutdown did not return in time")
	}
	waitStopped(t, server)
	require.Nil(t, server.Err())
	require.Equal(t, Stopped, server.State())

	_, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), time.Second)
	require.NotNil(t, err)

	// idempotent
	require.Nil(t, server.Shutdown())
}

func TestShutdownWhileServing(t *testing.T) {
	defer goleak.VerifyNone(t)
	server, port := startTestServer(t, registry.New(nil))
	conn := dialRaw(t, port)
	defer conn.Close()
	// a completed round trip guarantees the server is blocked reading the next batch
	require.Nil(t, protocol.WriteBatch(conn, nil))
	require.Nil(t, protocol.ReadAck(conn))

	require.Nil(t, server.Shutdown())
	waitStopped(t, server)
	require.Nil(t, server.Err())
	// the forced close is visible to the worker
	_, err := conn.Read(make([]byte, 1))
	require.NotNil(t, err)
}

func TestServerAcceptsOneConnection(t *testing.T) {
	defer goleak.VerifyNone(t)
	server, port := startTestServer(t, registry.New(nil))
	defer server.Shutdown()
	conn := dialRaw(t, port)
	defer conn.Close()
	require.Nil(t, protocol.WriteBatch(conn, nil))
	require.Nil(t, protocol.ReadAck(conn))

	_, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), time.Second)
	require.NotNil(t, err)
}

func TestServerStopsWhenWorkerEndsStream(t *testing.T) {
	defer goleak.VerifyNone(t)
	server, port := startTestServer(t, registry.New(nil))
	conn := dialRaw(t, port)
	require.Nil(t, protocol.WriteEndOfStream(conn))
	waitStopped(t, server)
	require.Nil(t, server.Err())
	conn.Close()

	server, port = startTestServer(t, registry.New(nil))
	conn = dialRaw(t, port)
	conn.Close()
	waitStopped(t, server)
	require.Nil(t, server.Err())
}

func TestServerTerminatesOnMergeFailure(t *testing.T) {
	defer goleak.VerifyNone(t)
	reg := registry.New(nil)
	acc, err := sifacc.NewDriverAccumulator(1, sifacc.Int64(0), accumulators.IntSum())
	require.Nil(t, err)
	require.Nil(t, reg.Register(acc))
	server, port := startTestServer(t, reg)
	conn := dialRaw(t, port)
	defer conn.Close()

	require.Nil(t, protocol.WriteBatch(conn, []sifacc.Update{{ID: 1, Value: sifacc.String("x")}}))
	waitStopped(t, server)
	var merr errors.MergeError
	require.True(t, goerrors.As(server.Err(), &merr))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.Equal(t, server.Err(), server.Wait(ctx))

	// no ack is sent for a failed batch
	require.NotNil(t, protocol.ReadAck(conn))
	require.Nil(t, server.Shutdown())
}

func TestServerTerminatesOnMalformedBatch(t *testing.T) {
	defer goleak.VerifyNone(t)
	server, port := startTestServer(t, registry.New(nil))
	conn := dialRaw(t, port)
	defer conn.Close()

	// one entry with a negative length
	_, err := conn.Write([]byte{0, 0, 0, 1, 0xff, 0xff, 0xff, 0xf0})
	require.Nil(t, err)
	waitStopped(t, server)
	var terr errors.TransportError
	require.True(t, goerrors.As(server.Err(), &terr))
	require.Equal(t, "read", terr.Op)
	var perr errors.ProtocolError
	require.True(t, goerrors.As(server.Err(), &perr))
}

func TestServerTerminatesOnTruncatedBatch(t *testing.T) {
	defer goleak.VerifyNone(t)
	server, port := startTestServer(t, registry.New(nil))
	conn := dialRaw(t, port)
	_, err := conn.Write([]byte{0, 0, 0, 3})
	require.Nil(t, err)
	conn.Close()
	waitStopped(t, server)
	require.True(t, goerrors.Is(server.Err(), io.ErrUnexpectedEOF))
}

func TestServerLifecycleErrors(t *testing.T) {
	defer goleak.VerifyNone(t)
	server, _ := startTestServer(t, registry.New(nil))
	_, err := server.Start()
	var serr errors.ServerStateError
	require.True(t, goerrors.As(err, &serr))
	require.Nil(t, server.Shutdown())
	_, err = server.Start()
	require.True(t, goerrors.As(err, &serr))

	// shutting down a server which was never started
	idle := NewServer(registry.New(nil), nil)
	require.Equal(t, Idle, idle.State())
	require.Nil(t, idle.Addr())
	require.Nil(t, idle.Shutdown())
	waitStopped(t, idle)
}

func TestServerStartFailsOnBoundPort(t *testing.T) {
	defer goleak.VerifyNone(t)
	first, port := startTestServer(t, registry.New(nil))
	defer first.Shutdown()
	second := NewServer(registry.New(nil), &ServerOptions{Host: "127.0.0.1", Port: port})
	_, err := second.Start()
	var terr errors.TransportError
	require.True(t, goerrors.As(err, &terr))
	require.Equal(t, "listen", terr.Op)
	require.Nil(t, second.Shutdown())
}

func TestServerWaitRespectsContext(t *testing.T) {
	defer goleak.VerifyNone(t)
	server, _ := startTestServer(t, registry.New(nil))
	defer server.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Equal(t, context.DeadlineExceeded, server.Wait(ctx))
}
