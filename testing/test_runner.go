package testing

import (
	"context"
	"fmt"

	"github.com/go-sif/sifacc"
	"github.com/go-sif/sifacc/cluster"
	"github.com/go-sif/sifacc/registry"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// Task is a unit of worker-side work which adds to accumulators through its TaskContext
type Task func(ctx context.Context, taskIndex int, tc *sifacc.TaskContext) error

// LocalRunOptions configure LocalRunTasks
type LocalRunOptions struct {
	Concurrency int                    // maximum number of tasks running at once (defaults to all of them)
	Server      *cluster.ServerOptions // options for the localhost Server (Host and Port are overridden)
	Client      *cluster.ClientOptions // options for the worker Client
}

// LocalRunTasks runs numTasks tasks concurrently against a localhost accumulator
// Server backed by reg. Every task receives its own TaskContext, whose updates are
// pushed over a single shared Client once the task completes. When LocalRunTasks
// returns without error, every update has been merged into reg.
func LocalRunTasks(ctx context.Context, reg *registry.Registry, numTasks int, task Task, opts *LocalRunOptions) (err error) {
	if opts == nil {
		opts = &LocalRunOptions{}
	}
	sopts := &cluster.ServerOptions{}
	if opts.Server != nil {
		sopts = cluster.CloneServerOptions(opts.Server)
	}
	sopts.Host = "127.0.0.1"
	sopts.Port = 0

	// start the driver side
	server := cluster.NewServer(reg, sopts)
	port, err := server.Start()
	if err != nil {
		return err
	}
	defer func() {
		if serr := server.Shutdown(); serr != nil {
			err = multierror.Append(err, serr).ErrorOrNil()
		}
	}()

	// connect the worker side
	client, err := cluster.Dial(ctx, fmt.Sprintf("127.0.0.1:%d", port), opts.Client)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for i := 0; i < numTasks; i++ {
		taskIndex := i
		g.Go(func() error {
			tc, err := sifacc.NewTaskContext()
			if err != nil {
				return err
			}
			if err = task(gctx, taskIndex, tc); err != nil {
				return fmt.Errorf("task %d failed: %w", taskIndex, err)
			}
			return client.PushTaskContext(gctx, tc)
		})
	}
	if err = g.Wait(); err != nil {
		client.Close()
		return err
	}
	if err = client.Close(); err != nil {
		return err
	}
	// the server stops on its own once the client ends the stream
	return server.Wait(ctx)
}
