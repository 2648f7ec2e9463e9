package main

import (
	"context"
	"fmt"

	"github.com/go-sif/sifacc"
	"github.com/go-sif/sifacc/cluster"
	"github.com/go-sif/sifacc/logging"
	"github.com/spf13/cobra"
)

type pushFlags struct {
	addr     string
	id       int32
	intVal   int64
	floatVal float64
	strVal   string
	logLevel string
}

func newPushCommand() *cobra.Command {
	flags := &pushFlags{}
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push a single accumulator update to a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := flags.value(cmd)
			if err != nil {
				return err
			}
			log, err := logging.New(flags.logLevel)
			if err != nil {
				return err
			}
			defer log.Sync()
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			client, err := cluster.Dial(ctx, flags.addr, &cluster.ClientOptions{Logger: log})
			if err != nil {
				return err
			}
			if err = client.Push(ctx, []sifacc.Update{{ID: flags.id, Value: v}}); err != nil {
				client.Close()
				return err
			}
			return client.Close()
		},
	}
	cmd.Flags().StringVar(&flags.addr, "addr", "127.0.0.1:1643", "address of the accumulator server")
	cmd.Flags().Int32Var(&flags.id, "id", 0, "accumulator id")
	cmd.Flags().Int64Var(&flags.intVal, "int", 0, "integer value to add")
	cmd.Flags().Float64Var(&flags.floatVal, "float", 0, "floating-point value to add")
	cmd.Flags().StringVar(&flags.strVal, "string", "", "string value to append")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "WARN", "log level")
	return cmd
}

// value selects the single value flag which was supplied
func (f *pushFlags) value(cmd *cobra.Command) (sifacc.Value, error) {
	var values []sifacc.Value
	if cmd.Flags().Changed("int") {
		values = append(values, sifacc.Int64(f.intVal))
	}
	if cmd.Flags().Changed("float") {
		values = append(values, sifacc.Float64(f.floatVal))
	}
	if cmd.Flags().Changed("string") {
		values = append(values, sifacc.String(f.strVal))
	}
	if len(values) != 1 {
		return sifacc.Value{}, fmt.Errorf("exactly one of --int, --float or --string must be supplied")
	}
	return values[0], nil
}
