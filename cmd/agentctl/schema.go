package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type SchemaCmd struct{}

func NewSchemaCmd() *SchemaCmd {
	return &SchemaCmd{}
}

func (c *SchemaCmd) Command() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the schema description given to the model",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, cfg, err := setup(cmd, os.Stderr)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			d, err := newDataDeps(ctx, log, cfg)
			if err != nil {
				return err
			}
			defer d.Close()

			desc, err := d.schema.Describe(ctx)
			if err != nil {
				return fmt.Errorf("failed to describe schema: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), desc)
			return nil
		},
	}
}
