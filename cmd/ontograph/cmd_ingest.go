package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func ingestCmd() *cobra.Command {
	var withIndices bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load every dataset file declared by the ontology into the graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(cmd)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer closeEngine(e)

			if withIndices {
				if err := e.BuildIndices(cmd.Context()); err != nil {
					return fmt.Errorf("ingest: building indices: %w", err)
				}
			}
			report, runErr := e.Ingest(cmd.Context())
			if report != nil {
				if err := printJSON(cmd, report); err != nil {
					return err
				}
			}
			if runErr != nil {
				return fmt.Errorf("ingest: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withIndices, "indices", true, "create key constraints before loading")
	return cmd
}

func indicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indices",
		Short: "Create a uniqueness constraint on the key of every object type",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(cmd)
			if err != nil {
				return fmt.Errorf("indices: %w", err)
			}
			defer closeEngine(e)

			if err := e.BuildIndices(cmd.Context()); err != nil {
				return fmt.Errorf("indices: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Constraints ensured.")
			return nil
		},
	}
}
