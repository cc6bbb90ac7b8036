package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func duplicatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "duplicates <type>",
		Short: "List candidate duplicate pairs for an object type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(cmd)
			if err != nil {
				return fmt.Errorf("duplicates: %w", err)
			}
			defer closeEngine(e)

			dups, err := e.Resolution.FindDuplicates(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("duplicates: %w", err)
			}
			return printJSON(cmd, dups)
		},
	}
}

func suggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest",
		Short: "Suggest merges across every type with a registered heuristic",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(cmd)
			if err != nil {
				return fmt.Errorf("suggest: %w", err)
			}
			defer closeEngine(e)

			sugg, err := e.Resolution.SuggestMerges(cmd.Context())
			if err != nil {
				return fmt.Errorf("suggest: %w", err)
			}
			return printJSON(cmd, sugg)
		},
	}
}

func resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <type> <primary-id> <duplicate-id>...",
		Short: "Record that duplicates are the same entity as the primary",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(cmd)
			if err != nil {
				return fmt.Errorf("resolve: %w", err)
			}
			defer closeEngine(e)

			if err := e.Resolution.Resolve(cmd.Context(), args[1], args[2:], args[0]); err != nil {
				return fmt.Errorf("resolve: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Resolved %d duplicate(s) into %s:%s\n", len(args)-2, args[0], args[1])
			return nil
		},
	}
}

func clusterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cluster <type> <id>",
		Short: "List every id resolved to the same entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(cmd)
			if err != nil {
				return fmt.Errorf("cluster: %w", err)
			}
			defer closeEngine(e)

			ids, err := e.Resolution.ResolvedCluster(cmd.Context(), args[1], args[0])
			if err != nil {
				return fmt.Errorf("cluster: %w", err)
			}
			return printJSON(cmd, ids)
		},
	}
}
