package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agenthands/ontograph/internal/core/community"
	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/agenthands/ontograph/internal/core/traverse"
)

func expandCmd() *cobra.Command {
	var (
		depth       int
		communities string
	)

	cmd := &cobra.Command{
		Use:   "expand <type> <id>",
		Short: "Print the neighbourhood of an entity as graph JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(cmd)
			if err != nil {
				return fmt.Errorf("expand: %w", err)
			}
			defer closeEngine(e)

			var g *model.GraphData
			if communities == "" {
				g, err = e.Traversal.Expand(cmd.Context(), args[0], args[1], depth)
			} else {
				g, err = e.Traversal.ExpandWithCommunities(cmd.Context(), args[0], args[1], depth, communities)
			}
			if err != nil {
				return fmt.Errorf("expand: %w", err)
			}
			return printJSON(cmd, g)
		},
	}

	cmd.Flags().IntVar(&depth, "depth", traverse.MinDepth, fmt.Sprintf("hops to expand (%d-%d)", traverse.MinDepth, traverse.MaxDepth))
	cmd.Flags().StringVar(&communities, "communities", "",
		fmt.Sprintf("annotate nodes with communities (%s or %s)", community.MethodLPA, community.MethodComponents))
	return cmd
}

func provenanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "provenance <type> <id>",
		Short: "Show which file and content hash produced an entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(cmd)
			if err != nil {
				return fmt.Errorf("provenance: %w", err)
			}
			defer closeEngine(e)

			p, err := e.Traversal.Provenance(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("provenance: %w", err)
			}
			return printJSON(cmd, p)
		},
	}
}
