package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formblocks/internal/config"
	"github.com/goliatone/go-formblocks/pkg/validation"
	"github.com/goliatone/go-formblocks/pkg/visibility/celexpr"
)

var errLintFailed = errors.New("formblocks: configuration has issues")

func newLintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint <blocks.json>...",
		Short: "Check block configurations for structural errors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			evaluator, err := celexpr.New()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			failed := false
			for _, path := range args {
				blocks, err := config.ReadBlocks(path)
				if err != nil {
					return err
				}
				result := validation.ValidateConfig(blocks)
				for _, issue := range result.Issues {
					fmt.Fprintf(out, "%s%s %s: %s\n", path, issue.Path, issue.Field, issue.Message)
				}
				for i, b := range blocks {
					if b.VisibleWhen == "" {
						continue
					}
					if err := evaluator.Compile(b.VisibleWhen); err != nil {
						result.Valid = false
						fmt.Fprintf(out, "%s/%d %s: %v\n", path, i, b.Key(), err)
					}
				}
				if !result.Valid {
					failed = true
					continue
				}
				fmt.Fprintf(out, "%s: ok (%d blocks)\n", path, len(blocks))
			}
			if failed {
				return errLintFailed
			}
			return nil
		},
	}
}
