package cli

import (
	"fmt"

	"character-quiz-service/internal/textmatch"
	"github.com/spf13/cobra"
)

// NewCheckCmd scores a free-text answer against a reference answer, which helps
// when tuning essay questions.
func NewCheckCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "check <answer> <reference> [reference...]",
		Short: "Score an essay answer against one or more reference answers",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			match := textmatch.ValidateAgainstMultiple(args[0], args[1:], strict)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "normalized: %q\n", textmatch.Normalize(args[0]))
			fmt.Fprintf(out, "correct:    %v\n", match.IsCorrect)
			fmt.Fprintf(out, "similarity: %d\n", match.Similarity)
			fmt.Fprintf(out, "confidence: %d\n", match.Confidence)
			if match.Candidate >= 0 {
				fmt.Fprintf(out, "best match: %q (%d of %d checked)\n", args[1+match.Candidate], match.Candidate+1, match.Evaluated)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "use strict thresholds")
	return cmd
}
