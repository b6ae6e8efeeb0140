package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var parseResumeCmd = &cobra.Command{
	Use:   "parse-resume",
	Short: "Extract a resume's text and print its structured form as JSON",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		logger, config := setup()

		ref, _ := cmd.Flags().GetString("resume")

		scorer, err := newScorer(ctx, config, 1, logger)
		if err != nil {
			logger.Fatal("preparing the parser", zap.Error(err))
		}

		resume, err := scorer.LoadResume(ctx, ref)
		if err != nil {
			logger.Fatal("parsing the resume", zap.String("resume", ref), zap.Error(err))
		}

		if err := printJSON(cmd.OutOrStdout(), resume); err != nil {
			logger.Fatal("writing the result", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(parseResumeCmd)

	parseResumeCmd.Flags().StringP("resume", "r", "", "resume file path or s3://bucket/key reference")
	parseResumeCmd.MarkFlagRequired("resume")
}
