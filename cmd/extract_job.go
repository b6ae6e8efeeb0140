package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pingjob/matcher/internal/jobs"
	"github.com/pingjob/matcher/internal/profile"
)

var extractJobCmd = &cobra.Command{
	Use:   "extract-job",
	Short: "Extract structured requirements from job postings",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		logger, config := setup()

		catalogue, err := loadCatalogue(cmd, config)
		if err != nil {
			logger.Fatal("loading jobs", zap.Error(err))
		}

		selected := catalogue.Items
		if id, _ := cmd.Flags().GetString("job"); id != "" {
			job := catalogue.FindByID(id)
			if job == nil {
				logger.Fatal("there is no such job", zap.String("job_id", id))
			}
			selected = []*jobs.Job{job}
		}

		parser, err := newParser(ctx, config.AI, logger)
		if err != nil {
			logger.Fatal("preparing the parser", zap.Error(err))
		}

		result := make(map[string]*profile.JobRequirements, len(selected))
		for _, job := range selected {
			reqs, err := parser.ExtractJobRequirements(ctx, job.Posting())
			if err != nil {
				logger.Fatal("extracting job requirements", zap.String("job_id", job.ID), zap.Error(err))
			}
			result[job.ID] = reqs
		}

		if err := printJSON(cmd.OutOrStdout(), result); err != nil {
			logger.Fatal("writing the result", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(extractJobCmd)

	extractJobCmd.Flags().String("jobs", "", "jobs file (yaml or json with a top-level jobs list)")
	extractJobCmd.Flags().String("job", "", "extract only the job with this id")
}

// loadCatalogue reads the jobs file from the --jobs flag or the jobs config key.
func loadCatalogue(cmd *cobra.Command, config *Config) (*jobs.Catalogue, error) {
	path, _ := cmd.Flags().GetString("jobs")
	if path == "" {
		path = config.Jobs
	}
	return jobs.Load(path)
}
