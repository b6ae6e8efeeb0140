package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pingjob/matcher/internal/jobs"
	"github.com/pingjob/matcher/internal/pipeline"
	"github.com/pingjob/matcher/internal/profile"
)

const (
	PromptYes           = "Yes"
	PromptNo            = "No"
	PromptScoreAll      = "Score all remaining jobs"
	PromptReportByScore = "Report by score"
	PromptExit          = "exit"
)

var errExit = errors.New("exit requested")

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Score a resume against job postings",
	Run: func(cmd *cobra.Command, _ []string) {
		match(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("resume", "r", "", "resume file path or s3://bucket/key reference")
	matchCmd.Flags().String("jobs", "", "jobs file (yaml or json with a top-level jobs list)")
	matchCmd.Flags().String("job", "", "score only the job with this id")
	matchCmd.Flags().Bool("all", false, "score every job in the jobs file")
	matchCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before scoring all jobs")
	matchCmd.Flags().IntP("concurrency", "c", pipeline.DefaultConcurrency, "number of jobs extracted in parallel")
	matchCmd.MarkFlagRequired("resume")
}

func match(cmd *cobra.Command) {
	ctx := context.Background()
	logger, config := setup()

	logger.Info("starting the matcher", zap.String("version", version))

	catalogue, err := loadCatalogue(cmd, config)
	if err != nil {
		logger.Fatal("loading jobs", zap.Error(err))
	}

	if catalogue.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no jobs found"))
		return
	}

	concurrency, _ := cmd.Flags().GetInt("concurrency")
	scorer, err := newScorer(ctx, config, concurrency, logger)
	if err != nil {
		logger.Fatal("preparing the scorer", zap.Error(err))
	}

	ref, _ := cmd.Flags().GetString("resume")
	resume, err := scorer.LoadResume(ctx, ref)
	if err != nil {
		logger.Fatal("parsing the resume", zap.String("resume", ref), zap.Error(err))
	}

	logger.Info("resume parsed",
		zap.Int("skills", len(resume.Skills)),
		zap.Float64("total_experience_years", resume.TotalExperienceYears),
		zap.Int("jobs", catalogue.Len()),
	)

	out := cmd.OutOrStdout()
	autoApprove, _ := cmd.Flags().GetBool("auto-approve")

	if id, _ := cmd.Flags().GetString("job"); id != "" {
		job := catalogue.FindByID(id)
		if job == nil {
			logger.Fatal("there is no such job", zap.String("job_id", id))
		}
		if err := printJSON(out, scorer.ScoreAll(ctx, resume, []*jobs.Job{job})[0]); err != nil {
			logger.Fatal("writing the result", zap.Error(err))
		}
		return
	}

	if all, _ := cmd.Flags().GetBool("all"); all {
		if err := scoreAll(ctx, out, scorer, resume, catalogue, autoApprove, logger); err != nil && !errors.Is(err, errExit) {
			logger.Fatal("exiting", zap.Error(err))
		}
		return
	}

	if err := manualMatch(ctx, out, scorer, resume, catalogue, logger); err != nil {
		if errors.Is(err, errExit) {
			return
		}
		logger.Fatal("exiting", zap.Error(err))
	}
}

func scoreAll(ctx context.Context, out io.Writer, scorer *pipeline.Scorer, resume *profile.ParsedResume, catalogue *jobs.Catalogue, autoApprove bool, logger *zap.Logger) error {
	if !autoApprove {
		confirm := promptui.Select{
			Label: fmt.Sprintf("Score %d jobs?", catalogue.Len()),
			Items: []string{PromptYes, PromptNo},
		}

		_, answer, err := confirm.Run()
		if err != nil {
			return err
		}

		if answer == PromptNo {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return errExit
		}
	}

	outcomes := pipeline.Rank(scorer.ScoreAll(ctx, resume, catalogue.Items))
	logOutcomes(logger, outcomes)

	return printJSON(out, outcomes)
}

// manualMatch lets the user pick jobs one by one. Scored jobs leave the list.
func manualMatch(ctx context.Context, out io.Writer, scorer *pipeline.Scorer, resume *profile.ParsedResume, catalogue *jobs.Catalogue, logger *zap.Logger) error {
	var scored []pipeline.Outcome

	for {
		items := catalogue.Labels()
		if catalogue.Len() != 0 {
			items = append(items, PromptScoreAll)
		}
		if len(scored) != 0 {
			items = append(items, PromptReportByScore)
		}

		jobPrompt := promptui.Select{
			Label: "Choose a job and press ENTER",
			Items: append(items, PromptExit),
		}

		_, selected, err := jobPrompt.Run()
		if err != nil {
			return err
		}

		switch selected {
		case PromptExit:
			return errExit
		case PromptReportByScore:
			pretty, _ := json.MarshalIndent(pipeline.Report(scored), "", "  ")
			logger.Info(string(pretty), zap.Int("scored jobs", len(scored)))
		case PromptScoreAll:
			outcomes := scorer.ScoreAll(ctx, resume, catalogue.Items)
			scored = append(scored, outcomes...)
			catalogue.Exclude(outcomeJobIDs(outcomes))

			logOutcomes(logger, outcomes)
			if err := printJSON(out, pipeline.Rank(outcomes)); err != nil {
				return err
			}
		default:
			jobID := strings.Split(selected, " ")[0]

			job := catalogue.FindByID(jobID)
			if job == nil {
				return fmt.Errorf("there is no such job id %s", jobID)
			}

			outcome := scorer.ScoreAll(ctx, resume, []*jobs.Job{job})[0]
			scored = append(scored, outcome)
			catalogue.Exclude([]string{jobID})

			if err := printJSON(out, outcome); err != nil {
				return err
			}
		}
	}
}

func outcomeJobIDs(outcomes []pipeline.Outcome) []string {
	ids := make([]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		ids = append(ids, outcome.JobID)
	}
	return ids
}

func logOutcomes(logger *zap.Logger, outcomes []pipeline.Outcome) {
	unscored := 0
	for _, outcome := range outcomes {
		if outcome.Unscored {
			unscored++
		}
	}

	logger.Info("jobs scored",
		zap.Int("count", len(outcomes)),
		zap.Int("unscored", unscored),
	)
}
