// Package pipeline runs extraction, structuring and scoring for resume/job pairs.
package pipeline

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pingjob/matcher/internal/extract"
	"github.com/pingjob/matcher/internal/jobs"
	"github.com/pingjob/matcher/internal/logger"
	"github.com/pingjob/matcher/internal/matching"
	"github.com/pingjob/matcher/internal/objectstore"
	"github.com/pingjob/matcher/internal/profile"
)

const DefaultConcurrency = 3

type structurer interface {
	ParseResumeContent(ctx context.Context, text string) (*profile.ParsedResume, error)
	ExtractJobRequirements(ctx context.Context, posting profile.JobPosting) (*profile.JobRequirements, error)
}

type resumeFetcher interface {
	Fetch(ctx context.Context, ref string) (string, func(), error)
}

// Application pairs a resume reference (local path or s3:// URI) with a job.
type Application struct {
	ID     string
	Resume string
	Job    *jobs.Job
}

// Outcome is the result of scoring one application. Unscored outcomes carry the
// reason instead of a score computed from an empty record.
type Outcome struct {
	ApplicationID string                 `json:"application_id,omitempty"`
	JobID         string                 `json:"job_id"`
	JobTitle      string                 `json:"job_title"`
	Score         *profile.MatchingScore `json:"score,omitempty"`
	Unscored      bool                   `json:"unscored"`
	Reason        string                 `json:"reason,omitempty"`
}

type Options struct {
	Concurrency int
}

type Scorer struct {
	parser      structurer
	fetcher     resumeFetcher
	concurrency int
	logger      *zap.Logger
}

// NewScorer builds a Scorer. fetcher may be nil when resumes are only read from disk.
func NewScorer(parser structurer, fetcher resumeFetcher, log *zap.Logger, opts Options) *Scorer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	return &Scorer{
		parser:      parser,
		fetcher:     fetcher,
		concurrency: opts.Concurrency,
		logger:      logger.WithFields(log),
	}
}

// LoadResume reads the resume at ref and structures it.
func (s *Scorer) LoadResume(ctx context.Context, ref string) (*profile.ParsedResume, error) {
	text, err := s.ReadResume(ctx, ref)
	if err != nil {
		return nil, err
	}

	return s.parser.ParseResumeContent(ctx, text)
}

// ReadResume returns the raw text of the resume at ref, downloading s3:// references first.
func (s *Scorer) ReadResume(ctx context.Context, ref string) (string, error) {
	if !objectstore.IsRemote(ref) {
		return extract.ReadResumeFile(ref)
	}

	if s.fetcher == nil {
		return "", objectstore.ErrNotConfigured
	}

	path, cleanup, err := s.fetcher.Fetch(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("fetch resume: %w", err)
	}
	defer cleanup()

	return extract.ReadResumeFile(path)
}

// Score structures the resume and the job concurrently and scores them.
func (s *Scorer) Score(ctx context.Context, app Application) Outcome {
	outcome := newOutcome(app.ID, app.Job)
	log := logger.WithApplication(s.logger, app.ID, outcome.JobID)

	if app.Job == nil {
		return outcome.unscored("job is missing")
	}

	var (
		resume *profile.ParsedResume
		reqs   *profile.JobRequirements
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if resume, err = s.LoadResume(gctx, app.Resume); err != nil {
			return fmt.Errorf("resume: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if reqs, err = s.parser.ExtractJobRequirements(gctx, app.Job.Posting()); err != nil {
			return fmt.Errorf("job requirements: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Warn("application left unscored", zap.Error(err))
		return outcome.unscored(err.Error())
	}

	score := matching.CalculateMatchingScore(resume, reqs)
	log.Debug("application scored", zap.Int("total_score", score.TotalScore))

	outcome.Score = &score
	return outcome
}

// ScoreAll scores one structured resume against every job. Requirement extraction
// runs with bounded concurrency and a failed job never cancels the others.
// Outcomes are returned in the order of jobs.
func (s *Scorer) ScoreAll(ctx context.Context, resume *profile.ParsedResume, items []*jobs.Job) []Outcome {
	outcomes := make([]Outcome, len(items))

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, job := range items {
		g.Go(func() error {
			outcomes[i] = s.scoreJob(ctx, resume, job)
			return nil
		})
	}

	_ = g.Wait()

	return outcomes
}

func (s *Scorer) scoreJob(ctx context.Context, resume *profile.ParsedResume, job *jobs.Job) Outcome {
	outcome := newOutcome("", job)
	if job == nil {
		return outcome.unscored("job is missing")
	}

	reqs, err := s.parser.ExtractJobRequirements(ctx, job.Posting())
	if err != nil {
		s.logger.Warn("job left unscored", zap.String(logger.FieldJobID, job.ID), zap.Error(err))
		return outcome.unscored(fmt.Sprintf("job requirements: %v", err))
	}

	score := matching.CalculateMatchingScore(resume, reqs)
	outcome.Score = &score
	return outcome
}

func newOutcome(applicationID string, job *jobs.Job) Outcome {
	outcome := Outcome{ApplicationID: applicationID}
	if job != nil {
		outcome.JobID = job.ID
		outcome.JobTitle = job.Title
	}
	return outcome
}

func (o Outcome) unscored(reason string) Outcome {
	o.Unscored = true
	o.Reason = reason
	o.Score = nil
	return o
}

// Rank orders outcomes by total score, highest first, with unscored outcomes last.
func Rank(outcomes []Outcome) []Outcome {
	ranked := make([]Outcome, len(outcomes))
	copy(ranked, outcomes)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Unscored != b.Unscored {
			return !a.Unscored
		}
		if a.Unscored {
			return false
		}
		return a.Score.TotalScore > b.Score.TotalScore
	})

	return ranked
}

// Report groups outcome summaries by total score for display, unscored ones under "unscored".
func Report(outcomes []Outcome) map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, outcome := range outcomes {
		key := "unscored"
		entry := map[string]string{
			"job_id":    outcome.JobID,
			"job_title": outcome.JobTitle,
		}

		if outcome.Unscored {
			entry["reason"] = outcome.Reason
		} else {
			key = fmt.Sprintf("%d/10", outcome.Score.TotalScore)
			entry["skills_matched"] = fmt.Sprintf("%v", outcome.Score.Breakdown.SkillsMatched)
			entry["experience_match"] = fmt.Sprintf("%t", outcome.Score.Breakdown.ExperienceMatch)
			entry["education_match"] = fmt.Sprintf("%t", outcome.Score.Breakdown.EducationMatch)
		}

		report[key] = append(report[key], entry)
	}
	return report
}
