// Package parsing turns raw resume text and job postings into structured records
// through a single completion call each.
package parsing

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/pingjob/matcher/internal/ai"
	"github.com/pingjob/matcher/internal/logger"
	"github.com/pingjob/matcher/internal/profile"
	"github.com/pingjob/matcher/internal/utils"
)

const (
	OpParseResume   = "parse resume"
	OpExtractJob    = "extract job requirements"
	ResumeMaxTokens = 2000
	JobMaxTokens    = 1500

	DefaultTimeout      = 60 * time.Second
	defaultMaxLogLength = 200
)

//go:embed resume_prompt.md
var resumePromptTemplate string

//go:embed job_prompt.md
var jobPromptTemplate string

// Options tune a Parser. Zero values select the defaults.
type Options struct {
	Timeout      time.Duration
	MaxLogLength int
}

// Parser extracts structured records through an ai.Completer.
// It keeps no per-call state and is safe for concurrent use.
type Parser struct {
	completer ai.Completer
	timeout   time.Duration
	maxLogLen int
	logger    *zap.Logger
}

func NewParser(completer ai.Completer, log *zap.Logger, opts Options) *Parser {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxLogLength <= 0 {
		opts.MaxLogLength = defaultMaxLogLength
	}

	return &Parser{
		completer: completer,
		timeout:   opts.Timeout,
		maxLogLen: opts.MaxLogLength,
		logger:    logger.WithFields(log),
	}
}

// ParseResumeContent structures raw resume text. Missing or mistyped fields in the
// model output are defaulted; output that is not a JSON object is a *ParseError.
func (p *Parser) ParseResumeContent(ctx context.Context, text string) (*profile.ParsedResume, error) {
	prompt := strings.ReplaceAll(resumePromptTemplate, "{{RESUME_TEXT}}", text)

	data, err := p.completeObject(ctx, OpParseResume, prompt, ResumeMaxTokens)
	if err != nil {
		return nil, err
	}

	resume, err := profile.DecodeResume(data)
	if err != nil {
		return nil, &ParseError{Op: OpParseResume, Message: "decode resume", Cause: err}
	}

	p.logger.Debug("resume parsed",
		zap.Int("skills", len(resume.Skills)),
		zap.Int("positions", len(resume.Experience)),
		zap.Float64("total_experience_years", resume.TotalExperienceYears),
	)

	return resume, nil
}

// ExtractJobRequirements derives the requirements of posting. The experience level of
// the posting is passed to the model as a hint only.
func (p *Parser) ExtractJobRequirements(ctx context.Context, posting profile.JobPosting) (*profile.JobRequirements, error) {
	prompt := buildJobPrompt(posting)

	data, err := p.completeObject(ctx, OpExtractJob, prompt, JobMaxTokens)
	if err != nil {
		return nil, err
	}

	reqs, defaulted, err := profile.DecodeJobRequirements(data, posting.Title)
	if err != nil {
		return nil, &ParseError{Op: OpExtractJob, Message: "decode job requirements", Cause: err}
	}

	if len(defaulted) != 0 {
		p.logger.Debug("job requirements fell back to defaults",
			zap.String(logger.FieldOperation, OpExtractJob),
			zap.Strings("fields", defaulted),
		)
	}

	p.logger.Debug("job requirements extracted",
		zap.String("job_title", reqs.JobTitle),
		zap.String("experience_level", string(reqs.ExperienceLevel)),
		zap.String("education", string(reqs.Education)),
	)

	return reqs, nil
}

func buildJobPrompt(posting profile.JobPosting) string {
	replacer := strings.NewReplacer(
		"{{JOB_TITLE}}", posting.Title,
		"{{EXPERIENCE_LEVEL}}", posting.ExperienceLevel,
		"{{JOB_DESCRIPTION}}", posting.Description,
		"{{JOB_REQUIREMENTS}}", posting.Requirements,
	)
	return replacer.Replace(jobPromptTemplate)
}

func (p *Parser) completeObject(ctx context.Context, op, prompt string, maxTokens int32) (map[string]any, error) {
	if p == nil || p.completer == nil {
		return nil, &ParseError{Op: op, Message: "completion client is not configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.logger.Debug("completion request",
		zap.String(logger.FieldOperation, op),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.Int32("max_output_tokens", maxTokens),
	)

	raw, err := p.completer.Complete(ctx, prompt, maxTokens)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Op: op, Timeout: p.timeout, Cause: err}
		}
		return nil, &ParseError{Op: op, Message: "completion failed", Cause: err}
	}

	p.logger.Debug("completion response",
		zap.String(logger.FieldOperation, op),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, p.maxLogLen)),
	)

	return parseObject(op, raw)
}

func parseObject(op, raw string) (map[string]any, error) {
	var value any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &value); err != nil {
		return nil, &ParseError{Op: op, Message: "response is not valid JSON", Raw: raw, Cause: err}
	}

	data, ok := value.(map[string]any)
	if !ok {
		return nil, &ParseError{Op: op, Message: "response is not a JSON object", Raw: raw}
	}

	return data, nil
}

// extractJSON strips the markdown code fence models tend to wrap JSON in.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
