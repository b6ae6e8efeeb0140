// Package worker consumes match requests from an AMQP queue and publishes their scores.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pingjob/matcher/internal/jobs"
	"github.com/pingjob/matcher/internal/logger"
	"github.com/pingjob/matcher/internal/pipeline"
	"github.com/pingjob/matcher/internal/profile"
)

const (
	DefaultQueue       = "match_requests"
	DefaultExchange    = "match_results"
	DefaultConcurrency = 3

	routingKeyPrefix = "match."
	contentType      = "application/json"
)

var validate = validator.New()

type Config struct {
	AMQPURL     string `mapstructure:"amqp-url"`
	Queue       string `mapstructure:"queue"`
	Exchange    string `mapstructure:"exchange"`
	Concurrency int    `mapstructure:"concurrency"`
}

// Request asks for one resume to be scored against one job.
type Request struct {
	ID     string    `json:"id"`
	Resume string    `json:"resume" validate:"required"`
	Job    *jobs.Job `json:"job" validate:"required"`
}

// Result is published for every consumed request, including malformed ones.
type Result struct {
	ID          string                 `json:"id"`
	JobID       string                 `json:"job_id,omitempty"`
	Score       *profile.MatchingScore `json:"score,omitempty"`
	Unscored    bool                   `json:"unscored"`
	Error       string                 `json:"error,omitempty"`
	ProcessedAt time.Time              `json:"processed_at"`
}

type scorer interface {
	Score(ctx context.Context, app pipeline.Application) pipeline.Outcome
}

type publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// acknowledger is satisfied by amqp.Delivery.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

type Worker struct {
	cfg    Config
	scorer scorer
	logger *zap.Logger
	now    func() time.Time
}

func New(cfg Config, scorer scorer, log *zap.Logger) *Worker {
	if strings.TrimSpace(cfg.Queue) == "" {
		cfg.Queue = DefaultQueue
	}
	if strings.TrimSpace(cfg.Exchange) == "" {
		cfg.Exchange = DefaultExchange
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}

	return &Worker{
		cfg:    cfg,
		scorer: scorer,
		logger: logger.WithFields(log),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Handle decodes and scores one message body. It never fails: problems are
// reported through the result.
func (w *Worker) Handle(ctx context.Context, body []byte) Result {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return w.failed(uuid.NewString(), "", fmt.Sprintf("decode request: %v", err))
	}

	if strings.TrimSpace(req.ID) == "" {
		req.ID = uuid.NewString()
	}

	jobID := ""
	if req.Job != nil {
		jobID = req.Job.ID
	}

	if err := validate.Struct(req); err != nil {
		return w.failed(req.ID, jobID, fmt.Sprintf("invalid request: %v", err))
	}

	outcome := w.scorer.Score(ctx, pipeline.Application{ID: req.ID, Resume: req.Resume, Job: req.Job})

	return Result{
		ID:          req.ID,
		JobID:       outcome.JobID,
		Score:       outcome.Score,
		Unscored:    outcome.Unscored,
		Error:       outcome.Reason,
		ProcessedAt: w.now(),
	}
}

func (w *Worker) failed(id, jobID, reason string) Result {
	return Result{
		ID:          id,
		JobID:       jobID,
		Unscored:    true,
		Error:       reason,
		ProcessedAt: w.now(),
	}
}

// Run consumes the queue with cfg.Concurrency consumers until ctx is done or a
// consumer fails.
func (w *Worker) Run(ctx context.Context) error {
	if strings.TrimSpace(w.cfg.AMQPURL) == "" {
		return errors.New("worker amqp url is not configured")
	}

	conn, err := amqp.Dial(w.cfg.AMQPURL)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}
	defer conn.Close()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.cfg.Concurrency; i++ {
		id := i + 1
		g.Go(func() error {
			return w.consume(gctx, conn, id)
		})
	}

	w.logger.Info("worker pool started",
		zap.Int("consumers", w.cfg.Concurrency),
		zap.String("queue", w.cfg.Queue),
		zap.String("exchange", w.cfg.Exchange),
	)

	return g.Wait()
}

func (w *Worker) consume(ctx context.Context, conn *amqp.Connection, id int) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(w.cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %q: %w", w.cfg.Queue, err)
	}

	if err := ch.ExchangeDeclare(w.cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %q: %w", w.cfg.Exchange, err)
	}

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	msgs, err := ch.Consume(w.cfg.Queue, fmt.Sprintf("pingjob-matcher-%d", id), false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume queue %q: %w", w.cfg.Queue, err)
	}

	log := w.logger.With(zap.Int("consumer", id))

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("amqp delivery channel closed")
			}

			w.process(ctx, msg.Body, msg, ch, log)
		}
	}
}

// process handles one delivery. A message whose handling is cut short by
// shutdown is requeued rather than answered with a cancellation result.
func (w *Worker) process(ctx context.Context, body []byte, msg acknowledger, ch publisher, log *zap.Logger) {
	if ctx.Err() != nil {
		requeue(msg, log, "")
		return
	}

	result := w.Handle(ctx, body)
	if ctx.Err() != nil {
		requeue(msg, log, result.ID)
		return
	}

	if err := w.publish(ch, result); err != nil {
		log.Error("publishing result", zap.String("request_id", result.ID), zap.Error(err))
		requeue(msg, log, result.ID)
		return
	}

	if err := msg.Ack(false); err != nil {
		log.Error("acking request", zap.String("request_id", result.ID), zap.Error(err))
		return
	}

	log.Info("request processed",
		zap.String("request_id", result.ID),
		zap.String(logger.FieldJobID, result.JobID),
		zap.Bool("unscored", result.Unscored),
	)
}

func requeue(msg acknowledger, log *zap.Logger, requestID string) {
	if err := msg.Nack(false, true); err != nil {
		log.Error("requeueing request", zap.String("request_id", requestID), zap.Error(err))
		return
	}
	log.Warn("request requeued", zap.String("request_id", requestID))
}

func (w *Worker) publish(ch publisher, result Result) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	return ch.Publish(
		w.cfg.Exchange,
		routingKeyPrefix+result.ID,
		false,
		false,
		amqp.Publishing{
			ContentType: contentType,
			MessageId:   result.ID,
			Timestamp:   result.ProcessedAt,
			Body:        body,
		},
	)
}
