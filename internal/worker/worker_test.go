package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/pingjob/matcher/internal/pipeline"
	"github.com/pingjob/matcher/internal/profile"
)

type stubScorer struct {
	outcome pipeline.Outcome
	last    pipeline.Application
	calls   int
	during  func()
}

func (s *stubScorer) Score(_ context.Context, app pipeline.Application) pipeline.Outcome {
	s.calls++
	s.last = app
	if s.during != nil {
		s.during()
	}
	return s.outcome
}

type fakeDelivery struct {
	acks     int
	nacks    int
	requeued bool
}

func (d *fakeDelivery) Ack(bool) error {
	d.acks++
	return nil
}

func (d *fakeDelivery) Nack(_, requeue bool) error {
	d.nacks++
	d.requeued = requeue
	return nil
}

type publishRecord struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakePublisher struct {
	published []publishRecord
	err       error
}

func (f *fakePublisher) Publish(exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, publishRecord{exchange: exchange, key: key, msg: msg})
	return nil
}

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestWorker(scorer scorer) *Worker {
	w := New(Config{}, scorer, nil)
	w.now = func() time.Time { return fixedTime }
	return w
}

func TestHandleScoresRequest(t *testing.T) {
	score := &profile.MatchingScore{TotalScore: 6}
	scorer := &stubScorer{outcome: pipeline.Outcome{JobID: "7", Score: score}}
	w := newTestWorker(scorer)

	result := w.Handle(context.Background(), []byte(`{
		"id": "req-1",
		"resume": "s3://resumes/cv.pdf",
		"job": {"id": "7", "title": "Data Engineer", "experience_level": "mid"}
	}`))

	if result.ID != "req-1" || result.JobID != "7" {
		t.Fatalf("unexpected result ids: %+v", result)
	}

	if result.Unscored || result.Score == nil || result.Score.TotalScore != 6 {
		t.Fatalf("unexpected score: %+v", result)
	}

	if !result.ProcessedAt.Equal(fixedTime) {
		t.Fatalf("unexpected processed_at: %v", result.ProcessedAt)
	}

	if scorer.last.Resume != "s3://resumes/cv.pdf" || scorer.last.Job.ExperienceLevel != "mid" {
		t.Fatalf("unexpected application: %+v", scorer.last)
	}
}

func TestHandleAssignsMissingID(t *testing.T) {
	scorer := &stubScorer{outcome: pipeline.Outcome{JobID: "1", Unscored: true, Reason: "resume: not json"}}
	w := newTestWorker(scorer)

	result := w.Handle(context.Background(), []byte(`{"resume": "cv.txt", "job": {"id": "1", "title": "QA"}}`))

	if _, err := uuid.Parse(result.ID); err != nil {
		t.Fatalf("expected generated uuid, got %q", result.ID)
	}

	if scorer.last.ID != result.ID {
		t.Fatalf("expected application id %q, got %q", result.ID, scorer.last.ID)
	}

	if !result.Unscored || result.Error != "resume: not json" {
		t.Fatalf("expected unscored outcome to be forwarded, got %+v", result)
	}
}

func TestHandleRejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"id":`},
		{name: "missing resume", body: `{"id": "a", "job": {"id": "1", "title": "QA"}}`},
		{name: "missing job", body: `{"id": "a", "resume": "cv.txt"}`},
		{name: "job without title", body: `{"id": "a", "resume": "cv.txt", "job": {"id": "1"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer := &stubScorer{}
			result := newTestWorker(scorer).Handle(context.Background(), []byte(tt.body))

			if !result.Unscored || result.Error == "" {
				t.Fatalf("expected unscored result with error, got %+v", result)
			}

			if result.ID == "" {
				t.Fatal("expected result id to be set")
			}

			if scorer.calls != 0 {
				t.Fatalf("expected scorer not to be called, got %d calls", scorer.calls)
			}
		})
	}
}

func TestPublishRoutesByRequestID(t *testing.T) {
	w := newTestWorker(&stubScorer{})
	pub := &fakePublisher{}

	result := Result{ID: "req-9", JobID: "3", Score: &profile.MatchingScore{TotalScore: 4}, ProcessedAt: fixedTime}
	if err := w.publish(pub, result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(pub.published) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(pub.published))
	}

	record := pub.published[0]
	if record.exchange != DefaultExchange || record.key != "match.req-9" {
		t.Fatalf("unexpected routing: %s %s", record.exchange, record.key)
	}

	if record.msg.ContentType != "application/json" {
		t.Fatalf("unexpected content type: %q", record.msg.ContentType)
	}

	var decoded map[string]any
	if err := json.Unmarshal(record.msg.Body, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if decoded["id"] != "req-9" || decoded["job_id"] != "3" || decoded["unscored"] != false {
		t.Fatalf("unexpected body: %s", record.msg.Body)
	}

	if _, ok := decoded["error"]; ok {
		t.Fatalf("expected error to be omitted, got %s", record.msg.Body)
	}
}

func TestPublishError(t *testing.T) {
	pubErr := errors.New("channel closed")
	err := newTestWorker(&stubScorer{}).publish(&fakePublisher{err: pubErr}, Result{ID: "x"})

	if !errors.Is(err, pubErr) {
		t.Fatalf("expected publish error, got %v", err)
	}
}

const validRequest = `{"id": "req-5", "resume": "cv.txt", "job": {"id": "5", "title": "SRE"}}`

func TestProcessPublishesAndAcks(t *testing.T) {
	scorer := &stubScorer{outcome: pipeline.Outcome{JobID: "5", Score: &profile.MatchingScore{TotalScore: 3}}}
	pub := &fakePublisher{}
	msg := &fakeDelivery{}

	newTestWorker(scorer).process(context.Background(), []byte(validRequest), msg, pub, zap.NewNop())

	if len(pub.published) != 1 || pub.published[0].key != "match.req-5" {
		t.Fatalf("expected one result for req-5, got %+v", pub.published)
	}

	if msg.acks != 1 || msg.nacks != 0 {
		t.Fatalf("expected ack only, got acks=%d nacks=%d", msg.acks, msg.nacks)
	}
}

func TestProcessRequeuesOnPublishError(t *testing.T) {
	msg := &fakeDelivery{}

	newTestWorker(&stubScorer{}).process(context.Background(), []byte(validRequest), msg, &fakePublisher{err: errors.New("channel closed")}, zap.NewNop())

	if msg.acks != 0 || msg.nacks != 1 || !msg.requeued {
		t.Fatalf("expected requeue, got %+v", msg)
	}
}

func TestProcessRequeuesWhenStopped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scorer := &stubScorer{}
	pub := &fakePublisher{}
	msg := &fakeDelivery{}

	newTestWorker(scorer).process(ctx, []byte(validRequest), msg, pub, zap.NewNop())

	if scorer.calls != 0 {
		t.Fatalf("expected request not to be scored, got %d calls", scorer.calls)
	}

	if len(pub.published) != 0 {
		t.Fatalf("expected nothing published, got %+v", pub.published)
	}

	if msg.acks != 0 || msg.nacks != 1 || !msg.requeued {
		t.Fatalf("expected requeue, got %+v", msg)
	}
}

func TestProcessRequeuesWhenStoppedMidScore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scorer := &stubScorer{
		outcome: pipeline.Outcome{JobID: "5", Unscored: true, Reason: "job requirements: context canceled"},
		during:  cancel,
	}
	pub := &fakePublisher{}
	msg := &fakeDelivery{}

	newTestWorker(scorer).process(ctx, []byte(validRequest), msg, pub, zap.NewNop())

	if scorer.calls != 1 {
		t.Fatalf("expected one score call, got %d", scorer.calls)
	}

	if len(pub.published) != 0 {
		t.Fatalf("expected cancelled result not to be published, got %+v", pub.published)
	}

	if msg.acks != 0 || msg.nacks != 1 || !msg.requeued {
		t.Fatalf("expected requeue, got %+v", msg)
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	w := New(Config{}, &stubScorer{}, nil)

	if w.cfg.Queue != DefaultQueue || w.cfg.Exchange != DefaultExchange || w.cfg.Concurrency != DefaultConcurrency {
		t.Fatalf("unexpected defaults: %+v", w.cfg)
	}
}

func TestRunRequiresURL(t *testing.T) {
	if err := New(Config{}, &stubScorer{}, nil).Run(context.Background()); err == nil {
		t.Fatal("expected error without amqp url")
	}
}

var _ acknowledger = amqp.Delivery{}
