package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eleven-am/formpulse/internal/schema"
	"github.com/eleven-am/formpulse/internal/shared"
)

// FieldSource provides the current field definitions of a form.
type FieldSource interface {
	GetFields(ctx context.Context, formID string) (schema.FieldList, error)
}

// ResponseSource provides a form's response history for batch recomputes.
// From/To bounds are inclusive when non-nil.
type ResponseSource interface {
	FindEvents(ctx context.Context, formID string, from, to *time.Time) ([]ResponseEvent, error)
}

// Broadcaster fans an event out to every dashboard watching a form.
type Broadcaster interface {
	Broadcast(formID, msgType string, payload any)
}

// QueueStats exposes the state of the fire-and-forget response queue for
// operational visibility.
type QueueStats struct {
	Depth     int    `json:"depth"`
	Capacity  int    `json:"capacity"`
	Enqueued  uint64 `json:"enqueued"`
	Processed uint64 `json:"processed"`
	Dropped   uint64 `json:"dropped"`
	Failed    uint64 `json:"failed"`
}

// Service is the analytics core: batch and incremental aggregation over one
// shared aggregate model, plus the asynchronous side channel that applies
// accepted submissions and broadcasts deltas.
type Service struct {
	forms     FieldSource
	responses ResponseSource
	store     *Store
	hub       Broadcaster
	logger    *slog.Logger

	jobs chan ResponseEvent
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once

	enqueued  atomic.Uint64
	processed atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

func NewService(forms FieldSource, responses ResponseSource, store *Store, hub Broadcaster, queueSize int, logger *slog.Logger) *Service {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Service{
		forms:     forms,
		responses: responses,
		store:     store,
		hub:       hub,
		logger:    logger.With("component", "analytics"),
		jobs:      make(chan ResponseEvent, queueSize),
		done:      make(chan struct{}),
	}
}

// Start launches the queue worker.
func (s *Service) Start() {
	s.wg.Add(1)
	go s.worker()
}

// Close stops the worker. Queued events that have not been applied yet are
// dropped, consistent with the at-most-once contract of this side channel.
func (s *Service) Close() error {
	s.once.Do(func() { close(s.done) })
	s.wg.Wait()
	return nil
}

func (s *Service) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.jobs:
			if _, err := s.RecordResponse(context.Background(), ev.FormID, ev); err != nil {
				s.failed.Add(1)
				s.logger.Error("aggregate update failed", "error", err, "form_id", ev.FormID)
				continue
			}
			s.processed.Add(1)
		}
	}
}

// Enqueue hands a response event to the aggregation worker without blocking
// the submission path. When the queue is full the event is dropped with a
// warning and never retried; the stored response is still the source of
// truth and the next batch recompute reconciles the aggregate.
func (s *Service) Enqueue(event ResponseEvent) {
	select {
	case <-s.done:
		s.dropped.Add(1)
		return
	default:
	}

	select {
	case s.jobs <- event:
		s.enqueued.Add(1)
	default:
		s.dropped.Add(1)
		s.logger.Warn("analytics queue full, dropping response event", "form_id", event.FormID)
	}
}

func (s *Service) QueueStats() QueueStats {
	return QueueStats{
		Depth:     len(s.jobs),
		Capacity:  cap(s.jobs),
		Enqueued:  s.enqueued.Load(),
		Processed: s.processed.Load(),
		Dropped:   s.dropped.Load(),
		Failed:    s.failed.Load(),
	}
}

// ComputeAggregate runs a batch recompute over the form's response history.
// An unfiltered result is authoritative and replaces the stored aggregate;
// filtered results are returned without being persisted.
func (s *Service) ComputeAggregate(ctx context.Context, formID string, opts RecomputeOptions) (*FormAggregate, error) {
	fields, err := s.forms.GetFields(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("load form fields: %w", err)
	}
	events, err := s.responses.FindEvents(ctx, formID, opts.From, opts.To)
	if err != nil {
		return nil, fmt.Errorf("load responses: %w", err)
	}

	agg := Recompute(fields, events, opts)

	if opts.IsZero() {
		if err := s.store.Replace(ctx, formID, agg); err != nil {
			// Reads stay correct without the cached document; the next
			// unfiltered compute tries again.
			s.logger.Error("persist recomputed aggregate failed", "error", err, "form_id", formID)
		}
	}
	return agg, nil
}

// GetAggregate returns the stored aggregate, computing and persisting it
// from history on first read.
func (s *Service) GetAggregate(ctx context.Context, formID string) (*FormAggregate, error) {
	agg, err := s.store.Get(ctx, formID)
	if err == nil {
		return agg, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	return s.ComputeAggregate(ctx, formID, RecomputeOptions{})
}

// RecordResponse applies one response event to the stored aggregate and
// broadcasts the delta to the form's room. It is the synchronous body of the
// queue worker; callers wanting fire-and-forget semantics use Enqueue.
func (s *Service) RecordResponse(ctx context.Context, formID string, event ResponseEvent) (*FormAggregate, error) {
	fields, err := s.forms.GetFields(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("load form fields: %w", err)
	}

	agg, err := s.store.Get(ctx, formID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	// A missing aggregate is fine: ApplyResponse seeds a fresh one.
	agg = ApplyResponse(agg, fields, event)

	if err := s.store.Replace(ctx, formID, agg); err != nil {
		return nil, fmt.Errorf("persist aggregate: %w", err)
	}

	s.broadcastDelta(formID, agg, event)
	return agg, nil
}

// broadcastDelta pushes only the fields this event touched, plus the new
// response total.
func (s *Service) broadcastDelta(formID string, agg *FormAggregate, event ResponseEvent) {
	if s.hub == nil {
		return
	}
	delta := make(map[string]*FieldAggregate, len(event.Answers))
	for _, ans := range event.Answers {
		if fa, ok := agg.ByField[ans.FieldID]; ok {
			delta[ans.FieldID] = fa
		}
	}
	total := agg.TotalResponses
	s.hub.Broadcast(formID, EventTypeUpdate, UpdatePayload{
		ByField:        delta,
		TotalResponses: &total,
		UpdatedAt:      agg.UpdatedAt.Format(time.RFC3339),
	})
}

// ResetAggregate replaces the stored aggregate with a zeroed one, after an
// incompatible schema edit.
func (s *Service) ResetAggregate(ctx context.Context, formID string, fields schema.FieldList) error {
	return s.store.Replace(ctx, formID, NewFormAggregate(fields))
}

// MergeAggregate reshapes the stored aggregate after a compatible schema
// edit (see Merge).
func (s *Service) MergeAggregate(ctx context.Context, formID string, fields schema.FieldList) error {
	agg, err := s.store.Get(ctx, formID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Nothing stored yet; the first read will compute from history.
			return nil
		}
		return err
	}
	return s.store.Replace(ctx, formID, Merge(agg, fields))
}

// DeleteAggregate removes the stored aggregate when its form is deleted.
func (s *Service) DeleteAggregate(ctx context.Context, formID string) error {
	return s.store.Delete(ctx, formID)
}
