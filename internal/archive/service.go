// Package archive implements the fetch-and-relay pipeline behind POST /archive.
package archive

import (
	"context"
	"errors"
	"time"

	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/archiver/service/internal/fetch"
	"github.com/archiver/service/internal/location"
	"github.com/archiver/service/internal/metrics"
	"github.com/archiver/service/internal/relay"
	"github.com/archiver/service/internal/storage"
)

// Fixed upload attributes.
const (
	CacheControl  = "private, max-age=604800"
	MetaSource    = "source"
	MetaFetchedAt = "fetched-at"
)

// Request is a single archive call.
type Request struct {
	Source string `json:"source" example:"https://example.com/images/a.png"`
	Suffix string `json:"suffix" example:"images/a.png"`
	// Public is accepted and recorded; every object is stored public-read.
	Public bool `json:"public" example:"true"`
}

// Result is returned only when fetch, upload and resolution all succeed.
type Result struct {
	Location string `json:"location" example:"https://cdn.example.com/archive/images/a.png"`
}

// Ledger records successful archives.
type Ledger interface {
	Record(ctx context.Context, rec Record) error
	List(ctx context.Context, f ListFilter) ([]Record, error)
}

// Service runs the archive pipeline. It is built once at startup and shared
// read-only by every request.
type Service struct {
	fetcher  fetch.Fetcher
	store    storage.Storage
	resolver *location.Resolver
	ledger   Ledger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	log      *zap.Logger
	now      func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithLedger enables recording of successful archives.
func WithLedger(l Ledger) Option { return func(s *Service) { s.ledger = l } }

// WithMetrics enables archive metrics.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option { return func(s *Service) { s.tracer = t } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService creates a new archive Service.
func NewService(f fetch.Fetcher, st storage.Storage, r *location.Resolver, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		fetcher:  f,
		store:    st,
		resolver: r,
		tracer:   otel.Tracer("content-archiver/archive"),
		log:      log,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Archive fetches req.Source and streams it into the store under req.Suffix.
// Stages run strictly in order and the first failure ends the request. The
// context bounds both the fetch and the upload, so a disconnecting caller
// aborts the single PUT before the store commits anything.
func (s *Service) Archive(ctx context.Context, req Request) (*Result, error) {
	start := s.now()
	log := s.log.With(zap.String("source", req.Source), zap.String("key", req.Suffix))

	ctx, span := s.tracer.Start(ctx, "archive", trace.WithAttributes(
		attribute.String("archive.source", req.Source),
		attribute.String("archive.key", req.Suffix),
	))
	defer span.End()

	fetchCtx, fetchSpan := s.tracer.Start(ctx, "archive.fetch")
	content, err := s.fetcher.Fetch(fetchCtx, req.Source)
	if err != nil {
		endSpan(fetchSpan, err)
		return nil, s.fail(span, log, KindContentFetchFailed, err, 0, start)
	}
	fetchSpan.SetAttributes(
		attribute.String("http.response.header.content-type", content.Type),
		attribute.Int64("http.response.header.content-length", content.Length),
	)
	fetchSpan.End()

	body := relay.New(content.Body)
	defer body.Close()

	fetchedAt := s.now().UTC()
	obj := storage.Object{
		Key:          req.Suffix,
		Body:         body,
		Size:         content.Length,
		ContentType:  content.Type,
		CacheControl: CacheControl,
		ACL:          storage.ACLPublicRead,
		Metadata: map[string]string{
			MetaSource:    req.Source,
			MetaFetchedAt: fetchedAt.Format(time.RFC3339Nano),
		},
	}
	putCtx, putSpan := s.tracer.Start(ctx, "archive.upload", trace.WithAttributes(
		attribute.String("archive.bucket", s.store.Bucket()),
	))
	err = s.store.Put(putCtx, obj)
	if err == nil {
		// The store may accept a body whose source broke off mid-stream.
		err = body.Err()
	}
	putSpan.SetAttributes(attribute.Int64("archive.bytes", body.BytesRead()))
	endSpan(putSpan, err)
	if err != nil {
		return nil, s.fail(span, log, KindContentUploadFailed, err, body.BytesRead(), start)
	}

	loc, err := s.resolver.Resolve(s.store.Bucket(), req.Suffix)
	if err != nil {
		return nil, s.fail(span, log, KindInvalidConfiguration, err, body.BytesRead(), start)
	}
	span.SetAttributes(attribute.String("archive.location", loc))

	s.metrics.ObserveArchive(metrics.OutcomeOK, body.BytesRead(), s.now().Sub(start))
	log.Info("archived",
		zap.String("location", loc),
		zap.Int64("bytes", body.BytesRead()),
		zap.String("content_type", content.Type),
		zap.Duration("duration", s.now().Sub(start)),
	)

	s.record(ctx, log, Record{
		ID:            uuid.NewString(),
		Bucket:        s.store.Bucket(),
		Key:           req.Suffix,
		Source:        req.Source,
		Location:      loc,
		ContentType:   content.Type,
		ContentLength: content.Length,
		Bytes:         body.BytesRead(),
		Public:        req.Public,
		FetchedAt:     fetchedAt,
	})

	return &Result{Location: loc}, nil
}

// Records lists ledger entries.
func (s *Service) Records(ctx context.Context, f ListFilter) ([]Record, error) {
	if s.ledger == nil {
		return nil, ErrLedgerDisabled
	}
	return s.ledger.List(ctx, f)
}

// record writes the ledger entry. The object is already stored and its URL
// is valid, so a ledger failure is logged and counted but not reported.
func (s *Service) record(ctx context.Context, log *zap.Logger, rec Record) {
	if s.ledger == nil {
		return
	}
	// Detach from cancellation: the caller may hang up once the upload is done.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.ledger.Record(ctx, rec); err != nil {
		s.metrics.LedgerFailed()
		log.Error("ledger write failed", zap.String("id", rec.ID), zap.Error(err))
	}
}

func (s *Service) fail(span trace.Span, log *zap.Logger, kind Kind, err error, relayed int64, start time.Time) error {
	span.SetAttributes(attribute.String("archive.error_kind", string(kind)))
	endSpan(span, err)

	fields := []zap.Field{
		zap.String("kind", string(kind)),
		zap.Int64("bytes", relayed),
		zap.Error(err),
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		fields = append(fields, zap.String("store_code", apiErr.ErrorCode()))
	}
	var se *fetch.StatusError
	if errors.As(err, &se) {
		fields = append(fields, zap.Int("source_status", se.Code))
	}
	if errors.Is(err, context.Canceled) {
		log.Warn("archive aborted", fields...)
	} else {
		log.Error("archive failed", fields...)
	}
	s.metrics.ObserveArchive(string(kind), relayed, s.now().Sub(start))
	return &Error{Kind: kind, Err: err}
}

// endSpan records err, if any, and ends span. Ending twice is harmless.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
