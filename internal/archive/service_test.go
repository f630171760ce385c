package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"runtime"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"github.com/archiver/service/internal/fetch"
	"github.com/archiver/service/internal/location"
	"github.com/archiver/service/internal/storage"
)

// fakeStore drains the body like a real store would and remembers the object.
type fakeStore struct {
	mu      sync.Mutex
	bucket  string
	err     error
	keep    bool // keep the body bytes; off for large streams
	calls   int
	obj     storage.Object
	body    []byte
	drained int64
}

func (f *fakeStore) Bucket() string { return f.bucket }

func (f *fakeStore) Put(ctx context.Context, obj storage.Object) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.obj = obj
	if f.err != nil {
		return f.err
	}
	var dst io.Writer = io.Discard
	var buf bytes.Buffer
	if f.keep {
		dst = &buf
	}
	n, err := io.Copy(dst, obj.Body)
	f.drained = n
	f.body = buf.Bytes()
	return err
}

type fakeLedger struct {
	mu      sync.Mutex
	err     error
	records []Record
}

func (l *fakeLedger) Record(ctx context.Context, rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.records = append(l.records, rec)
	return nil
}

func (l *fakeLedger) List(ctx context.Context, f ListFilter) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Record
	for i := len(l.records) - 1; i >= 0 && len(out) < f.Limit; i-- {
		if f.Key == "" || l.records[i].Key == f.Key {
			out = append(out, l.records[i])
		}
	}
	return out, l.err
}

// countingFetcher records whether any egress was attempted.
type countingFetcher struct {
	fetch.Fetcher
	calls int
}

func (c *countingFetcher) Fetch(ctx context.Context, source string) (*fetch.Content, error) {
	c.calls++
	return c.Fetcher.Fetch(ctx, source)
}

func newService(t *testing.T, store storage.Storage, base string, opts ...Option) *Service {
	t.Helper()
	u, err := url.Parse(base)
	require.NoError(t, err)
	return NewService(fetch.New(nil), store, location.New(u), zap.NewNop(), opts...)
}

func pngSource(t *testing.T, size int) *httptest.Server {
	t.Helper()
	payload := bytes.Repeat([]byte{0x89}, size)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write(payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestArchiveSuccess(t *testing.T) {
	src := pngSource(t, 1024)
	store := &fakeStore{bucket: "archive", keep: true}
	ledger := &fakeLedger{}
	svc := newService(t, store, "https://cdn.example.com", WithLedger(ledger))

	before := time.Now()
	res, err := svc.Archive(context.Background(), Request{Source: src.URL + "/a.png", Suffix: "images/a.png", Public: true})
	after := time.Now()
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/archive/images/a.png", res.Location)
	assert.Equal(t, 1, store.calls)
	assert.Equal(t, "images/a.png", store.obj.Key)
	assert.Equal(t, int64(1024), store.obj.Size)
	assert.Len(t, store.body, 1024)
	assert.Equal(t, "image/png", store.obj.ContentType)
	assert.Equal(t, CacheControl, store.obj.CacheControl)
	assert.Equal(t, storage.ACLPublicRead, store.obj.ACL)

	require.Len(t, store.obj.Metadata, 2)
	assert.Equal(t, src.URL+"/a.png", store.obj.Metadata[MetaSource])
	fetchedAt, err := time.Parse(time.RFC3339, store.obj.Metadata[MetaFetchedAt])
	require.NoError(t, err)
	assert.False(t, fetchedAt.Before(before), "fetched-at %s before request start %s", fetchedAt, before)
	assert.False(t, fetchedAt.After(after), "fetched-at %s after response %s", fetchedAt, after)

	require.Len(t, ledger.records, 1)
	rec := ledger.records[0]
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "archive", rec.Bucket)
	assert.Equal(t, res.Location, rec.Location)
	assert.Equal(t, int64(1024), rec.Bytes)
	assert.True(t, rec.Public)
}

func spanNames(spans []sdktrace.ReadOnlySpan) map[string]sdktrace.ReadOnlySpan {
	out := make(map[string]sdktrace.ReadOnlySpan, len(spans))
	for _, sp := range spans {
		out[sp.Name()] = sp
	}
	return out
}

func TestArchiveSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)).Tracer("test")

	src := pngSource(t, 64)
	svc := newService(t, &fakeStore{bucket: "archive"}, "https://cdn.example.com", WithTracer(tracer))
	_, err := svc.Archive(context.Background(), Request{Source: src.URL, Suffix: "a.png"})
	require.NoError(t, err)

	spans := spanNames(sr.Ended())
	require.Len(t, spans, 3)
	root := spans["archive"]
	require.NotNil(t, root)
	for _, name := range []string{"archive.fetch", "archive.upload"} {
		require.Contains(t, spans, name)
		assert.Equal(t, root.SpanContext().SpanID(), spans[name].Parent().SpanID(), name)
	}
	assert.NotEqual(t, codes.Error, root.Status().Code)
}

func TestArchiveSpansRecordFailure(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)).Tracer("test")

	src := pngSource(t, 64)
	store := &fakeStore{bucket: "archive", err: errors.New("denied")}
	svc := newService(t, store, "https://cdn.example.com", WithTracer(tracer))
	_, err := svc.Archive(context.Background(), Request{Source: src.URL, Suffix: "a.png"})
	require.Error(t, err)

	spans := spanNames(sr.Ended())
	assert.Equal(t, codes.Error, spans["archive.upload"].Status().Code)
	assert.Equal(t, codes.Error, spans["archive"].Status().Code)
	assert.Equal(t, codes.Unset, spans["archive.fetch"].Status().Code)
}

func TestArchiveACLIgnoresPublicFlag(t *testing.T) {
	src := pngSource(t, 16)
	store := &fakeStore{bucket: "archive"}
	svc := newService(t, store, "https://cdn.example.com")

	_, err := svc.Archive(context.Background(), Request{Source: src.URL, Suffix: "private.png", Public: false})
	require.NoError(t, err)
	assert.Equal(t, storage.ACLPublicRead, store.obj.ACL)
}

func TestArchiveUnknownLengthAndType(t *testing.T) {
	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		_, _ = w.Write([]byte("part-1"))
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte("part-2"))
	}))
	defer src.Close()

	store := &fakeStore{bucket: "archive", keep: true}
	svc := newService(t, store, "https://cdn.example.com")

	_, err := svc.Archive(context.Background(), Request{Source: src.URL, Suffix: "stream.bin"})
	require.NoError(t, err)
	assert.Equal(t, int64(-1), store.obj.Size)
	assert.Empty(t, store.obj.ContentType)
	assert.Equal(t, "part-1part-2", string(store.body))
}

func TestArchiveSourceNotFound(t *testing.T) {
	src := httptest.NewServer(http.NotFoundHandler())
	defer src.Close()
	store := &fakeStore{bucket: "archive"}

	_, err := newService(t, store, "https://cdn.example.com").Archive(context.Background(), Request{Source: src.URL, Suffix: "a"})
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindContentFetchFailed, kind)
	assert.Zero(t, store.calls)
}

func TestArchiveSourceUnreachable(t *testing.T) {
	src := httptest.NewServer(http.NotFoundHandler())
	addr := src.URL
	src.Close()
	store := &fakeStore{bucket: "archive"}

	_, err := newService(t, store, "https://cdn.example.com").Archive(context.Background(), Request{Source: addr, Suffix: "a"})
	kind, _ := KindOf(err)
	assert.Equal(t, KindContentFetchFailed, kind)
	assert.ErrorIs(t, err, fetch.ErrFetchFailed)
	assert.Zero(t, store.calls)
}

func TestArchiveUploadFailure(t *testing.T) {
	src := pngSource(t, 32)
	ledger := &fakeLedger{}
	store := &fakeStore{bucket: "archive", err: errors.New("500 internal error")}

	_, err := newService(t, store, "https://cdn.example.com", WithLedger(ledger)).
		Archive(context.Background(), Request{Source: src.URL, Suffix: "a"})
	kind, _ := KindOf(err)
	assert.Equal(t, KindContentUploadFailed, kind)
	assert.Empty(t, ledger.records)
}

func TestArchiveTruncatedSourceFailsUpload(t *testing.T) {
	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write([]byte("short"))
		// Hijack and drop the connection so the client sees a premature EOF.
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			conn.Close()
		}
	}))
	defer src.Close()

	store := &fakeStore{bucket: "archive"}
	_, err := newService(t, store, "https://cdn.example.com").Archive(context.Background(), Request{Source: src.URL, Suffix: "a"})
	kind, _ := KindOf(err)
	assert.Equal(t, KindContentUploadFailed, kind)
}

func TestArchiveInvalidConfiguration(t *testing.T) {
	src := pngSource(t, 8)
	store := &fakeStore{bucket: "archive"}

	_, err := newService(t, store, "mailto:ops@example.com").Archive(context.Background(), Request{Source: src.URL, Suffix: "a"})
	kind, _ := KindOf(err)
	assert.Equal(t, KindInvalidConfiguration, kind)
	assert.Equal(t, 1, store.calls)
}

func TestArchiveLedgerFailureDoesNotFailRequest(t *testing.T) {
	src := pngSource(t, 8)
	store := &fakeStore{bucket: "archive"}
	ledger := &fakeLedger{err: errors.New("db down")}

	res, err := newService(t, store, "https://cdn.example.com", WithLedger(ledger)).
		Archive(context.Background(), Request{Source: src.URL, Suffix: "a"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/archive/a", res.Location)
}

func TestArchiveUsesClock(t *testing.T) {
	src := pngSource(t, 8)
	store := &fakeStore{bucket: "archive"}
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 6, time.FixedZone("X", 3600))

	_, err := newService(t, store, "https://cdn.example.com", WithClock(func() time.Time { return fixed })).
		Archive(context.Background(), Request{Source: src.URL, Suffix: "a"})
	require.NoError(t, err)
	assert.Equal(t, "2026-01-02T02:04:05.000000006Z", store.obj.Metadata[MetaFetchedAt])
}

func TestArchiveCancelledContext(t *testing.T) {
	src := pngSource(t, 8)
	store := &fakeStore{bucket: "archive"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newService(t, store, "https://cdn.example.com").Archive(ctx, Request{Source: src.URL, Suffix: "a"})
	kind, _ := KindOf(err)
	assert.Equal(t, KindContentFetchFailed, kind)
	assert.Zero(t, store.calls)
}

func TestRecordsWithoutLedger(t *testing.T) {
	svc := newService(t, &fakeStore{bucket: "archive"}, "https://cdn.example.com")
	_, err := svc.Records(context.Background(), ListFilter{Limit: 10})
	assert.ErrorIs(t, err, ErrLedgerDisabled)
}

// zeroReader yields n zero bytes without allocating them up front.
type zeroReader struct{ n int64 }

func (z *zeroReader) Read(p []byte) (int, error) {
	if z.n <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > z.n {
		p = p[:z.n]
	}
	clear(p)
	z.n -= int64(len(p))
	return len(p), nil
}

func TestArchiveMemoryIsBoundedByTransportNotContent(t *testing.T) {
	if testing.Short() {
		t.Skip("streams 512 MiB")
	}
	const size = 512 << 20

	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.Itoa(size))
		_, _ = io.Copy(w, &zeroReader{n: size})
	}))
	defer src.Close()

	store := &fakeStore{bucket: "archive"}
	svc := newService(t, store, "https://cdn.example.com")

	runtime.GC()
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)

	_, err := svc.Archive(context.Background(), Request{Source: src.URL, Suffix: "big.bin"})
	require.NoError(t, err)

	runtime.ReadMemStats(&after)
	assert.Equal(t, int64(size), store.drained)

	// A buffering relay would allocate at least the full payload.
	allocated := after.TotalAlloc - before.TotalAlloc
	assert.Less(t, allocated, uint64(size/16), "allocated %d bytes for a %d byte stream", allocated, size)
}
