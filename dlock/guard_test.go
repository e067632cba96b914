package dlock

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ceyewan/keylock/testkit"
	"github.com/ceyewan/keylock/trace"
)

func TestGuard_Run(t *testing.T) {
	m, store, mr := newCountingManager(t)
	g := m.Guard()

	var ran bool
	err := g.Run(context.Background(), NewSpec("order"), []string{"42"}, func(ctx context.Context) error {
		ran = true
		assert.True(t, mr.Exists("distributedLock:order_42"), "lock should be held while running")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists("distributedLock:order_42"))
	assert.Equal(t, int64(1), store.deletes.Load())
}

func TestGuard_OperationErrorStillReleases(t *testing.T) {
	m, store, mr := newCountingManager(t)
	g := m.Guard()

	boom := errors.New("boom")
	err := g.Run(context.Background(), NewSpec("order"), []string{"1"}, func(context.Context) error {
		return boom
	})
	assert.Same(t, boom, err)
	assert.Equal(t, int64(1), store.deletes.Load())
	assert.False(t, mr.Exists("distributedLock:order_1"))
}

func TestGuard_PanicStillReleases(t *testing.T) {
	m, store, mr := newCountingManager(t)
	g := m.Guard()

	assert.PanicsWithValue(t, "boom", func() {
		_ = g.Run(context.Background(), NewSpec("order"), []string{"2"}, func(context.Context) error {
			panic("boom")
		})
	})
	assert.Equal(t, int64(1), store.deletes.Load())
	assert.False(t, mr.Exists("distributedLock:order_2"))
}

func TestGuard_ContendedNeverRuns(t *testing.T) {
	m, store, _ := newCountingManager(t)
	g := m.Guard()
	ctx := context.Background()

	_, err := m.TryAcquire(ctx, "distributedLock:order_3", 10*time.Second)
	require.NoError(t, err)

	var ran bool
	err = g.Run(ctx, NewSpec("order"), []string{"3"}, func(context.Context) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, ErrAcquisitionFailed)
	assert.False(t, ran)
	assert.Zero(t, store.deletes.Load())

	spec := NewSpec("order")
	spec.IsRetry = true
	spec.WaitTime = 50 * time.Millisecond
	err = g.Run(ctx, spec, []string{"3"}, func(context.Context) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.False(t, ran)
}

func TestGuard_InvalidSpecBeforeStore(t *testing.T) {
	m, store, _ := newCountingManager(t)
	g := m.Guard()

	var ran bool
	fn := func(context.Context) error {
		ran = true
		return nil
	}

	err := g.Run(context.Background(), NewSpec("k1", "k2"), []string{"a"}, fn)
	assert.ErrorIs(t, err, ErrInvalidSpec)

	var lockErr *LockError
	require.ErrorAs(t, err, &lockErr)
	assert.Empty(t, lockErr.Key)

	err = g.Run(context.Background(), Spec{KeyLabels: []string{"k"}, TTL: -time.Second}, []string{"a"}, fn)
	assert.ErrorIs(t, err, ErrInvalidSpec)
	require.ErrorAs(t, err, &lockErr)
	assert.Empty(t, lockErr.Key)

	assert.False(t, ran)
	assert.Zero(t, store.sets.Load())
	assert.Zero(t, store.deletes.Load())
}

func TestGuard_ReleaseDoesNotMaskResult(t *testing.T) {
	m, store, mr := newCountingManager(t)
	g := m.Guard()
	ctx := context.Background()

	// 锁在执行期间丢失，释放返回 false，但结果不受影响
	got, err := Do(ctx, g, NewSpec("order"), []string{"4"}, func(context.Context) (string, error) {
		mr.Del("distributedLock:order_4")
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", got)
	assert.Equal(t, int64(1), store.deletes.Load())

	boom := errors.New("boom")
	_, err = Do(ctx, g, NewSpec("order"), []string{"5"}, func(context.Context) (string, error) {
		mr.Del("distributedLock:order_5")
		return "", boom
	})
	assert.Same(t, boom, err)
}

func TestGuard_ReleaseStoreFailureDoesNotMaskResult(t *testing.T) {
	m, mr := newRedisManager(t)
	g := m.Guard()

	got, err := Do(context.Background(), g, NewSpec("order"), []string{"6"}, func(context.Context) (int, error) {
		mr.Close()
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestGuard_CanceledCallerStillReleases(t *testing.T) {
	m, store, mr := newCountingManager(t)
	g := m.Guard()

	ctx, cancel := context.WithCancel(context.Background())
	err := g.Run(ctx, NewSpec("order"), []string{"7"}, func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(1), store.deletes.Load())
	assert.False(t, mr.Exists("distributedLock:order_7"))
}

func TestGuard_MutualExclusion(t *testing.T) {
	m, _ := newRedisManager(t)
	g := m.Guard()

	spec := NewSpec("counter")
	spec.IsRetry = true
	spec.WaitTime = 5 * time.Second

	var (
		wg      sync.WaitGroup
		inside  atomic.Int64
		overlap atomic.Bool
		total   atomic.Int64
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := g.Run(context.Background(), spec, []string{"shared"}, func(context.Context) error {
				if inside.Add(1) > 1 {
					overlap.Store(true)
				}
				total.Add(1)
				time.Sleep(2 * time.Millisecond)
				inside.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.False(t, overlap.Load())
	assert.Equal(t, int64(10), total.Load())
}

func TestWrap(t *testing.T) {
	m, mr := newRedisManager(t)
	g := m.Guard()

	type transfer struct {
		From, To string
		Amount   int
	}

	var seenKey bool
	op := Wrap(g, NewSpec("from", "to"),
		func(tr transfer) []string { return []string{tr.From, tr.To} },
		func(ctx context.Context, tr transfer) (int, error) {
			seenKey = mr.Exists("distributedLock:from_alice_to_bob")
			return tr.Amount * 2, nil
		})

	got, err := op(context.Background(), transfer{From: "alice", To: "bob", Amount: 21})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.True(t, seenKey)
	assert.False(t, mr.Exists("distributedLock:from_alice_to_bob"))
}

func TestGuard_Span(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	m, _ := newRedisManager(t, WithTracer(tp.Tracer("dlock-test")))
	g := m.Guard()

	boom := errors.New("boom")
	_ = g.Run(context.Background(), NewSpec("job"), []string{"nightly"}, func(context.Context) error {
		return boom
	})

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, trace.SpanNameLockGuard, span.Name())
	assert.Contains(t, span.Attributes(), attribute.String(trace.AttrLockKey, "distributedLock:job_nightly"))
	assert.Contains(t, span.Attributes(), attribute.Bool(trace.AttrLockRetry, false))
	assert.Contains(t, span.Attributes(), attribute.String(trace.AttrLockBackend, "redis"))
	assert.Equal(t, codes.Error, span.Status().Code)
}

func TestGuard_SpanOnPanic(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	m, mr := newRedisManager(t, WithTracer(tp.Tracer("dlock-test")))
	g := m.Guard()

	assert.PanicsWithValue(t, "boom", func() {
		_ = g.Run(context.Background(), NewSpec("job"), []string{"crash"}, func(context.Context) error {
			panic("boom")
		})
	})

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, errOperationPanicked.Error(), spans[0].Status().Description)
	assert.False(t, mr.Exists("distributedLock:job_crash"))
}

func TestGuard_Metrics(t *testing.T) {
	kit := testkit.NewKit(t)
	m, _ := newRedisManager(t, WithMeter(kit.Meter))
	g := m.Guard()
	ctx := context.Background()

	require.NoError(t, g.Run(ctx, NewSpec("m"), []string{"1"}, func(context.Context) error { return nil }))

	_, err := m.TryAcquire(ctx, "distributedLock:m_2", time.Second)
	require.NoError(t, err)
	err = g.Run(ctx, NewSpec("m"), []string{"2"}, func(context.Context) error { return nil })
	require.ErrorIs(t, err, ErrAcquisitionFailed)

	rec := httptest.NewRecorder()
	kit.Meter.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, MetricLockAcquired)
	assert.Contains(t, text, MetricLockFailed)
	assert.Contains(t, text, `reason="contended"`)
	assert.Contains(t, text, MetricLockReleased)
	assert.Contains(t, text, `outcome="released"`)
	assert.Contains(t, text, MetricLockHoldDuration)
	assert.Contains(t, text, MetricAcquireAttempts)
}
