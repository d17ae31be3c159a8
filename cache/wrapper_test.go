package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// recordingBackend wraps MemoryBackend, counts calls and injects errors.
type recordingBackend struct {
	*MemoryBackend
	gets, sets atomic.Int32
	getErr     error
	setErr     error
	lastTTL    time.Duration
	mu         sync.Mutex
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{MemoryBackend: NewMemoryBackend()}
}

func (b *recordingBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b.gets.Add(1)
	if b.getErr != nil {
		return nil, false, b.getErr
	}
	return b.MemoryBackend.Get(ctx, key)
}

func (b *recordingBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	b.sets.Add(1)
	b.mu.Lock()
	b.lastTTL = ttl
	b.mu.Unlock()
	if b.setErr != nil {
		return b.setErr
	}
	return b.MemoryBackend.Set(ctx, key, value, ttl)
}

// mockComputation tracks calls and returns configured results
type mockComputation struct {
	calls  atomic.Int32
	result string
	err    error
}

func (m *mockComputation) run(_ context.Context, _ Args) (string, error) {
	m.calls.Add(1)
	return m.result, m.err
}

var testSig = MustSignature("test", "f", Required("a"), Optional("b", 5))

func newTestWrapper(t *testing.T, backend Backend, signVars []string, opts ...Option) *Wrapper {
	t.Helper()
	w, err := NewWrapper(backend, Config{SignVariables: signVars, Expiry: time.Minute}, opts...)
	if err != nil {
		t.Fatalf("NewWrapper() error = %v", err)
	}
	return w
}

func TestWrap_HitShortCircuit(t *testing.T) {
	backend := newRecordingBackend()
	w := newTestWrapper(t, backend, []string{"a"})
	comp := &mockComputation{result: "computed"}

	fn, err := Wrap(w, testSig, comp.run)
	if err != nil {
		t.Fatalf("Wrap() error = %v", err)
	}

	ctx := context.Background()

	// First call - should execute
	got, err := fn(ctx, Call(1))
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if got != "computed" {
		t.Errorf("unexpected result: %s", got)
	}
	if comp.calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", comp.calls.Load())
	}

	// Second call - should return cached, computation NOT called
	got, err = fn(ctx, Call(1))
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if comp.calls.Load() != 1 {
		t.Errorf("expected computation to NOT be called again, got %d calls", comp.calls.Load())
	}
	if got != "computed" {
		t.Errorf("unexpected cached result: %s", got)
	}
}

func TestWrap_HitAfterDirectSet(t *testing.T) {
	backend := newRecordingBackend()
	w := newTestWrapper(t, backend, []string{"a"})
	comp := &mockComputation{result: "computed"}

	fn, err := WrapCodec[string](w, testSig, comp.run, StringCodec{})
	if err != nil {
		t.Fatalf("WrapCodec() error = %v", err)
	}

	ctx := context.Background()
	key, err := w.Key(testSig, Call("x"))
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	if err := backend.Set(ctx, key, []byte("preloaded"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := fn(ctx, Keywords(map[string]any{"a": "x"}))
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if got != "preloaded" {
		t.Errorf("got %q, want preloaded value", got)
	}
	if comp.calls.Load() != 0 {
		t.Errorf("computation should not run on hit, got %d calls", comp.calls.Load())
	}
}

func TestWrap_MissThenPopulate(t *testing.T) {
	backend := newRecordingBackend()
	w := newTestWrapper(t, backend, []string{"a"})
	comp := &mockComputation{result: "value"}

	fn, _ := Wrap(w, testSig, comp.run)
	ctx := context.Background()

	if _, err := fn(ctx, Call(7)); err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if comp.calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", comp.calls.Load())
	}

	key, _ := w.Key(testSig, Call(7))
	data, ok, err := backend.MemoryBackend.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("entry not found under derived key %s: ok=%v err=%v", key, ok, err)
	}
	decoded, err := MsgpackCodec[string]{}.Decode(data)
	if err != nil || decoded != "value" {
		t.Errorf("stored entry = (%q, %v), want value", decoded, err)
	}
	if backend.lastTTL != time.Minute {
		t.Errorf("stored with ttl %v, want %v", backend.lastTTL, time.Minute)
	}
}

func TestWrap_NonSignArgumentsIgnored(t *testing.T) {
	w := newTestWrapper(t, NewMemoryBackend(), []string{"a"})
	comp := &mockComputation{result: "r"}
	fn, _ := Wrap(w, testSig, comp.run)
	ctx := context.Background()

	_, _ = fn(ctx, Keywords(map[string]any{"a": 1, "b": 2}))
	_, _ = fn(ctx, Keywords(map[string]any{"a": 1, "b": 99}))

	if comp.calls.Load() != 1 {
		t.Errorf("calls differing only in non-sign arguments should share an entry, got %d calls", comp.calls.Load())
	}

	k1, _ := w.Key(testSig, Keywords(map[string]any{"a": 1, "b": 2}))
	k2, _ := w.Key(testSig, Keywords(map[string]any{"a": 1, "b": 99}))
	if k1 != k2 {
		t.Errorf("keys differ: %s != %s", k1, k2)
	}
}

func TestWrap_DifferentSignValuesMiss(t *testing.T) {
	w := newTestWrapper(t, NewMemoryBackend(), []string{"a"})
	comp := &mockComputation{result: "r"}
	fn, _ := Wrap(w, testSig, comp.run)
	ctx := context.Background()

	_, _ = fn(ctx, Call(1))
	_, _ = fn(ctx, Call(2))

	if comp.calls.Load() != 2 {
		t.Errorf("expected 2 calls (cache miss), got %d", comp.calls.Load())
	}
}

func TestWrapper_KeyEquivalence(t *testing.T) {
	sig := MustSignature("test", "f", Required("a"), Optional("b", 5))
	w := newTestWrapper(t, NewMemoryBackend(), []string{"a", "b"})

	tests := []struct {
		name  string
		left  Args
		right Args
	}{
		{"positional vs keyword", Call(1, 2), Keywords(map[string]any{"a": 1, "b": 2})},
		{"default filled", Keywords(map[string]any{"a": 1}), Keywords(map[string]any{"a": 1, "b": 5})},
		{"mixed", Call(1).With("b", 2), Call(1, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k1, err := w.Key(sig, tt.left)
			if err != nil {
				t.Fatalf("Key(left) error = %v", err)
			}
			k2, err := w.Key(sig, tt.right)
			if err != nil {
				t.Fatalf("Key(right) error = %v", err)
			}
			if k1 != k2 {
				t.Errorf("keys differ: %s != %s", k1, k2)
			}
		})
	}
}

func TestWrap_ConfigValidation(t *testing.T) {
	backend := NewMemoryBackend()
	comp := &mockComputation{}

	w := newTestWrapper(t, backend, []string{"a", "missing"})
	fn, err := Wrap(w, testSig, comp.run)
	if fn != nil {
		t.Error("Wrap should not return a function on configuration error")
	}
	if !errors.Is(err, ErrConfiguration) || !errors.Is(err, ErrUnknownSignVariable) {
		t.Fatalf("Wrap() error = %v, want ErrUnknownSignVariable configuration error", err)
	}
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Variable != "missing" || cfgErr.Identity != "test.f" {
		t.Errorf("unexpected configuration error: %+v", cfgErr)
	}
	if comp.calls.Load() != 0 {
		t.Error("computation must not run during Wrap")
	}
}

func TestNewWrapper_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		backend Backend
		cfg     Config
		wantErr error
	}{
		{"nil backend", nil, Config{SignVariables: []string{"a"}}, ErrNilBackend},
		{"no sign variables", NewMemoryBackend(), Config{}, ErrNoSignVariables},
		{"duplicate", NewMemoryBackend(), Config{SignVariables: []string{"a", "a"}}, ErrDuplicateSignVariable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWrapper(tt.backend, tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewWrapper() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("NewWrapper() error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestWrap_NilArguments(t *testing.T) {
	w := newTestWrapper(t, NewMemoryBackend(), []string{"a"})

	if _, err := Wrap[string](w, nil, (&mockComputation{}).run); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("Wrap(nil sig) error = %v, want ErrInvalidSignature", err)
	}
	if _, err := Wrap[string](w, testSig, nil); !errors.Is(err, ErrNilFunc) {
		t.Errorf("Wrap(nil fn) error = %v, want ErrNilFunc", err)
	}
	if _, err := Wrap[string](nil, testSig, (&mockComputation{}).run); !errors.Is(err, ErrNilWrapper) {
		t.Errorf("Wrap(nil wrapper) error = %v, want ErrNilWrapper", err)
	}
}

func TestWrap_ComputationErrorTransparent(t *testing.T) {
	backend := newRecordingBackend()
	w := newTestWrapper(t, backend, []string{"a"})
	boom := errors.New("computation failed")
	comp := &mockComputation{err: boom}

	fn, _ := Wrap(w, testSig, comp.run)
	ctx := context.Background()

	_, err := fn(ctx, Call(1))
	if err != boom {
		t.Errorf("error = %v, want the computation's error unchanged", err)
	}
	if backend.sets.Load() != 0 {
		t.Errorf("nothing should be stored on failure, got %d sets", backend.sets.Load())
	}
	if backend.Len() != 0 {
		t.Errorf("backend should be empty, Len() = %d", backend.Len())
	}

	// Errors are not cached: a second call computes again
	_, _ = fn(ctx, Call(1))
	if comp.calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", comp.calls.Load())
	}
}

func TestWrap_BackendErrorsTransparent(t *testing.T) {
	getErr := errors.New("connection refused")
	setErr := errors.New("read-only replica")
	ctx := context.Background()

	t.Run("get", func(t *testing.T) {
		backend := newRecordingBackend()
		backend.getErr = getErr
		comp := &mockComputation{result: "r"}
		fn, _ := Wrap(newTestWrapper(t, backend, []string{"a"}), testSig, comp.run)

		if _, err := fn(ctx, Call(1)); err != getErr {
			t.Errorf("error = %v, want backend get error unchanged", err)
		}
		if comp.calls.Load() != 0 {
			t.Error("a failing probe must not be downgraded to a miss")
		}
	})

	t.Run("set", func(t *testing.T) {
		backend := newRecordingBackend()
		backend.setErr = setErr
		comp := &mockComputation{result: "r"}
		fn, _ := Wrap(newTestWrapper(t, backend, []string{"a"}), testSig, comp.run)

		if _, err := fn(ctx, Call(1)); err != setErr {
			t.Errorf("error = %v, want backend set error unchanged", err)
		}
		if comp.calls.Load() != 1 {
			t.Errorf("expected 1 call, got %d", comp.calls.Load())
		}
	})
}

func TestWrap_CallerErrors(t *testing.T) {
	backend := newRecordingBackend()
	comp := &mockComputation{result: "r"}
	fn, _ := Wrap(newTestWrapper(t, backend, []string{"a"}), testSig, comp.run)
	ctx := context.Background()

	tests := []struct {
		name    string
		args    Args
		wantErr error
	}{
		{"missing required", Call(), ErrMissingArgument},
		{"too many", Call(1, 2, 3), ErrTooManyArguments},
		{"unknown keyword", Call(1).With("zzz", 0), ErrUnexpectedArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := fn(ctx, tt.args); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if backend.gets.Load() != 0 || comp.calls.Load() != 0 {
		t.Error("caller errors must be reported before probing the backend")
	}
}

func TestWrap_ZeroValuePolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("default counts empty as hit", func(t *testing.T) {
		comp := &mockComputation{result: ""}
		fn, _ := Wrap(newTestWrapper(t, NewMemoryBackend(), []string{"a"}), testSig, comp.run)

		_, _ = fn(ctx, Call(1))
		_, _ = fn(ctx, Call(1))
		if comp.calls.Load() != 1 {
			t.Errorf("expected 1 call, got %d", comp.calls.Load())
		}
	})

	t.Run("zero as miss recomputes", func(t *testing.T) {
		comp := &mockComputation{result: ""}
		fn, _ := Wrap(newTestWrapper(t, NewMemoryBackend(), []string{"a"}, WithZeroAsMiss()), testSig, comp.run)

		_, _ = fn(ctx, Call(1))
		_, _ = fn(ctx, Call(1))
		if comp.calls.Load() != 2 {
			t.Errorf("expected 2 calls, got %d", comp.calls.Load())
		}
	})

	t.Run("zero as miss still hits non-zero", func(t *testing.T) {
		comp := &mockComputation{result: "text"}
		fn, _ := Wrap(newTestWrapper(t, NewMemoryBackend(), []string{"a"}, WithZeroAsMiss()), testSig, comp.run)

		_, _ = fn(ctx, Call(1))
		_, _ = fn(ctx, Call(1))
		if comp.calls.Load() != 1 {
			t.Errorf("expected 1 call, got %d", comp.calls.Load())
		}
	})
}

func TestIsZero(t *testing.T) {
	tests := []struct {
		v    any
		want bool
	}{
		{nil, true},
		{"", true},
		{0, true},
		{[]int{}, true},
		{map[string]int{}, true},
		{struct{ A int }{}, true},
		{"x", false},
		{1, false},
		{[]int{0}, false},
		{struct{ A int }{1}, false},
	}

	for _, tt := range tests {
		if got := isZero(tt.v); got != tt.want {
			t.Errorf("isZero(%#v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestWrap_Observer(t *testing.T) {
	var mu sync.Mutex
	var events []Event
	obs := ObserverFunc(func(_ context.Context, ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	w := newTestWrapper(t, NewMemoryBackend(), []string{"a"}, WithObserver(obs))
	fn, _ := Wrap(w, testSig, (&mockComputation{result: "r"}).run)
	ctx := context.Background()

	_, _ = fn(ctx, Call(1))
	_, _ = fn(ctx, Call(1))

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Kind != EventComputed || events[1].Kind != EventHit {
		t.Errorf("event kinds = %v, %v; want computed, hit", events[0].Kind, events[1].Kind)
	}
	for _, ev := range events {
		if ev.Name != "f" || ev.Identity != "test.f" || ev.Key == "" {
			t.Errorf("unexpected event: %+v", ev)
		}
	}
}

func TestWrap_NoEventOnFailure(t *testing.T) {
	var count atomic.Int32
	obs := ObserverFunc(func(context.Context, Event) { count.Add(1) })

	w := newTestWrapper(t, NewMemoryBackend(), []string{"a"}, WithObserver(obs))
	fn, _ := Wrap(w, testSig, (&mockComputation{err: errors.New("x")}).run)
	_, _ = fn(context.Background(), Call(1))

	if count.Load() != 0 {
		t.Errorf("expected no events for a failed call, got %d", count.Load())
	}
}

func TestWrap_NilObserverDisablesEvents(t *testing.T) {
	w := newTestWrapper(t, NewMemoryBackend(), []string{"a"}, WithObserver(nil))
	fn, _ := Wrap(w, testSig, (&mockComputation{result: "r"}).run)

	if _, err := fn(context.Background(), Call(1)); err != nil {
		t.Fatalf("call failed: %v", err)
	}
}

func TestWrap_NoCachePolicyPassesThrough(t *testing.T) {
	backend := newRecordingBackend()
	w, err := NewWrapper(backend, Config{SignVariables: []string{"a"}}, WithPolicy(NoCachePolicy()))
	if err != nil {
		t.Fatalf("NewWrapper() error = %v", err)
	}
	comp := &mockComputation{result: "r"}
	fn, _ := Wrap(w, testSig, comp.run)
	ctx := context.Background()

	_, _ = fn(ctx, Call(1))
	_, _ = fn(ctx, Call(1))

	if comp.calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", comp.calls.Load())
	}
	if backend.gets.Load() != 0 || backend.sets.Load() != 0 {
		t.Error("backend should not be used when caching is disabled")
	}
}

func TestWrapper_ExpiryDefaults(t *testing.T) {
	w, _ := NewWrapper(NewMemoryBackend(), Config{SignVariables: []string{"a"}})
	if w.Expiry() != DefaultExpiry {
		t.Errorf("Expiry() = %v, want %v", w.Expiry(), DefaultExpiry)
	}

	w, _ = NewWrapper(NewMemoryBackend(), Config{SignVariables: []string{"a"}, Expiry: time.Hour},
		WithPolicy(Policy{DefaultExpiry: time.Minute, MaxExpiry: 10 * time.Minute}))
	if w.Expiry() != 10*time.Minute {
		t.Errorf("Expiry() = %v, want clamped %v", w.Expiry(), 10*time.Minute)
	}
}

func TestWrap_DecodeError(t *testing.T) {
	backend := NewMemoryBackend()
	w := newTestWrapper(t, backend, []string{"a"})
	fn, _ := Wrap(w, MustSignature("test", "n", Required("a")), func(context.Context, Args) (int, error) {
		return 1, nil
	})
	ctx := context.Background()

	key, _ := w.Key(MustSignature("test", "n", Required("a")), Call(1))
	_ = backend.Set(ctx, key, []byte{0xc1}, time.Minute) // 0xc1 is never used in msgpack

	if _, err := fn(ctx, Call(1)); !errors.Is(err, ErrDecode) {
		t.Errorf("error = %v, want ErrDecode", err)
	}
}

func TestWrap_HashOption(t *testing.T) {
	w := newTestWrapper(t, NewMemoryBackend(), []string{"a"}, WithHash(HashXXHash))
	key, err := w.Key(testSig, Call(1))
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	if len(key) != 16 {
		t.Errorf("xxhash key length = %d, want 16", len(key))
	}
}

func TestWrap_SingleFlight(t *testing.T) {
	backend := newRecordingBackend()
	w := newTestWrapper(t, backend, []string{"a"}, WithSingleFlight())

	release := make(chan struct{})
	var calls atomic.Int32
	fn, _ := Wrap(w, testSig, func(context.Context, Args) (string, error) {
		calls.Add(1)
		<-release
		return "shared", nil
	})

	const n = 10
	var started, done sync.WaitGroup
	started.Add(n)
	done.Add(n)
	results := make([]string, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer done.Done()
			started.Done()
			results[i], _ = fn(context.Background(), Call(1))
		}(i)
	}
	started.Wait()

	// Let every goroutine reach the flight before releasing the leader
	deadline := time.Now().Add(2 * time.Second)
	for backend.gets.Load() < n && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	done.Wait()

	if calls.Load() != 1 {
		t.Errorf("expected 1 computation, got %d", calls.Load())
	}
	for i, r := range results {
		if r != "shared" {
			t.Errorf("results[%d] = %q, want shared", i, r)
		}
	}
}

func TestWrap_ConcurrentWithoutSingleFlight(t *testing.T) {
	w := newTestWrapper(t, NewMemoryBackend(), []string{"a"})
	comp := &mockComputation{result: "r"}
	fn, _ := Wrap(w, testSig, comp.run)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := fn(context.Background(), Call(i%5)); err != nil {
				t.Errorf("call failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if c := comp.calls.Load(); c < 5 {
		t.Errorf("expected at least one computation per distinct key, got %d", c)
	}
}
