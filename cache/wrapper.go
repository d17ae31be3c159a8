package cache

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/singleflight"
)

// Func is the shape of a computation that can be wrapped. args are the
// invocation's original arguments; a computation that needs them by name
// binds them with its Signature.
type Func[T any] func(ctx context.Context, args Args) (T, error)

// Config selects which arguments identify a call and how long results live.
type Config struct {
	// SignVariables are the parameter names whose values determine cache
	// key equivalence, in key order. Required.
	SignVariables []string

	// Expiry is how long a computed result stays in the backend.
	// Zero uses the Policy default.
	Expiry time.Duration
}

// Option configures a Wrapper.
type Option func(*Wrapper)

// WithKeyer replaces the default MD5 keyer.
func WithKeyer(k Keyer) Option {
	return func(w *Wrapper) {
		if k != nil {
			w.keyer = k
		}
	}
}

// WithHash selects the digest of the default keyer.
func WithHash(h Hash) Option {
	return func(w *Wrapper) {
		w.keyer = NewKeyer(h)
	}
}

// WithObserver sets the sink for hit and computed events.
// A nil observer disables events.
func WithObserver(o Observer) Option {
	return func(w *Wrapper) {
		if o == nil {
			o = noopObserver{}
		}
		w.observer = o
	}
}

// WithPolicy sets the expiry policy.
func WithPolicy(p Policy) Option {
	return func(w *Wrapper) {
		w.policy = p
	}
}

// WithZeroAsMiss treats a stored zero value ("", 0, nil, empty slice or
// map, zero struct) as absent, so such results are recomputed on every call.
// By default any stored entry is a hit.
func WithZeroAsMiss() Option {
	return func(w *Wrapper) {
		w.zeroAsMiss = true
	}
}

// WithSingleFlight coalesces concurrent misses for the same key into one
// computation. Waiting callers share the result and error of the first
// caller, which runs under the first caller's context.
func WithSingleFlight() Option {
	return func(w *Wrapper) {
		w.group = &singleflight.Group{}
	}
}

// Wrapper holds the caching configuration shared by the computations it
// wraps.
//
// Contract:
// - Concurrency: a Wrapper and the functions returned by Wrap are safe for
// concurrent use. Without WithSingleFlight, concurrent misses on one key
// all compute and all store; the last write wins.
// - Errors: backend and computation errors are returned unchanged. Nothing
// is stored when the computation fails.
type Wrapper struct {
	backend       Backend
	signVariables []string
	expiry        time.Duration
	keyer         Keyer
	observer      Observer
	policy        Policy
	zeroAsMiss    bool
	group         *singleflight.Group
}

// NewWrapper validates cfg and creates a Wrapper over backend.
func NewWrapper(backend Backend, cfg Config, opts ...Option) (*Wrapper, error) {
	if backend == nil {
		return nil, configError("", "", ErrNilBackend)
	}
	if len(cfg.SignVariables) == 0 {
		return nil, configError("", "", ErrNoSignVariables)
	}

	seen := make(map[string]struct{}, len(cfg.SignVariables))
	for _, name := range cfg.SignVariables {
		if _, dup := seen[name]; dup {
			return nil, configError("", name, ErrDuplicateSignVariable)
		}
		seen[name] = struct{}{}
	}

	w := &Wrapper{
		backend:       backend,
		signVariables: append([]string(nil), cfg.SignVariables...),
		expiry:        cfg.Expiry,
		keyer:         NewDefaultKeyer(),
		observer:      noopObserver{},
		policy:        DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// SignVariables returns the configured sign variables in key order.
func (w *Wrapper) SignVariables() []string {
	return append([]string(nil), w.signVariables...)
}

// Expiry returns the expiry applied to stored results. Zero means results
// are not cached.
func (w *Wrapper) Expiry() time.Duration {
	return w.policy.EffectiveExpiry(w.expiry)
}

// Validate checks that every sign variable is a parameter of sig.
func (w *Wrapper) Validate(sig *Signature) error {
	if sig == nil {
		return configError("", "", errors.Wrap(ErrInvalidSignature, "signature is nil"))
	}
	for _, name := range w.signVariables {
		if !sig.Has(name) {
			return configError(sig.Identity(), name, ErrUnknownSignVariable)
		}
	}
	return nil
}

// Key derives the cache key an invocation of sig with args would use.
func (w *Wrapper) Key(sig *Signature, args Args) (string, error) {
	if err := w.Validate(sig); err != nil {
		return "", err
	}
	return w.derive(sig, args)
}

func (w *Wrapper) derive(sig *Signature, args Args) (string, error) {
	bound, err := sig.Normalize(args)
	if err != nil {
		return "", err
	}
	if missing := sig.missing(bound); len(missing) > 0 {
		return "", errors.Wrapf(ErrMissingArgument, "%s: %s", sig.Identity(), strings.Join(missing, ", "))
	}

	values := make([]any, len(w.signVariables))
	for i, name := range w.signVariables {
		values[i] = bound[name]
	}
	return w.keyer.Key(sig.Identity(), values)
}

// Wrap returns fn with read-through caching. Results are stored with
// MsgpackCodec. Every sign variable must be a parameter of sig; otherwise
// Wrap fails with a ConfigurationError.
func Wrap[T any](w *Wrapper, sig *Signature, fn Func[T]) (Func[T], error) {
	return WrapCodec[T](w, sig, fn, MsgpackCodec[T]{})
}

// WrapCodec is like Wrap with an explicit codec.
func WrapCodec[T any](w *Wrapper, sig *Signature, fn Func[T], codec Codec[T]) (Func[T], error) {
	if w == nil {
		return nil, configError("", "", ErrNilWrapper)
	}
	if err := w.Validate(sig); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, configError(sig.Identity(), "", ErrNilFunc)
	}
	if codec == nil {
		codec = MsgpackCodec[T]{}
	}

	c := &cached[T]{w: w, sig: sig, fn: fn, codec: codec}
	return c.invoke, nil
}

type cached[T any] struct {
	w     *Wrapper
	sig   *Signature
	fn    Func[T]
	codec Codec[T]
}

func (c *cached[T]) invoke(ctx context.Context, args Args) (T, error) {
	var zero T

	expiry := c.w.Expiry()
	if expiry <= 0 {
		return c.fn(ctx, args)
	}

	start := time.Now()

	key, err := c.w.derive(c.sig, args)
	if err != nil {
		return zero, err
	}

	data, found, err := c.w.backend.Get(ctx, key)
	if err != nil {
		return zero, err
	}
	if found {
		v, err := c.codec.Decode(data)
		if err != nil {
			return zero, &CodecError{Key: key, Decode: true, Err: err}
		}
		if !c.w.zeroAsMiss || !isZero(v) {
			c.emit(ctx, EventHit, key, start)
			return v, nil
		}
	}

	if c.w.group == nil {
		return c.compute(ctx, args, key, expiry, start)
	}

	v, err, _ := c.w.group.Do(key, func() (any, error) {
		return c.compute(ctx, args, key, expiry, start)
	})
	if err != nil {
		return zero, err
	}
	result, _ := v.(T)
	return result, nil
}

func (c *cached[T]) compute(ctx context.Context, args Args, key string, expiry time.Duration, start time.Time) (T, error) {
	var zero T

	result, err := c.fn(ctx, args)
	if err != nil {
		return zero, err
	}

	data, err := c.codec.Encode(result)
	if err != nil {
		return zero, &CodecError{Key: key, Err: err}
	}
	if err := c.w.backend.Set(ctx, key, data, expiry); err != nil {
		return zero, err
	}

	c.emit(ctx, EventComputed, key, start)
	return result, nil
}

func (c *cached[T]) emit(ctx context.Context, kind EventKind, key string, start time.Time) {
	c.w.observer.Observe(ctx, Event{
		Kind:     kind,
		Name:     c.sig.Name(),
		Identity: c.sig.Identity(),
		Key:      key,
		Duration: time.Since(start),
	})
}

// isZero reports whether v would be considered empty: the zero value of its
// type, or an empty string, slice or map.
func isZero(v any) bool {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	}
	return rv.IsZero()
}
