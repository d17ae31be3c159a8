package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// BenchmarkMemoryBackend_Get_Hit measures backend hit performance.
func BenchmarkMemoryBackend_Get_Hit(b *testing.B) {
	m := NewMemoryBackend()
	ctx := context.Background()
	_ = m.Set(ctx, "key", []byte("value"), time.Hour)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = m.Get(ctx, "key")
	}
}

// BenchmarkMemoryBackend_Set measures write performance.
func BenchmarkMemoryBackend_Set(b *testing.B) {
	m := NewMemoryBackend()
	ctx := context.Background()
	value := []byte("value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.Set(ctx, fmt.Sprintf("key-%d", i), value, time.Hour)
	}
}

// BenchmarkNormalize measures argument binding.
func BenchmarkNormalize(b *testing.B) {
	sig := MustSignature("bench", "f", Required("a"), Optional("b", 5), Optional("c", "x"))
	args := Call(1).With("c", "y")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = sig.Normalize(args)
	}
}

// BenchmarkDefaultKeyer_Key compares digests.
func BenchmarkDefaultKeyer_Key(b *testing.B) {
	values := []any{"https://www.python.org", map[string]any{"limit": 10, "offset": 20}}

	for _, h := range []Hash{HashMD5, HashXXHash} {
		b.Run(h.String(), func(b *testing.B) {
			k := NewKeyer(h)
			for i := 0; i < b.N; i++ {
				_, _ = k.Key("bench.f", values)
			}
		})
	}
}

// BenchmarkWrap_Hit measures the full hit path.
func BenchmarkWrap_Hit(b *testing.B) {
	w, _ := NewWrapper(NewMemoryBackend(), Config{SignVariables: []string{"a"}})
	fn, _ := Wrap(w, MustSignature("bench", "f", Required("a")), func(context.Context, Args) (string, error) {
		return "value", nil
	})
	ctx := context.Background()
	args := Call(1)
	_, _ = fn(ctx, args)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = fn(ctx, args)
	}
}

// BenchmarkWrap_Concurrent measures parallel hits.
func BenchmarkWrap_Concurrent(b *testing.B) {
	w, _ := NewWrapper(NewMemoryBackend(), Config{SignVariables: []string{"a"}})
	fn, _ := Wrap(w, MustSignature("bench", "f", Required("a")), func(context.Context, Args) (int, error) {
		return 42, nil
	})
	ctx := context.Background()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = fn(ctx, Call(i%16))
			i++
		}
	})
}
