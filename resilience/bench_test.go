package resilience

import (
	"context"
	"testing"
	"time"
)

func BenchmarkRetry_Success(b *testing.B) {
	r := NewRetry(RetryConfig{})
	ctx := context.Background()
	op := func(context.Context) error { return nil }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.Execute(ctx, op)
	}
}

func BenchmarkTimeout_Execute(b *testing.B) {
	to := NewTimeout(TimeoutConfig{Timeout: time.Second})
	ctx := context.Background()
	op := func(context.Context) error { return nil }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = to.Execute(ctx, op)
	}
}

func BenchmarkBulkhead_Parallel(b *testing.B) {
	bh := NewBulkhead(BulkheadConfig{MaxConcurrent: 64, MaxWait: time.Second})
	ctx := context.Background()
	op := func(context.Context) error { return nil }

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = bh.Execute(ctx, op)
		}
	})
}

func BenchmarkDo_AllPatterns(b *testing.B) {
	e := NewExecutor(
		WithRetry(NewRetry(RetryConfig{})),
		WithTimeout(time.Second),
		WithBulkhead(NewBulkhead(BulkheadConfig{MaxConcurrent: 8, MaxWait: time.Second})),
	)
	ctx := context.Background()
	op := func(context.Context) (int, error) { return 1, nil }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Do(ctx, e, op)
	}
}
