package health

import (
	"context"
	"fmt"
	"testing"
)

func BenchmarkChecker_Check(b *testing.B) {
	checker := NewCheckerFunc("bench", func(ctx context.Context) Result {
		return Healthy("ok")
	})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = checker.Check(ctx)
	}
}

func BenchmarkHeapChecker_Check(b *testing.B) {
	checker := NewHeapChecker(HeapCheckerConfig{})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = checker.Check(ctx)
	}
}

func BenchmarkRegistry_RunOnce(b *testing.B) {
	for _, n := range []int{1, 5, 20} {
		b.Run(fmt.Sprintf("probes=%d", n), func(b *testing.B) {
			r := NewRegistry(RegistryConfig{})
			for i := 0; i < n; i++ {
				name := fmt.Sprintf("probe-%d", i)
				_ = r.Register(name, NewCheckerFunc(name, func(context.Context) Result {
					return Healthy("ok")
				}), ProbeOptions{Critical: i%2 == 0})
			}
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = r.RunOnce(ctx)
			}
		})
	}
}

func BenchmarkAggregate(b *testing.B) {
	results := make(map[string]Result, 10)
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("probe-%d", i)
		results[name] = Result{Name: name, Status: Status(i % 3), Critical: i%4 == 0}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Aggregate(results, results["probe-0"].Timestamp)
	}
}
