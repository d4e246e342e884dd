package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/reportops/resilience"
)

func ExampleRetryExecutor_Execute() {
	retry := resilience.NewRetryExecutor(resilience.RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
	})

	attempts := 0
	v, err := retry.Execute(context.Background(), "reports.run", func(ctx context.Context) (any, error) {
		attempts++
		if attempts < 3 {
			return nil, &resilience.OperationError{Op: "reports.run", StatusCode: 503}
		}
		return "report-42", nil
	})

	outcome, _ := retry.Outcome("reports.run")
	fmt.Println(v, err, outcome.Successes, outcome.TotalAttempts)
	// Output:
	// report-42 <nil> 1 3
}

func ExampleClassify() {
	fmt.Println(resilience.Classify(&resilience.OperationError{StatusCode: 429}))
	fmt.Println(resilience.Classify(&resilience.OperationError{StatusCode: 404}))
	fmt.Println(resilience.Classify(resilience.ErrQueueFull))
	// Output:
	// rate_limited
	// not_found
	// governance
}

func ExamplePool_Run() {
	pool := resilience.NewPool(resilience.PoolConfig{MaxConcurrent: 1})

	v, err := pool.Run(context.Background(), func(ctx context.Context) (any, error) {
		return "ok", nil
	}, resilience.RunOptions{Timeout: time.Second})

	fmt.Println(v, err)
	fmt.Println(pool.Stats().Completed)
	// Output:
	// ok <nil>
	// 1
}

func ExampleIsGovernance() {
	err := fmt.Errorf("submitting job: %w", resilience.ErrQueueFull)
	fmt.Println(resilience.IsGovernance(err))
	fmt.Println(resilience.IsGovernance(errors.New("remote failure")))
	// Output:
	// true
	// false
}
