package memory_test

import (
	"errors"
	"fmt"

	"github.com/jonwraymond/reportops/memory"
)

func ExampleBudget_Allocate() {
	b := memory.NewBudget(memory.Config{MaxTotalBytes: 1024, MaxItemBytes: 512})

	fmt.Println(b.Allocate("render-1", 512))
	fmt.Println(b.Allocate("render-2", 512))

	err := b.Allocate("render-3", 1)
	fmt.Println(errors.Is(err, memory.ErrBudgetExceeded))

	b.Deallocate("render-1")
	fmt.Println(b.Allocate("render-3", 1))
	// Output:
	// <nil>
	// <nil>
	// true
	// <nil>
}

func ExampleBudget_Stats() {
	b := memory.NewBudget(memory.Config{MaxTotalBytes: 1000})
	_ = b.Allocate("a", 250)

	s := b.Stats()
	fmt.Println(s.TrackedTotal, s.Allocations, s.Utilization)
	// Output:
	// 250 1 0.25
}
