// Package memory tracks large in-process payloads against a byte budget.
//
// A Budget is a ledger, not an allocator: callers reserve a size under an
// ID before holding a payload and release the ID when they are done. The
// ledger refuses reservations that would push the tracked total past the
// ceiling, after first reclaiming entries that have sat idle longer than
// MaxAge.
//
//	b := memory.NewBudget(memory.Config{MaxTotalBytes: 256 << 20})
//	if err := b.Allocate("export-17", size); err != nil {
//		return err // memory.ErrBudgetExceeded or ErrAllocationTooLarge
//	}
//	defer b.Deallocate("export-17")
//
// Start runs a background sweep that reclaims idle entries whenever
// utilization reaches the pressure threshold.
package memory
