package review

// DefaultBatchSize is how many pending files share one AI call when the
// configuration does not say otherwise.
const DefaultBatchSize = 7

// Batches splits items into fixed-size groups, preserving order. N items
// with batch size B produce ceil(N/B) groups, each covering every item
// exactly once. Batching reduces the number of sequential provider calls;
// it introduces no parallelism.
func Batches[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
