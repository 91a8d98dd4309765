package runner

// defaultArgBudget bounds the byte length of a single command line.
// Kernels reject arg lists near ARG_MAX; 64 KiB leaves generous headroom
// on every platform latch runs on.
const defaultArgBudget = 1 << 16

// partitionFiles splits file arguments into batches that, appended to a
// base command of baseLen bytes, stay under budget. Batches are sized so
// roughly concurrency of them exist, keeping parallel workers busy, and
// input order is preserved.
func partitionFiles(files []string, baseLen, concurrency, budget int) [][]string {
	if len(files) == 0 {
		return nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	total := 0
	longest := 0
	for _, f := range files {
		n := len(f) + 1
		total += n
		if n > longest {
			longest = n
		}
	}

	// Aim for even chunks across workers, but never smaller than one
	// argument and never past the platform budget.
	target := baseLen + (total+concurrency-1)/concurrency
	if min := baseLen + longest; target < min {
		target = min
	}
	if target > budget {
		target = budget
	}

	var batches [][]string
	var current []string
	length := baseLen
	for _, f := range files {
		n := len(f) + 1
		if len(current) > 0 && length+n > target {
			batches = append(batches, current)
			current = nil
			length = baseLen
		}
		current = append(current, f)
		length += n
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}
