package runner

import (
	"fmt"
	"reflect"
	"testing"
)

func flatten(batches [][]string) []string {
	var out []string
	for _, b := range batches {
		out = append(out, b...)
	}
	return out
}

func TestPartitionFiles_Empty(t *testing.T) {
	if got := partitionFiles(nil, 10, 4, defaultArgBudget); got != nil {
		t.Errorf("partitionFiles(nil) = %v, want nil", got)
	}
}

func TestPartitionFiles_SingleBatch(t *testing.T) {
	files := []string{"a.py", "b.py", "c.py"}
	got := partitionFiles(files, 10, 1, defaultArgBudget)
	if len(got) != 1 {
		t.Fatalf("got %d batches, want 1", len(got))
	}
	if !reflect.DeepEqual(got[0], files) {
		t.Errorf("batch = %v, want %v", got[0], files)
	}
}

func TestPartitionFiles_SpreadsAcrossWorkers(t *testing.T) {
	var files []string
	for i := 0; i < 100; i++ {
		files = append(files, fmt.Sprintf("file-%03d", i))
	}

	got := partitionFiles(files, 10, 4, defaultArgBudget)
	if len(got) < 4 {
		t.Errorf("got %d batches, want at least 4 for 4 workers", len(got))
	}
	if !reflect.DeepEqual(flatten(got), files) {
		t.Error("partitioning must preserve file order")
	}
}

func TestPartitionFiles_RespectsBudget(t *testing.T) {
	var files []string
	for i := 0; i < 50; i++ {
		files = append(files, fmt.Sprintf("some/nested/path/file-%03d.py", i))
	}

	baseLen := 20
	budget := 200
	got := partitionFiles(files, baseLen, 1, budget)

	for i, batch := range got {
		length := baseLen
		for _, f := range batch {
			length += len(f) + 1
		}
		if length > budget && len(batch) > 1 {
			t.Errorf("batch %d is %d bytes over a %d budget", i, length, budget)
		}
	}
	if !reflect.DeepEqual(flatten(got), files) {
		t.Error("partitioning must preserve file order")
	}
}

func TestPartitionFiles_OversizeArg(t *testing.T) {
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'x'
	}
	files := []string{string(long), string(long)}

	// Each oversize argument still gets its own batch.
	got := partitionFiles(files, 10, 1, 100)
	if len(got) != 2 {
		t.Fatalf("got %d batches, want 2", len(got))
	}
	for i, batch := range got {
		if len(batch) != 1 {
			t.Errorf("batch %d has %d files, want 1", i, len(batch))
		}
	}
}
