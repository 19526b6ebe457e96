package concurmem

import "testing"

func TestRoundUp(t *testing.T) {
	cases := []struct {
		n, want uintptr
	}{
		{1, 8},
		{8, 8},
		{9, 16},
		{128, 128},
		{129, 144},
		{1024, 1024},
		{1025, 1152},
		{8 << 10, 8 << 10},
		{8<<10 + 1, 8<<10 + 1024},
		{64 << 10, 64 << 10},
		{64<<10 + 1, 64<<10 + 8192},
		{256 << 10, 256 << 10},
	}
	for _, c := range cases {
		if got := roundUp(c.n); got != c.want {
			t.Errorf("roundUp(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

func TestClassIndex(t *testing.T) {
	cases := []struct {
		n    uintptr
		want int
	}{
		{1, 0},
		{8, 0},
		{9, 1},
		{128, 15},
		{129, 16},
		{1024, 71},
		{1025, 72},
		{256 << 10, numSizeClasses - 1},
	}
	for _, c := range cases {
		if got := classIndex(c.n); got != c.want {
			t.Errorf("classIndex(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

func TestClassIndexMonotonic(t *testing.T) {
	prev := -1
	n := uintptr(1)
	for n <= maxBytes {
		c := classIndex(n)
		if c < prev {
			t.Fatalf("classIndex not monotonic at n=%d: got %d after %d", n, c, prev)
		}
		prev = c
		if n < 1<<16 {
			n++
		} else {
			n += 127 // keep the sweep fast across the coarse bands
		}
	}
}

func TestClassSizeRoundTrip(t *testing.T) {
	for c := 0; c < numSizeClasses; c++ {
		size := classSize(c)
		if got := classIndex(size); got != c {
			t.Errorf("classIndex(classSize(%d)=%d) = %d, want %d", c, size, got, c)
		}
		if roundUp(size) != size {
			t.Errorf("classSize(%d)=%d is not itself aligned", c, size)
		}
	}
}

func TestObjectsPerBatchBounds(t *testing.T) {
	for c := 0; c < numSizeClasses; c++ {
		n := objectsPerBatch(classSize(c))
		if n < 2 || n > 512 {
			t.Errorf("objectsPerBatch(classSize(%d)) = %d, out of [2,512]", c, n)
		}
	}
}

// pagesPerSpan is the byte size of one batch rounded down to whole pages,
// never less than one page.
func TestPagesPerSpanIsBatchBytesInWholePages(t *testing.T) {
	for c := 0; c < numSizeClasses; c++ {
		size := classSize(c)
		pages := pagesPerSpan(size)
		want := objectsPerBatch(size) * size / pageSize
		if want < 1 {
			want = 1
		}
		if pages != want {
			t.Errorf("class %d: pagesPerSpan(%d) = %d, want %d (batch of %d objects)",
				c, size, pages, want, objectsPerBatch(size))
		}
	}
}
