package cache

import "testing"

func TestClassifyFirstAccessUnknown(t *testing.T) {
	c := newTestCache(t, 4)

	if got := c.Observe(1, 0, 0); got != PatternUnknown {
		t.Errorf("first access = %v, want Unknown", got)
	}
}

func TestClassifySequential(t *testing.T) {
	c := newTestCache(t, 4)

	c.Observe(1, 0, 0)
	if got := c.Observe(1, 1, 1); got != PatternSequential {
		t.Errorf("second access = %v, want Sequential", got)
	}
	if got := c.Observe(1, 2, 2); got != PatternSequential {
		t.Errorf("third access = %v, want Sequential", got)
	}
}

func TestClassifyRandomJump(t *testing.T) {
	c := newTestCache(t, 4)

	c.Observe(1, 0, 0)
	if got := c.Observe(1, 50, 50); got != PatternRandom {
		t.Errorf("jump to page 50 = %v, want Random", got)
	}
}

func TestClassifyLocalSeekStaysUnknown(t *testing.T) {
	c := newTestCache(t, 4)

	c.Observe(1, 10, 10)
	// Re-reading the same page is neither sequential nor a wild jump.
	if got := c.Observe(1, 10, 10); got != PatternUnknown {
		t.Errorf("re-read = %v, want Unknown", got)
	}
}

func TestClassifyMultiPageRequests(t *testing.T) {
	c := newTestCache(t, 4)

	// A request covering pages 0-3 followed by one starting at page 4
	// continues the sequence.
	c.Observe(1, 0, 3)
	if got := c.Observe(1, 4, 7); got != PatternSequential {
		t.Errorf("continuation after multi-page read = %v, want Sequential", got)
	}
}

func TestClassifyPerFileState(t *testing.T) {
	c := newTestCache(t, 4)

	c.Observe(1, 0, 0)
	c.Observe(2, 100, 100)

	// File 2's history must not disturb file 1's.
	if got := c.Observe(1, 1, 1); got != PatternSequential {
		t.Errorf("file 1 pattern = %v, want Sequential", got)
	}
	if got := c.Observe(2, 101, 101); got != PatternSequential {
		t.Errorf("file 2 pattern = %v, want Sequential", got)
	}
}

func TestReadaheadWindows(t *testing.T) {
	c := newTestCache(t, 4)

	if got := c.ReadaheadWindow(1); got != windowUnknown {
		t.Errorf("unseen file window = %d, want %d", got, windowUnknown)
	}

	c.Observe(1, 0, 0)
	c.Observe(1, 1, 1)
	if got := c.ReadaheadWindow(1); got != windowSequential {
		t.Errorf("sequential window = %d, want %d", got, windowSequential)
	}

	c.Observe(1, 500, 500)
	if got := c.ReadaheadWindow(1); got != windowRandom {
		t.Errorf("random window = %d, want %d", got, windowRandom)
	}
}

func TestInvalidateForgetsPattern(t *testing.T) {
	c := newTestCache(t, 4)

	c.Observe(1, 0, 0)
	c.Observe(1, 1, 1)
	c.InvalidateFile(1)

	if got := c.Observe(1, 2, 2); got != PatternUnknown {
		t.Errorf("pattern after invalidation = %v, want Unknown", got)
	}
}

func TestPatternString(t *testing.T) {
	tests := []struct {
		pattern AccessPattern
		want    string
	}{
		{PatternSequential, "Sequential"},
		{PatternRandom, "Random"},
		{PatternUnknown, "Unknown"},
		{AccessPattern(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.pattern.String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", tt.pattern, got, tt.want)
		}
	}
}
