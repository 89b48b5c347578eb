package testkit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

var addFn = func(a, b int) int { return a + b }

func TestMustPanic(t *testing.T) {
	t.Parallel()
	MustPanic(t, func() { panic("boom") })
}

func TestMustContain(t *testing.T) {
	t.Parallel()
	MustContain(t, "Collected 4 repos, 3 fingerprinted", "Collected 4 repos,")
	MustNotContain(t, "Collected 4 repos", "timeout reached")
}

func TestWithinAndBlocks(t *testing.T) {
	t.Parallel()
	Within(t, time.Second, func() {})

	release := make(chan struct{})
	defer close(release)
	Blocks(t, 20*time.Millisecond, func() { <-release })
}

func TestSwap_RestoresAfterSubtest(t *testing.T) {
	t.Run("swap", func(t *testing.T) {
		Swap(t, &addFn, func(a, b int) int { return 99 })
		if got := addFn(1, 2); got != 99 {
			t.Fatalf("swap did not take effect, got %d", got)
		}
	})
	if got := addFn(1, 2); got != 3 {
		t.Fatalf("swap did not restore, got %d", got)
	}
}

func TestBuffer_ConcurrentWrites(t *testing.T) {
	t.Parallel()
	var b Buffer
	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fmt.Fprintf(&b, "line-%d\n", i)
		}()
	}
	wg.Wait()
	for i := range 10 {
		MustContain(t, b.String(), fmt.Sprintf("line-%d", i))
	}
}
