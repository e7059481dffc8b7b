package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collector records callback batches for assertions.
type collector struct {
	mu      sync.Mutex
	batches [][]string
}

func (c *collector) onChange(paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, paths)
}

func (c *collector) waitForBatch(t *testing.T) []string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		if len(c.batches) > 0 {
			batch := c.batches[0]
			c.mu.Unlock()
			return batch
		}
		c.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no change batch within deadline")
	return nil
}

func (c *collector) batchCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

func startWatcher(t *testing.T, root string, c *collector) context.CancelFunc {
	t.Helper()
	w, err := New(50*time.Millisecond, c.onChange)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Watch(ctx, []string{root})
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = w.Close()
	})
	return cancel
}

func TestWatcher_ReportsCreatedFile(t *testing.T) {
	root := t.TempDir()
	c := &collector{}
	startWatcher(t, root, c)

	path := filepath.Join(root, "note.md")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	batch := c.waitForBatch(t)
	assert.Contains(t, batch, path)
}

func TestWatcher_CoalescesBurstIntoOneBatch(t *testing.T) {
	root := t.TempDir()
	c := &collector{}
	startWatcher(t, root, c)

	path := filepath.Join(root, "doc.txt")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("rev"), 0o644))
		time.Sleep(5 * time.Millisecond)
	}

	batch := c.waitForBatch(t)
	assert.Equal(t, []string{path}, batch)

	// Let the window drain; rapid writes must not produce one batch each.
	time.Sleep(200 * time.Millisecond)
	assert.LessOrEqual(t, c.batchCount(), 2)
}

func TestWatcher_SeesFilesInNewSubdirectory(t *testing.T) {
	root := t.TempDir()
	c := &collector{}
	startWatcher(t, root, c)

	sub := filepath.Join(root, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// Give the watcher a moment to register the new directory.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(sub, "deep.md")
	require.NoError(t, os.WriteFile(path, []byte("deep"), 0o644))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		for _, batch := range c.batches {
			for _, p := range batch {
				if p == path {
					c.mu.Unlock()
					return
				}
			}
		}
		c.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("change in new subdirectory never reported: %s", path)
}

func TestWatcher_MissingRoot(t *testing.T) {
	w, err := New(50*time.Millisecond, func([]string) {})
	require.NoError(t, err)
	defer w.Close()

	err = w.Watch(context.Background(), []string{filepath.Join(t.TempDir(), "gone")})
	require.Error(t, err)
}
