package harness

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Checkpoint lists the scenarios that already passed.
type Checkpoint struct {
	RunID     string   `json:"run_id"`
	Passed    []string `json:"passed"`
	UpdatedAt string   `json:"updated_at"`
}

// CheckpointStore persists passed scenario names so a rerun can skip them.
type CheckpointStore struct {
	path    string
	enabled bool

	mu     sync.Mutex
	runID  string
	passed map[string]struct{}
}

func NewCheckpointStore(path string, enabled bool) *CheckpointStore {
	return &CheckpointStore{path: path, enabled: enabled, passed: make(map[string]struct{})}
}

// Load reads the checkpoint file into memory. A checkpoint written by a run
// other than runID is ignored and will be replaced; an empty runID adopts
// whatever run the file belongs to.
func (c *CheckpointStore) Load(runID string) (Checkpoint, bool, error) {
	if c == nil || !c.enabled {
		return Checkpoint{}, false, nil
	}

	stat, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, fmt.Errorf("stat checkpoint: %w", err)
	}
	if stat.IsDir() {
		return Checkpoint{}, false, fmt.Errorf("checkpoint path is a directory")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("parse checkpoint: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if runID != "" && cp.RunID != runID {
		c.runID = runID
		c.passed = make(map[string]struct{})
		return cp, false, nil
	}
	c.runID = cp.RunID
	for _, name := range cp.Passed {
		c.passed[name] = struct{}{}
	}
	return cp, true, nil
}

// Done reports whether name passed in a previous run.
func (c *CheckpointStore) Done(name string) bool {
	if c == nil || !c.enabled {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.passed[name]
	return ok
}

// MarkPassed records name and rewrites the checkpoint file.
func (c *CheckpointStore) MarkPassed(runID, name string) error {
	if c == nil || !c.enabled {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.runID = runID
	c.passed[name] = struct{}{}

	names := make([]string, 0, len(c.passed))
	for passed := range c.passed {
		names = append(names, passed)
	}
	sort.Strings(names)
	return c.save(Checkpoint{
		RunID:     c.runID,
		Passed:    names,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (c *CheckpointStore) save(cp Checkpoint) error {
	dir := filepath.Dir(c.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}
