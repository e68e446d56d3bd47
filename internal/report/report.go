// Package report summarizes stored scenario results.
package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"sort"
	"time"

	"go.uber.org/zap"

	"cennzxScope/internal/model"
)

// Group holds counters for one action or failure kind.
type Group struct {
	Name        string
	Total       int
	Passed      int
	Failed      int
	Duration    time.Duration
	MaxDuration time.Duration
}

func (g *Group) add(result model.ScenarioResult) {
	g.Total++
	if result.Passed {
		g.Passed++
	} else {
		g.Failed++
	}
	d := time.Duration(result.DurationMs) * time.Millisecond
	g.Duration += d
	if d > g.MaxDuration {
		g.MaxDuration = d
	}
}

// Report is the summary of one or more harness runs.
type Report struct {
	RunIDs   []string
	Total    int
	Passed   int
	Failed   int
	Fees     *big.Int
	ByAction []Group
	ByKind   []Group
	Failures []model.ScenarioResult
}

// OK reports whether every scenario passed.
func (r Report) OK() bool {
	return r.Total > 0 && r.Failed == 0
}

// Summarize folds results into a Report. When the same scenario appears more
// than once for a run, the last record wins.
func Summarize(results []model.ScenarioResult) Report {
	latest := make(map[string]int, len(results))
	ordered := make([]model.ScenarioResult, 0, len(results))
	for _, result := range results {
		key := result.RunID + "\x00" + result.Scenario
		if idx, ok := latest[key]; ok {
			ordered[idx] = result
			continue
		}
		latest[key] = len(ordered)
		ordered = append(ordered, result)
	}

	report := Report{Fees: new(big.Int)}
	runs := make(map[string]struct{})
	actions := make(map[string]*Group)
	kinds := make(map[string]*Group)

	for _, result := range ordered {
		if _, ok := runs[result.RunID]; !ok {
			runs[result.RunID] = struct{}{}
			report.RunIDs = append(report.RunIDs, result.RunID)
		}
		report.Total++
		if result.Passed {
			report.Passed++
		} else {
			report.Failed++
			report.Failures = append(report.Failures, result)
		}
		if fee, ok := new(big.Int).SetString(result.Fee, 10); ok {
			report.Fees.Add(report.Fees, fee)
		}

		group(actions, result.Action).add(result)
		if !result.Passed {
			group(kinds, result.Kind).add(result)
		}
	}

	report.ByAction = flatten(actions)
	report.ByKind = flatten(kinds)
	return report
}

func group(groups map[string]*Group, name string) *Group {
	if name == "" {
		name = "unknown"
	}
	g := groups[name]
	if g == nil {
		g = &Group{Name: name}
		groups[name] = g
	}
	return g
}

func flatten(groups map[string]*Group) []Group {
	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ScanStats counts what Scan saw in its input.
type ScanStats struct {
	Lines   int
	Decoded int
	Failed  int
}

// Scan decodes JSONL results, logging and skipping lines that do not decode.
// Results whose run ID differs from runID are dropped unless runID is empty.
func Scan(r io.Reader, runID string, logger *zap.Logger) ([]model.ScenarioResult, ScanStats, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var (
		results []model.ScenarioResult
		stats   ScanStats
	)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		stats.Lines++

		var result model.ScenarioResult
		if err := json.Unmarshal(line, &result); err != nil {
			stats.Failed++
			logger.Warn("decode scenario result", zap.Int("line", stats.Lines), zap.Error(err))
			continue
		}
		if runID != "" && result.RunID != runID {
			continue
		}
		stats.Decoded++
		results = append(results, result)
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("scan results: %w", err)
	}
	return results, stats, nil
}
