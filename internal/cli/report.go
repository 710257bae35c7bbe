package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/utkarsh5026/loopme/internal/config"
	"github.com/utkarsh5026/loopme/pool"
)

var (
	bold  = color.New(color.Bold)
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed)
)

// duration renders as a human readable string in JSON and YAML.
type duration time.Duration

func (d duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// ContextLoad is the load observed on one execution context.
type ContextLoad struct {
	Context int `json:"context" yaml:"context"`
	Peak    int `json:"peak" yaml:"peak"`
}

// Report summarizes one benchmark run.
type Report struct {
	Executor       string         `json:"executor" yaml:"executor"`
	PoolSize       int            `json:"pool_size" yaml:"pool_size"`
	MaxConcurrency int            `json:"max_concurrency" yaml:"max_concurrency"`
	Tasks          int            `json:"tasks" yaml:"tasks"`
	Succeeded      int            `json:"succeeded" yaml:"succeeded"`
	Failed         int            `json:"failed" yaml:"failed"`
	Elapsed        duration       `json:"elapsed" yaml:"elapsed"`
	Throughput     float64        `json:"throughput_per_sec" yaml:"throughput_per_sec"`
	P50            duration       `json:"p50" yaml:"p50"`
	P95            duration       `json:"p95" yaml:"p95"`
	P99            duration       `json:"p99" yaml:"p99"`
	Errors         map[string]int `json:"errors,omitempty" yaml:"errors,omitempty"`
	Contexts       []ContextLoad  `json:"contexts,omitempty" yaml:"contexts,omitempty"`

	latencies []time.Duration
}

func newReport(cfg *config.BenchConfig) *Report {
	executor := "inline"
	if cfg.PoolSize > 0 {
		executor = "loop-pool"
	}
	return &Report{
		Executor:       executor,
		PoolSize:       cfg.PoolSize,
		MaxConcurrency: cfg.MaxConcurrency,
	}
}

func (r *Report) record(res pool.BatchResult[time.Duration]) {
	r.Tasks++
	if !res.OK {
		r.Failed++
		if r.Errors == nil {
			r.Errors = make(map[string]int)
		}
		r.Errors[res.Err.Error()]++
		return
	}
	r.Succeeded++
	r.latencies = append(r.latencies, res.Value)
}

func (r *Report) finish(elapsed time.Duration) {
	r.Elapsed = duration(elapsed)
	if elapsed > 0 {
		r.Throughput = float64(r.Tasks) / elapsed.Seconds()
	}

	slices.Sort(r.latencies)
	r.P50 = duration(percentile(r.latencies, 0.50))
	r.P95 = duration(percentile(r.latencies, 0.95))
	r.P99 = duration(percentile(r.latencies, 0.99))
}

func (r *Report) setContexts(stats []pool.LoadStat) {
	r.Contexts = make([]ContextLoad, len(stats))
	for i, s := range stats {
		r.Contexts[i] = ContextLoad{Context: s.Context, Peak: s.Peak}
	}
}

// percentile returns the p-th percentile of sorted using the nearest-rank
// method. It returns zero for an empty slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	rank = max(0, min(rank, len(sorted)-1))
	return sorted[rank]
}

func renderReport(w io.Writer, r *Report, format string) error {
	switch format {
	case config.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(r)
	default:
		return renderTable(w, r)
	}
}

func renderTable(w io.Writer, r *Report) error {
	_, _ = bold.Fprintf(w, "\nBATCH RESULTS (%s, pool size %d, max concurrency %d)\n\n", r.Executor, r.PoolSize, r.MaxConcurrency)

	summary := tablewriter.NewWriter(w)
	summary.Header("Metric", "Value")
	rows := [][2]string{
		{"Tasks", fmt.Sprintf("%d", r.Tasks)},
		{"Succeeded", green.Sprintf("%d", r.Succeeded)},
		{"Failed", failedCell(r.Failed)},
		{"Elapsed", time.Duration(r.Elapsed).Round(time.Millisecond).String()},
		{"Tasks/sec", fmt.Sprintf("%.1f", r.Throughput)},
		{"P50", time.Duration(r.P50).Round(time.Microsecond).String()},
		{"P95", time.Duration(r.P95).Round(time.Microsecond).String()},
		{"P99", time.Duration(r.P99).Round(time.Microsecond).String()},
	}
	for _, row := range rows {
		if err := summary.Append(row[0], row[1]); err != nil {
			return err
		}
	}
	if err := summary.Render(); err != nil {
		return err
	}

	if len(r.Contexts) > 0 {
		_, _ = bold.Fprintln(w, "\nLOAD PER EXECUTION CONTEXT")
		load := tablewriter.NewWriter(w)
		load.Header("Context", "Peak In Flight")
		for _, c := range r.Contexts {
			_ = load.Append(fmt.Sprintf("#%d", c.Context), fmt.Sprintf("%d", c.Peak))
		}
		if err := load.Render(); err != nil {
			return err
		}
	}

	if len(r.Errors) > 0 {
		_, _ = bold.Fprintln(w, "\nFAILURES")
		failures := tablewriter.NewWriter(w)
		failures.Header("Error", "Count")
		for _, msg := range slices.Sorted(maps.Keys(r.Errors)) {
			_ = failures.Append(red.Sprint(msg), fmt.Sprintf("%d", r.Errors[msg]))
		}
		return failures.Render()
	}
	return nil
}

func failedCell(n int) string {
	if n == 0 {
		return "0"
	}
	return red.Sprintf("%d", n)
}
