package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
)

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type methodReport struct {
	Calls     int64            `json:"calls"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Codes     map[string]int64 `json:"codes"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

// report — итог прогона. Accepted/Rejected считают сценарии, в которых заказ
// был создан или отклонён из-за нехватки остатка; Failed — всё остальное.
type report struct {
	StartedAt         time.Time               `json:"started_at"`
	DurationSeconds   float64                 `json:"duration_seconds"`
	TotalScenarios    int64                   `json:"total_scenarios"`
	Accepted          int64                   `json:"accepted"`
	Rejected          int64                   `json:"rejected"`
	Failed            int64                   `json:"failed"`
	UnitsSold         int64                   `json:"units_sold"`
	ExpectedStock     int64                   `json:"expected_stock"`
	Oversold          bool                    `json:"oversold"`
	ErrorRate         float64                 `json:"error_rate"`
	RPS               float64                 `json:"rps"`
	ScenarioLatencyMs latencySummary          `json:"scenario_latency_ms"`
	Methods           map[string]methodReport `json:"methods"`
}

type outcome int

const (
	outcomeAccepted outcome = iota
	outcomeRejected
	outcomeFailed
)

type methodStats struct {
	calls     int64
	failed    int64
	codes     map[string]int64
	latencies []float64
}

type collector struct {
	mu        sync.Mutex
	methods   map[string]*methodStats
	scenarios [3]int64
	latencies []float64
	unitsSold int64
}

func newCollector() *collector {
	return &collector{methods: make(map[string]*methodStats)}
}

// record учитывает один RPC. FailedPrecondition при нехватке остатка не считается ошибкой.
func (c *collector) record(method string, latency time.Duration, code codes.Code) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.methods[method]
	if !ok {
		stats = &methodStats{codes: make(map[string]int64)}
		c.methods[method] = stats
	}

	stats.calls++
	if code != codes.OK && code != codes.FailedPrecondition {
		stats.failed++
	}
	stats.codes[code.String()]++
	stats.latencies = append(stats.latencies, toMillis(latency))
}

func (c *collector) recordScenario(result outcome, latency time.Duration, units int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.scenarios[result]++
	c.latencies = append(c.latencies, toMillis(latency))
	if result == outcomeAccepted {
		c.unitsSold += int64(units)
	}
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration, expectedStock int64) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.scenarios[outcomeAccepted] + c.scenarios[outcomeRejected] + c.scenarios[outcomeFailed]
	result := report{
		StartedAt:         startedAt.UTC(),
		DurationSeconds:   duration.Seconds(),
		TotalScenarios:    total,
		Accepted:          c.scenarios[outcomeAccepted],
		Rejected:          c.scenarios[outcomeRejected],
		Failed:            c.scenarios[outcomeFailed],
		UnitsSold:         c.unitsSold,
		ExpectedStock:     expectedStock,
		ErrorRate:         ratio(c.scenarios[outcomeFailed], total),
		ScenarioLatencyMs: buildLatencySummary(c.latencies),
		Methods:           make(map[string]methodReport, len(c.methods)),
	}
	result.Oversold = expectedStock >= 0 && result.UnitsSold > expectedStock
	if duration > 0 {
		result.RPS = float64(total) / duration.Seconds()
	}

	for name, stats := range c.methods {
		codesCopy := make(map[string]int64, len(stats.codes))
		for code, count := range stats.codes {
			codesCopy[code] = count
		}
		result.Methods[name] = methodReport{
			Calls:     stats.calls,
			Success:   stats.calls - stats.failed,
			Failed:    stats.failed,
			ErrorRate: ratio(stats.failed, stats.calls),
			Codes:     codesCopy,
			LatencyMs: buildLatencySummary(stats.latencies),
		}
	}

	return result
}

func writeJSONReport(path string, result report) error {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || cleanPath == string(filepath.Separator) {
		return errors.New("output path must point to a file")
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	// #nosec G304 -- путь к отчёту задаётся явно флагом CLI.
	file, err := os.Create(cleanPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printReport(w io.Writer, result report, cfg config) {
	_, _ = fmt.Fprintln(w, "Checkout load test summary")
	_, _ = fmt.Fprintf(w, "mode=%s run=%s product=%s total=%d accepted=%d rejected=%d failed=%d error_rate=%.4f\n",
		cfg.mode,
		runTarget(cfg),
		cfg.productID,
		result.TotalScenarios,
		result.Accepted,
		result.Rejected,
		result.Failed,
		result.ErrorRate,
	)
	if result.ExpectedStock >= 0 {
		_, _ = fmt.Fprintf(w, "units_sold=%d expected_stock=%d oversold=%t\n", result.UnitsSold, result.ExpectedStock, result.Oversold)
	} else {
		_, _ = fmt.Fprintf(w, "units_sold=%d\n", result.UnitsSold)
	}
	_, _ = fmt.Fprintf(w, "duration=%.2fs rps=%.2f\n", result.DurationSeconds, result.RPS)
	_, _ = fmt.Fprintf(w, "scenario latency ms: min=%.2f avg=%.2f p50=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		result.ScenarioLatencyMs.Min,
		result.ScenarioLatencyMs.Avg,
		result.ScenarioLatencyMs.P50,
		result.ScenarioLatencyMs.P95,
		result.ScenarioLatencyMs.P99,
		result.ScenarioLatencyMs.Max,
	)

	names := make([]string, 0, len(result.Methods))
	for name := range result.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		stats := result.Methods[name]
		_, _ = fmt.Fprintf(w, "%s: calls=%d success=%d failed=%d error_rate=%.4f p95=%.2fms\n",
			name, stats.Calls, stats.Success, stats.Failed, stats.ErrorRate, stats.LatencyMs.P95)
	}
}

func runTarget(cfg config) string {
	if cfg.duration <= 0 {
		return fmt.Sprintf("count:%d", cfg.total)
	}
	if cfg.totalSet {
		return fmt.Sprintf("duration:%s,max-total:%d", cfg.duration, cfg.total)
	}
	return fmt.Sprintf("duration:%s", cfg.duration)
}

func buildLatencySummary(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum float64
	for _, value := range sorted {
		sum += value
	}

	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

// percentile считает перцентиль с линейной интерполяцией между соседними рангами.
func percentile(sorted []float64, p float64) float64 {
	switch len(sorted) {
	case 0:
		return 0
	case 1:
		return sorted[0]
	}

	rank := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	return sorted[lower] + (sorted[upper]-sorted[lower])*(rank-float64(lower))
}

func ratio(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total)
}

func toMillis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
