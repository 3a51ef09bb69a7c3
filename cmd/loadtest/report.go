package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
)

const scenarioMethod = "scenario"

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

type report struct {
	StartedAt         time.Time               `json:"started_at"`
	Mode              string                  `json:"mode"`
	DurationSeconds   float64                 `json:"duration_seconds"`
	TotalScenarios    int64                   `json:"total_scenarios"`
	SuccessScenarios  int64                   `json:"success_scenarios"`
	FailedScenarios   int64                   `json:"failed_scenarios"`
	InvariantFailures int64                   `json:"invariant_failures"`
	ErrorRate         float64                 `json:"error_rate"`
	RPS               float64                 `json:"rps"`
	ScenarioLatencyMs latencySummary          `json:"scenario_latency_ms"`
	Methods           map[string]methodReport `json:"methods"`
}

type methodStats struct {
	calls     int64
	failed    int64
	codes     map[string]int64
	latencies []float64
}

func (s *methodStats) report() methodReport {
	codesCopy := make(map[string]int64, len(s.codes))
	for code, count := range s.codes {
		codesCopy[code] = count
	}
	return methodReport{
		Calls:     s.calls,
		Success:   s.calls - s.failed,
		Failed:    s.failed,
		ErrorRate: ratio(s.failed, s.calls),
		Codes:     codesCopy,
		LatencyMs: buildLatencySummary(s.latencies),
	}
}

// collector копит задержки и коды ответов по методам из всех воркеров.
type collector struct {
	mu         sync.Mutex
	methods    map[string]*methodStats
	invariants int64
}

func newCollector() *collector {
	return &collector{methods: make(map[string]*methodStats)}
}

func (c *collector) record(method string, latency time.Duration, code codes.Code) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.methods[method]
	if !ok {
		stats = &methodStats{codes: make(map[string]int64)}
		c.methods[method] = stats
	}

	stats.calls++
	if code != codes.OK {
		stats.failed++
	}
	stats.codes[code.String()]++
	stats.latencies = append(stats.latencies, float64(latency.Microseconds())/1000.0)
}

// invariantBroken отмечает сценарий, где сервер ответил OK, но состояние корзины неверно.
func (c *collector) invariantBroken() {
	c.mu.Lock()
	c.invariants++
	c.mu.Unlock()
}

func (c *collector) buildReport(mode loadMode, startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := report{
		StartedAt:         startedAt.UTC(),
		Mode:              string(mode),
		DurationSeconds:   duration.Seconds(),
		InvariantFailures: c.invariants,
		Methods:           make(map[string]methodReport, len(c.methods)),
	}

	for name, stats := range c.methods {
		result.Methods[name] = stats.report()
	}

	if scenario, ok := result.Methods[scenarioMethod]; ok {
		result.TotalScenarios = scenario.Calls
		result.SuccessScenarios = scenario.Success
		result.FailedScenarios = scenario.Failed
		result.ErrorRate = scenario.ErrorRate
		result.ScenarioLatencyMs = scenario.LatencyMs
	}
	if duration > 0 {
		result.RPS = float64(result.TotalScenarios) / duration.Seconds()
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

	// #nosec G304 -- путь задан флагом -output.
	file, err := os.Create(cleanPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printReport(result report, cfg config) {
	fmt.Println("Storefront load test summary")
	fmt.Printf("mode=%s run=%s total=%d success=%d failed=%d invariant_failures=%d error_rate=%.4f\n",
		result.Mode,
		runTarget(cfg),
		result.TotalScenarios,
		result.SuccessScenarios,
		result.FailedScenarios,
		result.InvariantFailures,
		result.ErrorRate,
	)
	fmt.Printf("duration=%.2fs rps=%.2f\n", result.DurationSeconds, result.RPS)
	fmt.Printf("scenario latency ms: min=%.2f avg=%.2f p50=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		result.ScenarioLatencyMs.Min,
		result.ScenarioLatencyMs.Avg,
		result.ScenarioLatencyMs.P50,
		result.ScenarioLatencyMs.P95,
		result.ScenarioLatencyMs.P99,
		result.ScenarioLatencyMs.Max,
	)

	names := make([]string, 0, len(result.Methods))
	for name := range result.Methods {
		if name != scenarioMethod {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		stats := result.Methods[name]
		fmt.Printf("%s: calls=%d failed=%d error_rate=%.4f p95=%.2fms\n",
			name, stats.Calls, stats.Failed, stats.ErrorRate, stats.LatencyMs.P95)
	}
}

func buildLatencySummary(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
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

// percentile - линейная интерполяция по отсортированной выборке.
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

	weight := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}

func ratio(failed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(failed) / float64(total)
}
