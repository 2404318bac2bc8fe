// Command bench replays a CSV message dataset through one Book and
// reports throughput and sampled per-message latency.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/grd/stat"
	"go.uber.org/zap"

	"tyr/domain/book"
	"tyr/feed"
)

// latencySampleEvery picks 1 in N messages for latency measurement so
// the clock reads themselves do not dominate the run.
const latencySampleEvery = 1000

type latencyStats struct {
	P50  float64 `json:"p50"`
	P95  float64 `json:"p95"`
	P99  float64 `json:"p99"`
	P999 float64 `json:"p99.9"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Avg  float64 `json:"avg"`
	Sd   float64 `json:"sd"`
}

type metrics struct {
	Events         uint64       `json:"events"`
	EngineTimeMs   float64      `json:"engine_time_ms"`
	ThroughputMps  float64      `json:"throughput_mps"`
	CSVReadMs      float64      `json:"csv_read_ms"`
	LatencyUs      latencyStats `json:"latency_us"`
	Trades         uint64       `json:"trades"`
	GoVersion      string       `json:"go_version"`
	SingleThreaded bool         `json:"single_threaded"`
}

type durationSlice []time.Duration

func (d durationSlice) Get(i int) float64 { return float64(d[i]) }
func (d durationSlice) Len() int          { return len(d) }

func main() {
	metricsPath := flag.String("metrics", "", "write metrics JSON to this file")
	noLatency := flag.Bool("no-latency", false, "skip per-message latency sampling")
	noTrades := flag.Bool("no-trades", false, "disable trade journal recording")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <csv_file>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	log, _ := zap.NewDevelopment()
	defer log.Sync()

	csvStart := time.Now()
	msgs, err := feed.NewReader(log).ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatal("dataset load failed", zap.Error(err))
	}
	csvElapsed := time.Since(csvStart)
	log.Info("dataset loaded",
		zap.Int("messages", len(msgs)),
		zap.Duration("took", csvElapsed),
	)

	bk := book.New()
	if *noTrades {
		bk.SetTradeRecording(false)
	}

	var samples durationSlice
	if !*noLatency {
		samples = make(durationSlice, 0, len(msgs)/latencySampleEvery+1)
	}

	start := time.Now()
	for i := range msgs {
		if samples != nil && i%latencySampleEvery == 0 {
			t0 := time.Now()
			_ = bk.Process(msgs[i])
			samples = append(samples, time.Since(t0))
		} else {
			_ = bk.Process(msgs[i])
		}
	}
	elapsed := time.Since(start)

	m := metrics{
		Events:         bk.TotalMessages(),
		EngineTimeMs:   float64(elapsed.Nanoseconds()) / 1e6,
		ThroughputMps:  float64(len(msgs)) / elapsed.Seconds() / 1e6,
		CSVReadMs:      float64(csvElapsed.Nanoseconds()) / 1e6,
		Trades:         bk.TotalTrades(),
		GoVersion:      runtime.Version(),
		SingleThreaded: true,
	}
	if len(samples) > 0 {
		m.LatencyUs = summarize(samples)
	}

	log.Info("replay finished",
		zap.Uint64("events", m.Events),
		zap.Uint64("trades", m.Trades),
		zap.Float64("engine_ms", m.EngineTimeMs),
		zap.Float64("throughput_mmps", m.ThroughputMps),
	)
	if len(samples) > 0 {
		log.Info("latency (us)",
			zap.Float64("p50", m.LatencyUs.P50),
			zap.Float64("p99", m.LatencyUs.P99),
			zap.Float64("p99.9", m.LatencyUs.P999),
			zap.Float64("max", m.LatencyUs.Max),
		)
	}

	if *metricsPath != "" {
		if err := writeMetrics(m, *metricsPath); err != nil {
			log.Error("metrics write failed", zap.Error(err))
		}
	}
}

func summarize(samples durationSlice) latencyStats {
	sorted := make(durationSlice, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	pct := func(p float64) float64 {
		idx := int(p * float64(len(sorted)-1))
		return toUs(sorted[idx])
	}

	mean := stat.Mean(sorted)
	return latencyStats{
		P50:  pct(0.50),
		P95:  pct(0.95),
		P99:  pct(0.99),
		P999: pct(0.999),
		Min:  toUs(sorted[0]),
		Max:  toUs(sorted[len(sorted)-1]),
		Avg:  mean / 1e3,
		Sd:   stat.SdMean(sorted, mean) / 1e3,
	}
}

func toUs(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e3
}

func writeMetrics(m metrics, path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
