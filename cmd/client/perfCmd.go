package client

import (
	"context"
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/mcpc/cmd/util"
	"github.com/VictoriaMetrics/metrics"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for servers",
		Long:    "Runs ping, echo, echo-large and request benchmarks over a single connection and prints throughput and latency percentiles.",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfSkip             = make([]string, 0)
)

// perfResult holds the outcome of one benchmark
type perfResult struct {
	bench   testing.BenchmarkResult
	latency gometrics.Timer
	errors  gometrics.Counter
}

func init() {
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. echo,request)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of goroutines per CPU sending requests concurrently"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the text of the echo-large test should be (in KB)"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
	key = "metrics"
	perfTestCmd.Flags().Bool(key, false, util.WrapString("Print the client metrics in Prometheus text format after the run"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(cmd *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	ctx := cmd.Context()
	if err := rpcClient.Connect(ctx); err != nil {
		return err
	}

	fmt.Println("starting tests...")

	largeText := strings.Repeat("x", perfLargeValueSizeKB*1024)

	benchmarks := []struct {
		name string
		op   func(ctx context.Context) error
	}{
		{"ping", func(ctx context.Context) error {
			_, err := rpcClient.Ping(ctx)
			return err
		}},
		{"echo", func(ctx context.Context) error {
			_, err := rpcClient.Echo(ctx, "hello")
			return err
		}},
		{"echo-large", func(ctx context.Context) error {
			_, err := rpcClient.Echo(ctx, largeText)
			return err
		}},
		{"request", func(ctx context.Context) error {
			_, err := rpcClient.Request(ctx, "request", map[string]int{"n": 1}, 0)
			return err
		}},
	}

	results := make(map[string]perfResult)
	for _, bm := range benchmarks {
		result := perfResult{
			latency: gometrics.NewTimer(),
			errors:  gometrics.NewCounter(),
		}

		result.bench = testing.Benchmark(func(b *testing.B) {
			if shouldSkip(bm.name) {
				return
			}

			b.SetParallelism(perfNumThreads)
			b.ResetTimer()

			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					start := time.Now()
					if err := bm.op(ctx); err != nil {
						result.errors.Inc(1)
						log.Printf("(%s) - error: %v\n", bm.name, err)
						continue
					}
					result.latency.UpdateSince(start)
				}
			})
		})

		results[bm.name] = result
		printResult(bm.name, result)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %w", err)
		}
		fmt.Println("Export complete")
	}

	if viper.GetBool("metrics") {
		fmt.Println()
		metrics.WritePrometheus(os.Stdout, false)
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	for _, skip := range perfSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

func printResult(test string, result perfResult) {
	if result.bench.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.bench.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)
	p := result.latency.Percentiles([]float64{0.5, 0.99})

	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp50=%s p99=%s\terrors=%d\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec,
		time.Duration(p[0]), time.Duration(p[1]), result.errors.Count())
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]perfResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	config := util.GetClientConfig()

	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "P50Ns", "P99Ns", "Errors", "Skipped",
		"Transport", "Endpoint", "RequestTimeout", "Threads", "LargeValueSizeKB",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	endpoint := config.Address()
	if viper.GetString("transport") == "unix" {
		endpoint = config.SocketPath
	}

	for test, result := range results {
		var nsPerOp, opsPerSec float64
		skipped := "true"

		if result.bench.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp = math.Max(float64(result.bench.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}
		p := result.latency.Percentiles([]float64{0.5, 0.99})

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			fmt.Sprintf("%.0f", p[0]),
			fmt.Sprintf("%.0f", p[1]),
			strconv.FormatInt(result.errors.Count(), 10),
			skipped,
			viper.GetString("transport"),
			endpoint,
			config.RequestTimeout.String(),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %w", test, err)
		}
	}

	return nil
}
