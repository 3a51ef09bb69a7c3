// Command loadtest гоняет сценарии посетителей витрины по gRPC и печатает отчёт о задержках.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	grpcsvc "github.com/vladislavdragonenkov/storefront/internal/service/grpc"
)

type loadMode string

const (
	modeBrowse loadMode = "browse"
	modeOutfit loadMode = "outfit"
	modeCart   loadMode = "cart"
)

type config struct {
	addr        string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	connections int
	timeout     time.Duration
	mode        loadMode
	seed        uint64
	outputPath  string
}

func parseConfig() (config, error) {
	var cfg config
	var modeValue, timeoutValue, durationValue string

	flag.StringVar(&cfg.addr, "addr", "localhost:50051", "gRPC target address")
	flag.IntVar(&cfg.total, "total", 400, "total scenarios in count mode; with -duration only a cap when set explicitly")
	flag.StringVar(&durationValue, "duration", "0s", "optional time-based run duration (e.g. 1m)")
	flag.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	flag.IntVar(&cfg.connections, "connections", 8, "number of gRPC client connections")
	flag.StringVar(&timeoutValue, "timeout", "5s", "per-RPC timeout")
	flag.StringVar(&modeValue, "mode", string(modeOutfit), "scenario: browse | outfit | cart")
	flag.Uint64Var(&cfg.seed, "seed", 0, "random seed for item choice (0 = random)")
	flag.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	flag.Parse()

	timeout, err := time.ParseDuration(strings.TrimSpace(timeoutValue))
	if err != nil {
		return cfg, fmt.Errorf("parse timeout: %w", err)
	}
	cfg.timeout = timeout

	duration, err := time.ParseDuration(strings.TrimSpace(durationValue))
	if err != nil {
		return cfg, fmt.Errorf("parse duration: %w", err)
	}
	cfg.duration = duration

	flag.CommandLine.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	if cfg.mode, err = parseMode(modeValue); err != nil {
		return cfg, err
	}

	switch {
	case cfg.duration < 0:
		return cfg, errors.New("duration must be >= 0")
	case cfg.duration == 0 && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when duration is not set")
	case cfg.duration > 0 && cfg.totalSet && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	case cfg.concurrency <= 0:
		return cfg, errors.New("concurrency must be > 0")
	case cfg.connections <= 0:
		return cfg, errors.New("connections must be > 0")
	case cfg.timeout <= 0:
		return cfg, errors.New("timeout must be > 0")
	}

	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch mode := loadMode(strings.TrimSpace(value)); mode {
	case modeBrowse, modeOutfit, modeCart:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

func main() {
	cfg, err := parseConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	conns := make([]*grpc.ClientConn, 0, cfg.connections)
	clients := make([]storefrontClient, 0, cfg.connections)
	for i := 0; i < cfg.connections; i++ {
		conn, dialErr := grpc.NewClient(cfg.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if dialErr != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to create grpc client connection: %v\n", dialErr)
			os.Exit(1)
		}
		conns = append(conns, conn)
		clients = append(clients, grpcsvc.NewClient(conn))
	}
	defer func() {
		for _, conn := range conns {
			_ = conn.Close()
		}
	}()

	result, err := runLoad(cfg, clients)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "load test failed: %v\n", err)
		os.Exit(1)
	}

	printReport(result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}

	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

// runLoad загружает каталог и раздаёт сценарии воркерам.
func runLoad(cfg config, clients []storefrontClient) (report, error) {
	if len(clients) == 0 {
		return report{}, errors.New("no clients")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.timeout)
	catalog, err := clients[0].ListCatalog(ctx)
	cancel()
	if err != nil {
		return report{}, fmt.Errorf("load catalog: %w", err)
	}
	if len(catalog) == 0 {
		return report{}, errors.New("catalog is empty")
	}

	startedAt := time.Now()
	col := newCollector()
	jobs := make(chan int, cfg.concurrency*2)

	var wg sync.WaitGroup
	for workerID := 0; workerID < cfg.concurrency; workerID++ {
		runner := &scenarioRunner{
			client:  clients[workerID%len(clients)],
			timeout: cfg.timeout,
			col:     col,
			catalog: catalog,
			faker:   workerFaker(cfg.seed, workerID),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				_ = runner.run(cfg.mode)
			}
		}()
	}

	dispatchJobs(jobs, cfg)
	wg.Wait()

	return col.buildReport(cfg.mode, startedAt, time.Since(startedAt)), nil
}

// workerFaker: у каждого воркера свой генератор, общий seed даёт воспроизводимый прогон.
func workerFaker(seed uint64, workerID int) *gofakeit.Faker {
	if seed == 0 {
		return gofakeit.New(0)
	}
	return gofakeit.New(seed + uint64(workerID))
}

func dispatchJobs(jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := 0; i < cfg.total; i++ {
			jobs <- i
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; ; i++ {
		if cfg.totalSet && i >= cfg.total {
			return
		}

		select {
		case <-timer.C:
			return
		case jobs <- i:
		}
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

var _ storefrontClient = (*grpcsvc.Client)(nil)
