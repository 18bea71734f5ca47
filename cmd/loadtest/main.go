package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	grpcsvc "github.com/vladislavdragonenkov/storefront/internal/service/grpc"
)

type loadMode string

const (
	// modeCheckout только оформляет заказы.
	modeCheckout loadMode = "checkout"
	// modeCheckoutRead дополнительно читает каждый созданный заказ.
	modeCheckoutRead loadMode = "checkout-read"
)

// orderClient — подмножество grpcsvc.OrderServiceClient, нужное нагрузочному тесту.
type orderClient interface {
	CreateOrder(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetOrder(ctx context.Context, id string, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type config struct {
	addr          string
	total         int
	totalSet      bool
	duration      time.Duration
	concurrency   int
	connections   int
	timeout       time.Duration
	mode          loadMode
	productID     string
	quantity      int
	price         decimal.Decimal
	customerTag   string
	expectedStock int64
	outputPath    string
}

func parseConfig(args []string) (config, error) {
	var (
		cfg           config
		modeValue     string
		priceValue    string
		timeoutValue  string
		durationValue string
	)

	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.addr, "addr", "localhost:50051", "gRPC target address")
	fs.IntVar(&cfg.total, "total", 200, "total checkouts in count mode; in duration mode only used when explicitly set")
	fs.StringVar(&durationValue, "duration", "0s", "optional time-based run duration (e.g. 1m)")
	fs.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	fs.IntVar(&cfg.connections, "connections", 8, "number of gRPC client connections")
	fs.StringVar(&timeoutValue, "timeout", "5s", "per-RPC timeout")
	fs.StringVar(&modeValue, "mode", string(modeCheckout), "load mode: checkout | checkout-read")
	fs.StringVar(&cfg.productID, "product-id", "", "product every checkout competes for")
	fs.IntVar(&cfg.quantity, "quantity", 1, "quantity per order")
	fs.StringVar(&priceValue, "price", "1.00", "price_at_purchase per unit")
	fs.StringVar(&cfg.customerTag, "customer-tag", "load", "customer name prefix")
	fs.Int64Var(&cfg.expectedStock, "expect-stock", -1, "stock before the run; when >= 0 the run fails if more units are sold")
	fs.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

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

	price, err := decimal.NewFromString(strings.TrimSpace(priceValue))
	if err != nil {
		return cfg, fmt.Errorf("parse price: %w", err)
	}
	cfg.price = price

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode

	return cfg, cfg.validate()
}

func (cfg config) validate() error {
	switch {
	case cfg.duration < 0:
		return errors.New("duration must be >= 0")
	case cfg.duration == 0 && cfg.total <= 0:
		return errors.New("total must be > 0 when duration is not set")
	case cfg.duration > 0 && cfg.totalSet && cfg.total <= 0:
		return errors.New("total must be > 0 when explicitly set with duration")
	case cfg.concurrency <= 0:
		return errors.New("concurrency must be > 0")
	case cfg.connections <= 0:
		return errors.New("connections must be > 0")
	case cfg.timeout <= 0:
		return errors.New("timeout must be > 0")
	case strings.TrimSpace(cfg.productID) == "":
		return errors.New("product-id is required")
	case cfg.quantity <= 0:
		return errors.New("quantity must be > 0")
	case cfg.price.IsNegative():
		return errors.New("price must be >= 0")
	case strings.TrimSpace(cfg.customerTag) == "":
		return errors.New("customer-tag is required")
	}
	return nil
}

func parseMode(value string) (loadMode, error) {
	switch mode := loadMode(strings.TrimSpace(value)); mode {
	case modeCheckout, modeCheckoutRead:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	conns := make([]*grpc.ClientConn, 0, cfg.connections)
	clients := make([]orderClient, 0, cfg.connections)
	for i := 0; i < cfg.connections; i++ {
		conn, dialErr := grpc.NewClient(cfg.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if dialErr != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to create grpc client connection: %v\n", dialErr)
			os.Exit(1)
		}
		conns = append(conns, conn)
		clients = append(clients, grpcsvc.NewOrderServiceClient(conn))
	}

	result := runLoad(cfg, clients)
	for _, conn := range conns {
		_ = conn.Close()
	}

	printReport(os.Stdout, result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}

	if result.Oversold {
		_, _ = fmt.Fprintln(os.Stderr, "oversell detected: more units sold than were in stock")
		os.Exit(2)
	}
	if result.Failed > 0 {
		os.Exit(1)
	}
}

// runLoad гоняет конкурирующие оформления заказа на один товар и собирает отчёт.
func runLoad(cfg config, clients []orderClient) report {
	startedAt := time.Now()
	runID := fmt.Sprintf("%d-%d", startedAt.UnixNano(), os.Getpid())
	col := newCollector()

	jobs := make(chan int, cfg.concurrency*2)
	var wg sync.WaitGroup
	for workerID := 0; workerID < cfg.concurrency; workerID++ {
		wg.Add(1)
		go func(client orderClient) {
			defer wg.Done()
			for index := range jobs {
				runScenario(client, cfg, index, runID, col)
			}
		}(clients[workerID%len(clients)])
	}

	dispatchJobs(jobs, cfg)
	wg.Wait()

	return col.buildReport(startedAt, time.Since(startedAt), cfg.expectedStock)
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

func runScenario(client orderClient, cfg config, index int, runID string, col *collector) outcome {
	started := time.Now()
	result := outcomeFailed
	defer func() {
		col.recordScenario(result, time.Since(started), cfg.quantity)
	}()

	req, err := checkoutRequest(cfg, runID, index)
	if err != nil {
		return result
	}

	created, err := callCreateOrder(client, cfg.timeout, req, col)
	switch grpcCode(err) {
	case codes.OK:
	case codes.FailedPrecondition:
		result = outcomeRejected
		return result
	default:
		return result
	}

	orderID := created.GetFields()["id"].GetStringValue()
	if orderID == "" {
		return result
	}

	if cfg.mode == modeCheckoutRead {
		if err := callGetOrder(client, cfg.timeout, orderID, col); err != nil {
			return result
		}
	}

	result = outcomeAccepted
	return result
}

// checkoutRequest собирает тело CreateOrder в той же форме, что POST /api/orders.
func checkoutRequest(cfg config, runID string, index int) (*structpb.Struct, error) {
	total := cfg.price.Mul(decimal.NewFromInt(int64(cfg.quantity)))
	return structpb.NewStruct(map[string]any{
		"customer": map[string]any{
			"name":  fmt.Sprintf("%s %s-%d", cfg.customerTag, runID, index),
			"email": fmt.Sprintf("%s+%d@example.com", cfg.customerTag, index),
		},
		"items": []any{
			map[string]any{
				"product_id":        cfg.productID,
				"quantity":          cfg.quantity,
				"price_at_purchase": cfg.price.StringFixed(2),
			},
		},
		"totalAmount": total.StringFixed(2),
	})
}

func callCreateOrder(client orderClient, timeout time.Duration, req *structpb.Struct, col *collector) (*structpb.Struct, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resp, err := client.CreateOrder(ctx, req)
	col.record("CreateOrder", time.Since(start), grpcCode(err))
	return resp, err
}

func callGetOrder(client orderClient, timeout time.Duration, orderID string, col *collector) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	_, err := client.GetOrder(ctx, orderID)
	col.record("GetOrder", time.Since(start), grpcCode(err))
	return err
}

func grpcCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	return status.Code(err)
}
