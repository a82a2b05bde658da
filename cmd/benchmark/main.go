package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Config holds the benchmark settings
var (
	targetURL   string
	concurrency int
	duration    time.Duration
	workload    string
	accounts    int
	amount      string
)

// Ids handed out by a freshly seeded backend.
const (
	firstUserID    = 1001
	firstAccountID = 2001
)

// Metrics
var (
	totalRequests uint64
	success201    uint64 // Created
	fail422       uint64 // Insufficient funds and other business rejections
	fail409       uint64 // Conflicts (Aborts)
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&workload, "workload", "uniform", "Workload type: uniform | hotspot")
	flag.IntVar(&accounts, "accounts", 1000, "Number of seeded accounts")
	flag.StringVar(&amount, "amount", "1.00", "Amount moved by each transfer")
}

func main() {
	flag.Parse()
	runID := uuid.NewString()
	log.Printf("Starting Benchmark %s: %s | Workers: %d | Duration: %s", runID, workload, concurrency, duration)

	client := &http.Client{Timeout: 5 * time.Second}
	before, err := totalBalance(client)
	if err != nil {
		log.Fatalf("Reading balances failed: %v", err)
	}

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, client, start, fmt.Sprintf("%s-%d", runID, i))
	}

	wg.Wait()
	elapsed := time.Since(start)

	after, err := totalBalance(client)
	if err != nil {
		log.Fatalf("Reading balances failed: %v", err)
	}
	printResults(elapsed, before, after)
}

func worker(wg *sync.WaitGroup, client *http.Client, start time.Time, workerID string) {
	defer wg.Done()

	for seq := 0; time.Since(start) < duration; seq++ {
		from, to := generateAccounts()

		payload := map[string]interface{}{
			"account_from": from,
			"account_to":   to,
			"amount":       amount,
		}
		body, _ := json.Marshal(payload)

		req, _ := http.NewRequest("POST", targetURL+"/api/v1/transfers", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Request-ID", fmt.Sprintf("%s-%d", workerID, seq))

		resp, err := client.Do(req)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		atomic.AddUint64(&totalRequests, 1)
		switch resp.StatusCode {
		case 201:
			atomic.AddUint64(&success201, 1)
		case 422:
			atomic.AddUint64(&fail422, 1)
		case 409:
			atomic.AddUint64(&fail409, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
		resp.Body.Close()
	}
}

func generateAccounts() (int64, int64) {
	if workload == "hotspot" {
		// Hotspot: 90% of traffic goes to the first two accounts
		if rand.Float32() < 0.90 {
			if rand.Float32() < 0.5 {
				return firstAccountID, firstAccountID + 1
			}
			return firstAccountID + 1, firstAccountID
		}
	}

	// Uniform Random
	a := rand.Intn(accounts)
	b := rand.Intn(accounts)
	for a == b {
		b = rand.Intn(accounts)
	}
	return int64(firstAccountID + a), int64(firstAccountID + b)
}

// totalBalance sums every seeded user's balance; transfers must leave it unchanged.
func totalBalance(client *http.Client) (decimal.Decimal, error) {
	sum := decimal.Zero
	for i := 0; i < accounts; i++ {
		resp, err := client.Get(fmt.Sprintf("%s/api/v1/users/%d/balance", targetURL, firstUserID+i))
		if err != nil {
			return decimal.Zero, err
		}
		var body struct {
			Balance decimal.Decimal `json:"balance"`
		}
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if err != nil {
			return decimal.Zero, fmt.Errorf("user %d: %w", firstUserID+i, err)
		}
		sum = sum.Add(body.Balance)
	}
	return sum, nil
}

func printResults(d time.Duration, before, after decimal.Decimal) {
	total := atomic.LoadUint64(&totalRequests)
	s201 := atomic.LoadUint64(&success201)
	f422 := atomic.LoadUint64(&fail422)
	f409 := atomic.LoadUint64(&fail409)
	fErr := atomic.LoadUint64(&failOther)

	tps := float64(total) / d.Seconds()
	abortRate := 0.0
	if total > 0 {
		abortRate = float64(f409) / float64(total) * 100
	}

	results := map[string]interface{}{
		"workload":        workload,
		"duration_sec":    d.Seconds(),
		"total_requests":  total,
		"throughput_tps":  tps,
		"success_created": s201,
		"rejected":        f422,
		"aborts_conflict": f409,
		"abort_rate_pct":  abortRate,
		"errors":          fErr,
		"balance_before":  before.StringFixed(2),
		"balance_after":   after.StringFixed(2),
		"funds_conserved": before.Equal(after),
	}

	// Print JSON for the python plotter to consume
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	// Also save to file
	filename := fmt.Sprintf("results_%s.json", workload)
	file, err := os.Create(filename)
	if err != nil {
		log.Printf("Saving results failed: %v", err)
		return
	}
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
