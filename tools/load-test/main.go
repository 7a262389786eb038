package main

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

func main() {
	// Configuration
	// Ensure this URL matches the one defined in your LOCALTESTING.md
	url := "http://localhost:8080/api/v1/templates/simulate"
	contentType := "application/json"

	totalRequests := 500
	concurrency := 20 // Number of concurrent requests to avoid local port exhaustion

	fmt.Printf("Starting load test: %d simulation requests to %s with concurrency %d\n", totalRequests, url, concurrency)

	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency) // Semaphore to limit concurrency

	var successCount int64
	var failCount int64

	startTime := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		sem <- struct{}{} // Acquire token

		go func() {
			defer wg.Done()
			defer func() { <-sem }() // Release token

			payload := []byte(`{"ruleVersionId": "load-test-version", "companyId": "load-test-company", "periodDays": 30}`)

			resp, err := http.Post(url, contentType, bytes.NewBuffer(payload))
			if err != nil {
				atomic.AddInt64(&failCount, 1)
				return
			}

			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				atomic.AddInt64(&successCount, 1)
			} else {
				atomic.AddInt64(&failCount, 1)
			}
			resp.Body.Close()
		}()
	}

	wg.Wait()
	duration := time.Since(startTime)

	fmt.Println("\n--- Load Test Results ---")
	fmt.Printf("Total Duration: %v\n", duration)
	fmt.Printf("Total Requests: %d\n", totalRequests)
	fmt.Printf("Successful:     %d\n", successCount)
	fmt.Printf("Failed:         %d\n", failCount)
	fmt.Printf("Requests/Sec:   %.2f\n", float64(totalRequests)/duration.Seconds())
}
