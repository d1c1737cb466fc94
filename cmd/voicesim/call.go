package main

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func callCMD() *cobra.Command {
	var gateway, mode string
	var concurrency int
	var duration, callTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "call",
		Short: "Drive concurrent interview sessions against a gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("Load test: %d concurrent sessions for %s\n", concurrency, duration)
			fmt.Printf("Gateway: %s | Mode: %s\n\n", gateway, mode)

			results := runLoad(concurrency, duration, func(worker, n int) callResult {
				return runCall(gateway, sessionMeta{
					UserName: fmt.Sprintf("sim-%d", worker),
					UserID:   fmt.Sprintf("sim-%d-%d", worker, n),
					Type:     mode,
				}, callTimeout)
			})
			printSummary(results)
			return nil
		},
	}
	cmd.Flags().StringVar(&gateway, "gateway", "ws://localhost:8000/ws/session", "gateway session websocket URL")
	cmd.Flags().StringVar(&mode, "mode", "generate", "session mode (generate|resume|interview)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 10, "number of concurrent sessions")
	cmd.Flags().DurationVar(&duration, "duration", 30*time.Second, "test duration")
	cmd.Flags().DurationVar(&callTimeout, "call-timeout", 2*time.Minute, "give up on a session after this long")
	return cmd
}

type sessionMeta struct {
	UserName string `json:"userName"`
	UserID   string `json:"userId"`
	Type     string `json:"type"`
}

// update is the subset of gateway updates the driver looks at.
type update struct {
	Type        string `json:"type"`
	Status      string `json:"status"`
	InterviewID string `json:"interviewId"`
	Path        string `json:"path"`
	Text        string `json:"text"`
}

type callResult struct {
	success     bool
	interviewed bool
	connectMs   float64
	interviewMs float64
	totalMs     float64
	path        string
	err         string
}

// runLoad keeps concurrency workers calling fn until duration has elapsed.
func runLoad(concurrency int, duration time.Duration, fn func(worker, n int) callResult) []callResult {
	var mu sync.Mutex
	var results []callResult
	var wg sync.WaitGroup

	deadline := time.Now().Add(duration)
	for w := range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; time.Now().Before(deadline); n++ {
				r := fn(w, n)
				mu.Lock()
				results = append(results, r)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return results
}

// runCall opens one session, starts the call and waits for the gateway to
// navigate away.
func runCall(gateway string, meta sessionMeta, timeout time.Duration) callResult {
	start := time.Now()
	conn, _, err := websocket.DefaultDialer.Dial(gateway, nil)
	if err != nil {
		return callResult{err: fmt.Sprintf("dial: %v", err)}
	}
	defer conn.Close()

	if err = conn.WriteJSON(meta); err != nil {
		return callResult{err: fmt.Sprintf("send metadata: %v", err)}
	}
	if err = conn.WriteJSON(map[string]string{"action": "start"}); err != nil {
		return callResult{err: fmt.Sprintf("send start: %v", err)}
	}

	var r callResult
	conn.SetReadDeadline(time.Now().Add(timeout))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			r.err = fmt.Sprintf("read: %v", err)
			return r
		}
		var u update
		if err = json.Unmarshal(data, &u); err != nil {
			continue
		}
		switch {
		case u.Type == "status" && u.Status == "ACTIVE":
			r.connectMs = sinceMs(start)
		case u.Type == "interview":
			r.interviewed = true
			r.interviewMs = sinceMs(start)
		case u.Type == "navigate":
			r.success = true
			r.path = u.Path
			r.totalMs = sinceMs(start)
			return r
		}
	}
}

func sinceMs(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}

func printSummary(results []callResult) {
	var succeeded, failed, interviewed int
	var connectAll, interviewAll, totalAll []float64
	paths := map[string]int{}
	errs := map[string]int{}

	for _, r := range results {
		if !r.success {
			failed++
			errs[r.err]++
			continue
		}
		succeeded++
		paths[r.path]++
		totalAll = append(totalAll, r.totalMs)
		if r.connectMs > 0 {
			connectAll = append(connectAll, r.connectMs)
		}
		if r.interviewed {
			interviewed++
			interviewAll = append(interviewAll, r.interviewMs)
		}
	}

	fmt.Printf("\n=== Load Test Results ===\n")
	fmt.Printf("Sessions completed: %d\n", succeeded)
	fmt.Printf("Sessions failed:    %d\n", failed)
	fmt.Printf("Interviews bound:   %d\n", interviewed)
	for path, n := range paths {
		fmt.Printf("  navigate %-30s %d\n", path, n)
	}
	for e, n := range errs {
		fmt.Printf("  error %-33s %d\n", e, n)
	}

	if len(totalAll) == 0 {
		fmt.Println("No successful sessions to report latency")
		return
	}

	fmt.Printf("\n%-10s %8s %8s %8s\n", "Stage", "p50", "p95", "p99")
	printRow("Connect", connectAll)
	printRow("Interview", interviewAll)
	printRow("Session", totalAll)
}

func printRow(name string, data []float64) {
	if len(data) == 0 {
		return
	}
	fmt.Printf("%-10s %8.0fms %8.0fms %8.0fms\n", name, percentile(data, 50), percentile(data, 95), percentile(data, 99))
}

func percentile(data []float64, pct float64) float64 {
	sort.Float64s(data)
	idx := int(math.Ceil(pct/100*float64(len(data)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(data) {
		idx = len(data) - 1
	}
	return data[idx]
}
