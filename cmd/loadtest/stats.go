package main

import (
	"fmt"
	"io"
	"math"
	"slices"
	"sync"
	"time"
)

// stats collects per-request outcomes from every worker.
type stats struct {
	mu          sync.Mutex
	total       int64
	failed      int64
	cacheHits   int64
	zeroResults int64
	latencies   []time.Duration
	statusCodes map[int]int64
}

func newStats() *stats {
	return &stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]int64),
	}
}

// outcome is one finished search request. status is zero when the request
// never got a response.
type outcome struct {
	latency   time.Duration
	status    int
	cacheHit  bool
	totalHits int
}

func (s *stats) record(o outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	if o.status == 0 {
		s.failed++
		return
	}
	s.statusCodes[o.status]++
	if o.status < 200 || o.status >= 300 {
		s.failed++
		return
	}
	s.latencies = append(s.latencies, o.latency)
	if o.cacheHit {
		s.cacheHits++
	}
	if o.totalHits == 0 {
		s.zeroResults++
	}
}

type report struct {
	Total       int64
	Failed      int64
	CacheHits   int64
	ZeroResults int64
	RPS         float64
	Min, Avg    time.Duration
	P50, P90    time.Duration
	P95, P99    time.Duration
	Max, StdDev time.Duration
	StatusCodes map[int]int64
}

func (s *stats) report(elapsed time.Duration) report {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := report{
		Total:       s.total,
		Failed:      s.failed,
		CacheHits:   s.cacheHits,
		ZeroResults: s.zeroResults,
		StatusCodes: make(map[int]int64, len(s.statusCodes)),
	}
	for code, n := range s.statusCodes {
		r.StatusCodes[code] = n
	}
	if elapsed > 0 {
		r.RPS = float64(s.total) / elapsed.Seconds()
	}
	if len(s.latencies) == 0 {
		return r
	}

	sorted := slices.Clone(s.latencies)
	slices.Sort(sorted)
	var sum time.Duration
	for _, l := range sorted {
		sum += l
	}
	r.Avg = sum / time.Duration(len(sorted))
	var squares float64
	for _, l := range sorted {
		diff := float64(l - r.Avg)
		squares += diff * diff
	}
	r.StdDev = time.Duration(math.Sqrt(squares / float64(len(sorted))))
	r.Min, r.Max = sorted[0], sorted[len(sorted)-1]
	r.P50 = percentile(sorted, 50)
	r.P90 = percentile(sorted, 90)
	r.P95 = percentile(sorted, 95)
	r.P99 = percentile(sorted, 99)
	return r
}

// percentile uses the nearest-rank method on an ascending slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}

func (r report) write(w io.Writer) {
	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", r.Total)
	fmt.Fprintf(w, "Failed:          %d\n", r.Failed)
	if r.Total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(r.Failed)/float64(r.Total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", r.RPS)
		fmt.Fprintf(w, "Cache Hits:      %d\n", r.CacheHits)
		fmt.Fprintf(w, "Zero Results:    %d\n", r.ZeroResults)
	}

	if r.Max > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", r.Min)
		fmt.Fprintf(w, "Avg:    %s\n", r.Avg)
		fmt.Fprintf(w, "P50:    %s\n", r.P50)
		fmt.Fprintf(w, "P90:    %s\n", r.P90)
		fmt.Fprintf(w, "P95:    %s\n", r.P95)
		fmt.Fprintf(w, "P99:    %s\n", r.P99)
		fmt.Fprintf(w, "Max:    %s\n", r.Max)
		fmt.Fprintf(w, "StdDev: %s\n", r.StdDev)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	codes := make([]int, 0, len(r.StatusCodes))
	for code := range r.StatusCodes {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, r.StatusCodes[code])
	}
}
