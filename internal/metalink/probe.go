package metalink

import (
	"context"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	probeTimeout    = 5 * time.Second
	probeMaxWorkers = 10
)

// Probe measures latency and throughput for the given mirrors and returns
// results sorted by throughput descending, errors last. Latency is measured
// for every mirror; throughput only for the topN fastest, by fetching each
// mirror's repomd.xml index.
func (d *Discovery) Probe(ctx context.Context, mirrors []Mirror, topN int) []ProbeResult {
	urls := make([]string, len(mirrors))
	for i, m := range mirrors {
		urls[i] = m.URL
	}

	results := d.measureLatency(ctx, urls)

	// Sort by latency ascending, errors last.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Error != "" && results[j].Error == "" {
			return false
		}
		if results[i].Error == "" && results[j].Error != "" {
			return true
		}
		return results[i].LatencyMs < results[j].LatencyMs
	})

	var candidates []ProbeResult
	var rest []ProbeResult
	for _, r := range results {
		if r.Error == "" && len(candidates) < topN {
			candidates = append(candidates, r)
		} else {
			rest = append(rest, r)
		}
	}

	final := append(d.measureThroughput(ctx, candidates), rest...)

	// Sort by throughput descending, errors last.
	sort.Slice(final, func(i, j int) bool {
		if final[i].Error != "" && final[j].Error == "" {
			return false
		}
		if final[i].Error == "" && final[j].Error != "" {
			return true
		}
		return final[i].ThroughputKBps > final[j].ThroughputKBps
	})

	return final
}

// measureLatency performs concurrent HEAD requests against each mirror base.
func (d *Discovery) measureLatency(ctx context.Context, urls []string) []ProbeResult {
	results := make([]ProbeResult, len(urls))
	sem := make(chan struct{}, probeMaxWorkers)
	var wg sync.WaitGroup

	for i, u := range urls {
		wg.Add(1)
		go func(idx int, url string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			reqCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()

			req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, url, nil)
			if err != nil {
				results[idx] = ProbeResult{URL: url, Error: err.Error()}
				return
			}
			req.Header.Set("User-Agent", "repomd/1.0")

			start := time.Now()
			resp, err := d.client.Do(req)
			elapsed := time.Since(start)

			if err != nil {
				results[idx] = ProbeResult{URL: url, LatencyMs: int(elapsed.Milliseconds()), Error: err.Error()}
				return
			}
			_ = resp.Body.Close()

			results[idx] = ProbeResult{
				URL:       url,
				LatencyMs: int(elapsed.Milliseconds()),
			}
		}(i, u)
	}

	wg.Wait()
	return results
}

// measureThroughput downloads each candidate's repomd.xml and times it.
func (d *Discovery) measureThroughput(ctx context.Context, candidates []ProbeResult) []ProbeResult {
	results := make([]ProbeResult, len(candidates))
	sem := make(chan struct{}, probeMaxWorkers)
	var wg sync.WaitGroup

	for i, c := range candidates {
		wg.Add(1)
		go func(idx int, pr ProbeResult) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			reqCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()

			indexURL := strings.TrimSuffix(pr.URL, "/") + indexSuffix
			req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, indexURL, nil)
			if err != nil {
				pr.Error = err.Error()
				results[idx] = pr
				return
			}
			req.Header.Set("User-Agent", "repomd/1.0")

			start := time.Now()
			resp, err := d.client.Do(req)
			if err != nil {
				pr.Error = err.Error()
				results[idx] = pr
				return
			}
			defer func() {
				_ = resp.Body.Close()
			}()

			bytes, err := io.Copy(io.Discard, resp.Body)
			elapsed := time.Since(start)

			if err != nil {
				pr.Error = err.Error()
				results[idx] = pr
				return
			}

			if elapsed.Seconds() > 0 {
				pr.ThroughputKBps = float64(bytes) / elapsed.Seconds() / 1024.0
			}
			results[idx] = pr
		}(i, c)
	}

	wg.Wait()
	return results
}
