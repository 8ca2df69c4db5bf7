package download

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
)

// Job describes one artifact to fetch.
type Job struct {
	URL          string
	DestPath     string
	Checksum     string
	ChecksumType string
	ExpectedSize int64
}

// JobResult pairs a Job with its outcome.
type JobResult struct {
	Job      Job
	Success  bool
	Error    error
	Download *Result
	index    int // preserves submission order
}

// Pool fans a batch of jobs out over a fixed number of workers.
type Pool struct {
	client  *Client
	workers int
	logger  *slog.Logger
}

// NewPool creates a pool running at most workers downloads at once.
func NewPool(client *Client, workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		client:  client,
		workers: workers,
		logger:  logger,
	}
}

// Execute runs all jobs and returns their results in submission order.
// Cancelling the context stops workers after their current download.
func (p *Pool) Execute(ctx context.Context, jobs []Job) []JobResult {
	if len(jobs) == 0 {
		return []JobResult{}
	}

	jobsChan := make(chan jobWithIndex, len(jobs))
	resultsChan := make(chan JobResult, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go p.worker(ctx, jobsChan, resultsChan, &wg)
	}

	for i, job := range jobs {
		jobsChan <- jobWithIndex{job: job, index: i}
	}
	close(jobsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	results := make([]JobResult, 0, len(jobs))
	for result := range resultsChan {
		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].index < results[j].index
	})

	return results
}

type jobWithIndex struct {
	job   Job
	index int
}

func (p *Pool) worker(ctx context.Context, jobsChan <-chan jobWithIndex, resultsChan chan<- JobResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for item := range jobsChan {
		select {
		case <-ctx.Done():
			resultsChan <- JobResult{
				Job:     item.job,
				Success: false,
				Error:   ctx.Err(),
				index:   item.index,
			}
			continue
		default:
		}

		opts := Options{
			URL:          item.job.URL,
			DestPath:     item.job.DestPath,
			Checksum:     item.job.Checksum,
			ChecksumType: item.job.ChecksumType,
			ExpectedSize: item.job.ExpectedSize,
		}

		downloadResult, err := p.client.Download(ctx, opts)

		result := JobResult{
			Job:      item.job,
			index:    item.index,
			Download: downloadResult,
		}

		if err != nil {
			result.Error = err
			p.logger.Error("download job failed", "url", item.job.URL, "dest", filepath.Base(item.job.DestPath), "error", err)
		} else {
			result.Success = true
			p.logger.Info("download job completed", "url", item.job.URL, "dest", filepath.Base(item.job.DestPath), "size", downloadResult.Size)
		}

		resultsChan <- result
	}
}
