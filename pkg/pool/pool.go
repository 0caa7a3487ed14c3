package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Pool to manage, interact with worker pool
type Pool[J, R any] interface {
	// SendJobs to job queue
	SendJobs(jobs ...J)
	// Results returns the results channel, it is closed once all workers stopped
	Results() <-chan R
	// Close closes job queue and returns results channel
	Close() <-chan R
	// Errors returns slice of JobError, in case of successful retries intermittent errors are not returned.
	// It waits for all workers to stop
	Errors() []JobError
}

type JobError struct {
	Job any
	Err error
}

// ErrJobPanicked wraps the value recovered from a panicking job
var ErrJobPanicked = errors.New("job panicked")

type singleStagePool[J, R any] struct {
	*Config[J, R]
	running   int
	retries   int
	mutex     sync.Mutex
	closeOnce sync.Once
	jobs      chan J
	results   chan R
	done      chan struct{}
	errors    []JobError
}

// NewPool creates new instance of worker pool and starts workers
func NewPool[J, R any](ctx context.Context, config *Config[J, R]) (Pool[J, R], error) {
	p := &singleStagePool[J, R]{
		Config:  config,
		running: config.Size,
		retries: config.MaxRetry,
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	p.startPool(ctx, make(chan J, p.JobQueueLimit), make(chan R, p.ResultQueueLimit))
	return p, nil
}

func (p *singleStagePool[J, R]) validate() error {
	if p.Size <= 0 {
		return errors.New("expected pool size to be more than 0")
	}
	if p.JobQueueLimit <= 0 {
		return errors.New("expected JobQueueLimit to be more than 0")
	}
	if p.ResultQueueLimit <= 0 {
		return errors.New("expected ResultQueueLimit to be more than 0")
	}
	if p.Worker == nil {
		return fmt.Errorf("expected worker func to be not nil")
	}
	return nil
}

func (p *singleStagePool[J, R]) startPool(ctx context.Context, jobs chan J, results chan R) {
	p.jobs = jobs
	p.results = results
	p.done = make(chan struct{})
	for index := 0; index < p.Size; index++ {
		go p.startWorker(ctx)
	}
}

func (p *singleStagePool[J, R]) startWorker(ctx context.Context) {
	defer p.removeWorker()

	for job := range p.jobs {
		for {
			result, err := p.runJob(ctx, job)
			if err == nil {
				p.results <- result
				break
			}
			if p.takeRetry() {
				continue
			}
			p.addError(JobError{
				Job: job,
				Err: err,
			})
			break
		}
	}
}

func (p *singleStagePool[J, R]) runJob(ctx context.Context, job J) (result R, err error) {
	if p.HandlePanic {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("Recovered panic in pool worker")
				err = errors.Wrapf(ErrJobPanicked, "%v", r)
			}
		}()
	}
	return p.Worker(ctx, job)
}

func (p *singleStagePool[J, R]) takeRetry() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.retries > 0 {
		p.retries--
		return true
	}
	return false
}

func (p *singleStagePool[J, R]) addError(jobError JobError) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.errors = append(p.errors, jobError)
}

func (p *singleStagePool[J, R]) removeWorker() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.running--
	if p.running == 0 {
		close(p.results)
		close(p.done)
	}
}

func (p *singleStagePool[J, R]) SendJobs(jobs ...J) {
	for _, job := range jobs {
		p.jobs <- job
	}
}

func (p *singleStagePool[J, R]) Results() <-chan R {
	return p.results
}

func (p *singleStagePool[J, R]) Close() <-chan R {
	p.closeOnce.Do(func() { close(p.jobs) })
	return p.results
}

func (p *singleStagePool[J, R]) Errors() []JobError {
	<-p.done
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return append([]JobError(nil), p.errors...)
}
