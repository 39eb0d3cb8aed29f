package bookings

import (
	"context"
	"sync"
	"time"

	"ticketbooth/pkg/logger"
)

// JobProcessor runs the expiry sweep and hold reconciliation in the background
type JobProcessor struct {
	service Service
	config  *JobConfig
	log     *logger.Logger

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type JobConfig struct {
	ExpirySweepInterval time.Duration
}

func DefaultJobConfig() *JobConfig {
	return &JobConfig{
		ExpirySweepInterval: 30 * time.Second,
	}
}

func NewJobProcessor(service Service, config *JobConfig, log *logger.Logger) *JobProcessor {
	if config == nil || config.ExpirySweepInterval <= 0 {
		config = DefaultJobConfig()
	}

	return &JobProcessor{
		service: service,
		config:  config,
		log:     logger.OrDefault(log).WithComponent("booking-jobs"),
		done:    make(chan struct{}),
	}
}

// Start launches the sweep loop; it runs until Stop is called or ctx is done
func (jp *JobProcessor) Start(ctx context.Context) {
	jp.wg.Add(1)
	go func() {
		defer jp.wg.Done()
		jp.runExpirySweeper(ctx)
	}()
	jp.log.Info("Booking background jobs started", "interval", jp.config.ExpirySweepInterval.String())
}

// Stop ends the sweep loop and waits for an in-flight sweep to finish
func (jp *JobProcessor) Stop() {
	jp.stopOnce.Do(func() { close(jp.done) })
	jp.wg.Wait()
	jp.log.Info("Booking background jobs stopped")
}

func (jp *JobProcessor) runExpirySweeper(ctx context.Context) {
	ticker := time.NewTicker(jp.config.ExpirySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			jp.sweep(ctx)
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (jp *JobProcessor) sweep(ctx context.Context) {
	if _, err := jp.service.ExpireStale(ctx); err != nil {
		jp.log.ErrorWithContext(ctx, "expiry sweep failed", err, nil)
	}
	if _, err := jp.service.ReconcileHolds(ctx); err != nil {
		jp.log.ErrorWithContext(ctx, "hold reconciliation failed", err, nil)
	}
}
