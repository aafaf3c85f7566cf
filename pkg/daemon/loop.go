package daemon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/kit/log"

	ditcmetrics "github.com/kooba/ditc-deployer/pkg/metrics"
)

// Loop runs queued jobs until told to stop. Stopping cancels the
// context of the job in progress, if there is one.
func (d *Daemon) Loop(stop chan struct{}, wg *sync.WaitGroup, logger log.Logger) {
	defer wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case <-stop:
			logger.Log("stopping", "true")
			return
		case job := <-d.Jobs.Ready():
			queueLength.Set(float64(d.Jobs.Len()))
			jobLogger := log.With(logger, "jobID", job.ID, "event", job.Event.Type)
			jobLogger.Log("state", "in-progress")
			start := time.Now()
			err := job.Do(ctx, jobLogger)
			jobDuration.With(
				ditcmetrics.LabelEventType, string(job.Event.Type),
				ditcmetrics.LabelSuccess, fmt.Sprint(err == nil),
			).Observe(time.Since(start).Seconds())
			// The handler has reported any error already.
			jobLogger.Log("state", "done", "success", fmt.Sprint(err == nil))
		}
	}
}
