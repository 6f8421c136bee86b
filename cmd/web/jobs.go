package main

import (
	"time"

	"github.com/go-co-op/gocron"
	log "github.com/sirupsen/logrus"
)

const (
	sweepInterval = 5 * time.Minute
	// limiterIdle is how long an unused rate limit bucket is kept.
	limiterIdle = 10 * time.Minute
)

// sweeper removes expired in-memory state and reports how many entries went.
type sweeper struct {
	name string
	fn   func() int
}

func (s sweeper) run() {
	if n := s.fn(); n > 0 {
		log.WithField("job", s.name).Debugf("swept %d expired entries", n)
	}
}

// startJobs schedules every sweeper and starts the scheduler. Redis expires
// its own keys, so with a Redis backend the scheduler runs empty.
func startJobs(sweepers ...sweeper) *gocron.Scheduler {
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SetMaxConcurrentJobs(1, gocron.RescheduleMode)
	for _, s := range sweepers {
		if _, err := scheduler.Every(sweepInterval).Tag(s.name).Do(s.run); err != nil {
			log.Errorf("failed to schedule %s: %v", s.name, err)
		}
	}
	scheduler.StartAsync()
	return scheduler
}
