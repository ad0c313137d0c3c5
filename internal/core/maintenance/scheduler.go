package maintenance

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	// Webhook dedup records are kept for this long; replays inside the
	// window are acked silently.
	EventRetention = 7 * 24 * time.Hour

	// Pending authorizations older than this are flipped back to
	// disconnected; a fresh start simply overwrites.
	PendingAuthorizationTTL = 10 * time.Minute
)

// EventPurger drops dedup records older than the retention window
type EventPurger interface {
	PurgeEventsBefore(cutoff time.Time) (int64, error)
}

// PendingExpirer resets stale in-flight authorization states
type PendingExpirer interface {
	ExpireStalePending(cutoff time.Time) (int64, error)
}

// Scheduler runs the periodic housekeeping jobs
type Scheduler struct {
	cron    *cron.Cron
	events  EventPurger
	pending PendingExpirer
}

func NewScheduler(events EventPurger, pending PendingExpirer) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		events:  events,
		pending: pending,
	}
}

// Start registers the jobs and starts the cron loop
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("@hourly", s.purgeEvents); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@every 5m", s.expirePending); err != nil {
		return err
	}

	log.Println("⏰ Starting maintenance scheduler...")
	s.cron.Start()
	return nil
}

// Stop stops the cron loop
func (s *Scheduler) Stop() {
	log.Println("⏰ Stopping maintenance scheduler...")
	s.cron.Stop()
}

func (s *Scheduler) purgeEvents() {
	n, err := s.events.PurgeEventsBefore(time.Now().Add(-EventRetention))
	if err != nil {
		log.Printf("⚠️ Failed to purge webhook events: %v", err)
		return
	}
	if n > 0 {
		log.Printf("🧹 Purged %d expired webhook events", n)
	}
}

func (s *Scheduler) expirePending() {
	n, err := s.pending.ExpireStalePending(time.Now().Add(-PendingAuthorizationTTL))
	if err != nil {
		log.Printf("⚠️ Failed to expire stale authorizations: %v", err)
		return
	}
	if n > 0 {
		log.Printf("🧹 Reset %d stale pending authorizations", n)
	}
}
