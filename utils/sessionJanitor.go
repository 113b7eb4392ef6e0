package utils

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"lms/engine"
)

// logJanitor logs janitor events with timestamp
func logJanitor(message string) {
	log.Printf("[SESSION-JANITOR %s] %s", time.Now().Format(time.RFC3339), message)
}

// InitializeSessionJanitor starts the periodic sweep that discards quiz
// sessions idle for longer than ttl. Abandoned attempts are dropped
// without persisting anything; their countdowns are stopped so no timer
// fires into a discarded session.
func InitializeSessionJanitor(mgr *engine.Manager, ttl time.Duration) *cron.Cron {
	logJanitor("Initializing quiz session janitor...")

	c := cron.New()

	c.AddFunc("@every 1m", func() {
		reaped := mgr.ReapIdle(ttl)
		if reaped > 0 {
			log.Printf("[SESSION-JANITOR] discarded %d idle sessions (%d still active)", reaped, mgr.ActiveSessions())
		}
	})

	c.Start()

	logJanitor("Session janitor started - sweeps every minute")
	return c
}
