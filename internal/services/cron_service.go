package services

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// CronService manages scheduled background jobs
type CronService struct {
	cron      *cron.Cron
	reaperSvc *ReaperService
	schedule  string
}

// NewCronService creates a new CronService
func NewCronService(reaperSvc *ReaperService, schedule string) *CronService {
	// Cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronService{
		cron:      c,
		reaperSvc: reaperSvc,
		schedule:  schedule,
	}
}

// Start starts all cron jobs
func (s *CronService) Start() error {
	log.Println("Starting cron service...")

	// Cron format: second minute hour day month weekday
	_, err := s.cron.AddFunc(s.schedule, s.reaperJob)
	if err != nil {
		return fmt.Errorf("failed to schedule reaper job: %w", err)
	}
	log.Printf("✓ Scheduled: Abandoned booking reaper (%s)\n", s.schedule)

	s.cron.Start()
	log.Println("✓ Cron service started successfully")

	return nil
}

// Stop stops all cron jobs
func (s *CronService) Stop() {
	log.Println("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("✓ Cron service stopped")
}

// reaperJob sweeps abandoned bookings and orphaned payments
func (s *CronService) reaperJob() {
	startTime := time.Now()

	result, err := s.reaperSvc.Run()
	if err != nil {
		log.Printf("[CRON ERROR] Reaper sweep failed: %v\n", err)
		return
	}

	if result.BookingsCancelled > 0 || result.PaymentsExpired > 0 {
		duration := time.Since(startTime)
		log.Printf("[CRON] ✓ Reaped %d bookings, expired %d payments in %v\n",
			result.BookingsCancelled, result.PaymentsExpired, duration)
	}
}

// RunReaperNow runs the reaper sweep immediately
func (s *CronService) RunReaperNow() (*ReaperResult, error) {
	log.Println("[MANUAL] Running reaper sweep now...")
	return s.reaperSvc.Run()
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
