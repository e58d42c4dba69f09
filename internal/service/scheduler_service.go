package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"taskboss/internal/reminder"
)

// DailyJob runs fn every day at Time (HH:MM).
type DailyJob struct {
	Time string
	Run  func()
}

// SchedulerService wraps cron-based jobs.
type SchedulerService struct {
	cron   *cron.Cron
	mu     sync.Mutex
	groups map[string][]cron.EntryID
}

func NewSchedulerService(loc *time.Location) *SchedulerService {
	return &SchedulerService{
		cron:   cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		groups: make(map[string][]cron.EntryID),
	}
}

// ScheduleDaily registers a daily job at the given HH:MM time string.
func (s *SchedulerService) ScheduleDaily(timeStr string, job func()) (cron.EntryID, error) {
	spec, err := buildDailySpec(timeStr)
	if err != nil {
		return 0, err
	}
	return s.cron.AddFunc(spec, job)
}

// ReplaceGroup swaps every job registered under key for jobs. Either all new
// jobs are registered or, on error, the key ends up with none.
func (s *SchedulerService) ReplaceGroup(key string, jobs []DailyJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.groups[key] {
		s.cron.Remove(id)
	}
	delete(s.groups, key)

	ids := make([]cron.EntryID, 0, len(jobs))
	for _, job := range jobs {
		id, err := s.ScheduleDaily(job.Time, job.Run)
		if err != nil {
			for _, added := range ids {
				s.cron.Remove(added)
			}
			return err
		}
		ids = append(ids, id)
	}
	if len(ids) > 0 {
		s.groups[key] = ids
	}
	return nil
}

// GroupSize reports how many jobs are registered under key.
func (s *SchedulerService) GroupSize(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.groups[key])
}

// Next returns the next activation of the jobs under key, or zero time.
func (s *SchedulerService) Next(key string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	var next time.Time
	for _, id := range s.groups[key] {
		t := s.cron.Entry(id).Next
		if !t.IsZero() && (next.IsZero() || t.Before(next)) {
			next = t
		}
	}
	return next
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func buildDailySpec(timeStr string) (string, error) {
	hour, minute, err := reminder.ParseClock(timeStr)
	if err != nil {
		return "", err
	}
	// cron format: second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}
