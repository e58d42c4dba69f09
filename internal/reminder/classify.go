package reminder

import (
	"time"

	"taskboss/internal/model"
)

// Label is the temporal status of a task relative to today.
type Label string

const (
	LabelOverdue  Label = "overdue"
	LabelToday    Label = "today"
	LabelUpcoming Label = "upcoming"
)

// Classification is the result of Classify.
type Classification struct {
	Label Label
	// Days is the non-negative distance in calendar days between today and the deadline.
	Days int
}

// Classify compares the deadline with now by calendar day in now's location.
//
// Completed, canceled, hold and to-review tasks are never overdue: a past
// deadline on one of them is reported as today.
func Classify(deadline time.Time, status model.Status, now time.Time) Classification {
	days := DaysUntil(now, deadline)
	switch {
	case days < 0:
		if status.Closed() || status.Parked() {
			return Classification{Label: LabelToday}
		}
		return Classification{Label: LabelOverdue, Days: -days}
	case days == 0:
		return Classification{Label: LabelToday}
	default:
		return Classification{Label: LabelUpcoming, Days: days}
	}
}

// DaysUntil returns the number of calendar days from now to t, using now's
// location for the day boundary. The time-of-day of both values is ignored.
func DaysUntil(now, t time.Time) int {
	loc := now.Location()
	y1, m1, d1 := now.Date()
	y2, m2, d2 := t.In(loc).Date()
	// Differencing in UTC keeps DST transitions out of the day count.
	from := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	to := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// DisplayStatus is the status shown for a task: overdue when the deadline has
// passed and the task is still actionable, otherwise the stored status.
func DisplayStatus(task model.Task, now time.Time) model.Status {
	if task.Status.Closed() || task.Status.Parked() {
		return task.Status
	}
	if Classify(task.Deadline, task.Status, now).Label == LabelOverdue {
		return model.StatusOverdue
	}
	return task.Status
}
