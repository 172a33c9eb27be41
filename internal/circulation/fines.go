package circulation

import (
	"time"
)

// DaysOverdue returns how many whole days past the due date now is.
// Zero when the due date has not passed.
func DaysOverdue(now, due time.Time) int {
	if !due.Before(now) {
		return 0
	}
	return int(now.Sub(due) / (24 * time.Hour))
}

// FineAmount is the single source of fine math: days overdue times the
// daily rate. Both the sweeper and the return/read paths go through here.
func FineAmount(now, due time.Time, dailyRate float64) float64 {
	return float64(DaysOverdue(now, due)) * dailyRate
}
