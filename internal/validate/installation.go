package validate

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mrmoe28/solarscheduler-sub001/internal/models"
)

const maxInstallationDuration = 30 * 24 * time.Hour

// Installation checks a scheduled crew visit. now anchors the scheduling
// window [today, today+1 year].
func Installation(i models.Installation, now time.Time) Result {
	var r Result

	if i.JobID == uuid.Nil {
		r.add("job_id", CodeRequired, "installation must reference a job")
	}

	today := startOfDay(now)
	switch {
	case i.ScheduledDate.IsZero():
		r.add("scheduled_date", CodeRequired, "scheduled date is required")
	case i.ScheduledDate.Before(today):
		r.add("scheduled_date", CodeBusinessRule, "scheduled date cannot be in the past")
	case i.ScheduledDate.After(today.AddDate(1, 0, 0)):
		r.add("scheduled_date", CodeOutOfRange, "scheduled date must be within one year")
	}

	if d := time.Duration(i.EstimatedDurationSec) * time.Second; d <= 0 || d > maxInstallationDuration {
		r.add("estimated_duration_sec", CodeOutOfRange, "estimated duration must be greater than 0 and at most 30 days")
	}

	if n := i.CrewSize(); n < 1 || n > 20 {
		r.add("crew_members", CodeOutOfRange, "crew must have between 1 and 20 members")
	}

	if !i.Status.Valid() {
		r.add("status", CodeInvalidFormat, fmt.Sprintf("unknown installation status %q", i.Status))
	}

	return r
}
