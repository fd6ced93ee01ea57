// Package monitor defines the monitor configuration attached to a
// journey: an identity, a cron schedule, and routing metadata used by
// the scheduler and by push-based deployments.
package monitor

import (
	"fmt"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/paulb-elastic/synthetics"
	"github.com/paulb-elastic/synthetics/id"
)

// cronParser supports standard 5-field cron and descriptors like "@every 30s".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSchedule parses a cron expression and returns the schedule.
// Exported for use by the scheduler package.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	return cronParser.Parse(expr)
}

// Config is the optional monitor configuration for a journey.
type Config struct {
	// ID is the stable monitor identity. Generated when empty.
	ID id.MonitorID `json:"id"`

	// Name overrides the journey name in monitor listings.
	Name string `json:"name,omitempty"`

	// Schedule is a cron expression ("*/5 * * * *") or a descriptor
	// ("@every 3m") describing how often the journey should run.
	Schedule string `json:"schedule,omitempty"`

	// Tags are matched against the run's tag filter.
	Tags []string `json:"tags,omitempty"`

	// Enabled gates scheduling. Disabled monitors still run when
	// invoked directly.
	Enabled bool `json:"enabled"`
}

// New returns an enabled Config with a fresh monitor ID.
func New(name, schedule string) Config {
	return Config{
		ID:       id.NewMonitorID(),
		Name:     name,
		Schedule: schedule,
		Enabled:  true,
	}
}

// Validate checks the schedule expression. A Config with an empty
// schedule is valid; it simply never fires from the scheduler.
func (c Config) Validate() error {
	if c.Schedule == "" {
		return nil
	}
	if _, err := ParseSchedule(c.Schedule); err != nil {
		return fmt.Errorf("%w: monitor %q schedule %q: %v", synthetics.ErrInvalidSchedule, c.Name, c.Schedule, err)
	}
	return nil
}

// Next returns the next fire time after the given instant, or the
// zero time when the monitor has no schedule or is disabled.
func (c Config) Next(after time.Time) time.Time {
	if !c.Enabled || c.Schedule == "" {
		return time.Time{}
	}
	sched, err := ParseSchedule(c.Schedule)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(after)
}

// HasTag reports whether the monitor carries the given tag. A query
// ending in "*" matches tag prefixes, following the original tag
// matching rules.
func (c Config) HasTag(query string) bool {
	for _, tag := range c.Tags {
		if matchTag(tag, query) {
			return true
		}
	}
	return false
}

func matchTag(tag, query string) bool {
	if n := len(query); n > 0 && query[n-1] == '*' {
		prefix := query[:n-1]
		return len(tag) >= len(prefix) && tag[:len(prefix)] == prefix
	}
	return tag == query
}
