// Package scheduler fires scheduled journey runs. It ticks over the
// registered journeys, collects the ones whose monitor schedule is
// due, and invokes a run callback with their names. A token-bucket
// limiter caps how often runs fire regardless of how many monitors
// come due at once.
package scheduler
