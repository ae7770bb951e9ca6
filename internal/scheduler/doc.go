// Package scheduler is the host job runner: a thin service over
// robfig/cron that registers named recurring jobs and executes them on a
// small worker pool.
//
// Jobs are upserted by name, so re-registering after a schedule edit or a
// config reload replaces the previous definition instead of stacking a
// duplicate. The schedule store owns which jobs exist; this service only
// fires them.
package scheduler
