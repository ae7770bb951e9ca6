package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "iptvctl/pkg/logx"
)

// Config controls the job runner.
type Config struct {
	Enabled        bool
	Workers        int
	DefaultTimeout time.Duration
	Timezone       string // IANA TZ, e.g. "Europe/Berlin"; empty means local
}

type runState struct {
	mu      sync.Mutex
	running bool
}

type task struct {
	name    string
	timeout time.Duration
	run     func(ctx context.Context) error
	state   *runState
}

type jobDef struct {
	name    string
	spec    string
	timeout time.Duration
	job     func(ctx context.Context) error
	entryID cron.EntryID
	state   *runState
}

// Service wraps cron.Cron with named upsert and a worker pool.
type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config
	loc *time.Location

	parser cron.Parser
	c      *cron.Cron
	defs   []jobDef

	queue  chan task
	stopCh chan struct{}

	runCtx    context.Context
	runCancel context.CancelFunc
	workerWG  sync.WaitGroup
}

// JobInfo describes one registered job for the status surface.
type JobInfo struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Next    time.Time
	Prev    time.Time
}

// Snapshot is a point-in-time view of the runner.
type Snapshot struct {
	Enabled  bool
	Timezone string
	Workers  int
	QueueLen int
	Jobs     []JobInfo
}
