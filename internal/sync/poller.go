package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/bugtracker/internal/api"
	"github.com/nhle/bugtracker/internal/model"
)

// SyncState represents the current state of the issue sync.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

func (s SyncState) String() string {
	switch s {
	case SyncRunning:
		return "syncing"
	case SyncError:
		return "offline"
	default:
		return "idle"
	}
}

// SyncStatus holds the poller's bookkeeping.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Error    error
}

// IssuesFetchedMsg is a tea.Msg sent when a fetch completes. On success
// Issues holds the full collection; on failure Error is set and Issues is nil.
type IssuesFetchedMsg struct {
	Issues    []model.Issue
	Error     error
	AuthError bool
}

// IssueFetcher loads the complete issue list. *api.Client satisfies it.
type IssueFetcher interface {
	FetchIssues(ctx context.Context) ([]model.Issue, error)
}

// Snapshotter persists the last fetched issue list.
type Snapshotter interface {
	ReplaceIssues(ctx context.Context, issues []model.Issue) error
}

// fetchTimeout is the maximum time allowed for a single fetch operation.
const fetchTimeout = 30 * time.Second

// defaultInterval applies when no positive interval is configured.
const defaultInterval = 60 * time.Second

// Poller refetches the issue list in the background and hands each result
// to the Bubble Tea runtime. It never touches board state itself.
type Poller struct {
	fetcher   IssueFetcher
	snapshot  Snapshotter
	interval  time.Duration
	logger    log.FieldLogger
	status    SyncStatus
	resultCh  chan result
	triggerCh chan struct{}
	stopCh    chan struct{}
	run       uint64
	mu        gosync.Mutex
	running   bool
}

// result tags a fetch with the run that produced it so a restarted poller
// never delivers a fetch made before Stop.
type result struct {
	run uint64
	msg IssuesFetchedMsg
}

// New creates a Poller. snapshot may be nil to skip caching.
func New(
	fetcher IssueFetcher,
	snapshot Snapshotter,
	interval time.Duration,
	logger log.FieldLogger,
) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Poller{
		fetcher:   fetcher,
		snapshot:  snapshot,
		interval:  interval,
		logger:    logger,
		resultCh:  make(chan result, 16),
		triggerCh: make(chan struct{}, 1),
	}
}

// Start returns a tea.Cmd that starts the polling goroutine and
// subscribes to results. The first fetch happens immediately.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.run++
	p.stopCh = make(chan struct{})
	stop, run := p.stopCh, p.run
	p.mu.Unlock()

	go p.loop(stop, run)

	return p.waitForResult(stop, run)
}

// Stop halts the polling goroutine.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	close(p.stopCh)
	p.running = false
}

// Refresh triggers an immediate fetch. A refresh that is already pending
// absorbs the request.
func (p *Poller) Refresh() tea.Cmd {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
	return nil
}

// Status returns the current sync status.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Fetch runs one fetch synchronously, updates the snapshot, and returns the
// issues. The background loop uses it; so do one-shot commands.
func (p *Poller) Fetch(ctx context.Context) ([]model.Issue, error) {
	p.setStatus(SyncRunning, nil)

	issues, err := p.fetcher.FetchIssues(ctx)
	if err != nil {
		p.setStatus(SyncError, err)
		return nil, err
	}

	if p.snapshot != nil {
		if err := p.snapshot.ReplaceIssues(ctx, issues); err != nil {
			// A cache write failure does not fail the fetch.
			p.logger.WithError(err).Warn("failed to write issue snapshot")
		}
	}

	p.setStatus(SyncIdle, nil)
	return issues, nil
}

func (p *Poller) loop(stop <-chan struct{}, run uint64) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.fetchAndSend(run)

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.fetchAndSend(run)
		case <-p.triggerCh:
			p.fetchAndSend(run)
		}
	}
}

func (p *Poller) fetchAndSend(run uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	issues, err := p.Fetch(ctx)
	if err != nil {
		p.logger.WithError(err).Error("failed to fetch issues")
		p.sendResult(run, IssuesFetchedMsg{
			Error:     fmt.Errorf("refreshing issues: %w", err),
			AuthError: api.IsAuthError(err),
		})
		return
	}

	p.logger.WithField("count", len(issues)).Debug("fetched issues")
	p.sendResult(run, IssuesFetchedMsg{Issues: issues})
}

// setStatus updates the sync bookkeeping.
func (p *Poller) setStatus(state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == SyncIdle && err == nil {
		p.status.LastSync = time.Now()
	}
}

// sendResult sends a result without blocking.
func (p *Poller) sendResult(run uint64, msg IssuesFetchedMsg) {
	select {
	case p.resultCh <- result{run: run, msg: msg}:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

// waitForResult waits for the next result of run. It yields nil once stop
// is closed, so a stopped poller leaves no receiver behind.
func (p *Poller) waitForResult(stop <-chan struct{}, run uint64) tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case <-stop:
				return nil
			case r := <-p.resultCh:
				if r.run != run {
					continue
				}
				select {
				case <-stop:
					return nil
				default:
				}
				return r.msg
			}
		}
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next fetch result.
// Call it after handling an IssuesFetchedMsg to keep listening. It returns
// nil when the poller is stopped.
func (p *Poller) WaitForNextResult() tea.Cmd {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return nil
	}
	return p.waitForResult(p.stopCh, p.run)
}
