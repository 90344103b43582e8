// Package poller keeps session state fresh by periodically fetching the
// active-session list and each session's detail from the daemon. It owns
// its background task: Start launches it, cancelling the context stops
// it, and no caller ever re-arms a timer by hand.
package poller

import (
	"context"
	"net/http"
	"sync"
	"time"

	"triage/internal/client"
	"triage/internal/logging"
	"triage/internal/session"
	"triage/internal/store"
	"triage/internal/types"
)

const DefaultInterval = 10 * time.Second

// Fetcher is the daemon surface the poller consumes. *client.Client
// satisfies it.
type Fetcher interface {
	ListActiveSessions(ctx context.Context) ([]types.ActiveSession, error)
	GetSession(ctx context.Context, sessionID string) (*types.SessionDetail, error)
}

// Update is one polled observation of a session, pushed to the sink and
// kept in the snapshot cache.
type Update struct {
	SessionID string
	Detail    *types.SessionDetail
	Output    *session.Output
	FetchedAt time.Time
}

type Poller struct {
	fetcher  Fetcher
	updates  store.IssueUpdateStore
	interval time.Duration
	logger   logging.Logger
	sink     func(Update)

	mu      sync.RWMutex
	cache   map[string]Update
	tracked map[string]int64 // session id -> issue id
	polling bool
}

type Options struct {
	Interval time.Duration
	// Sink receives every polled update, in arrival order per session.
	Sink func(Update)
}

func New(fetcher Fetcher, updates store.IssueUpdateStore, logger logging.Logger, opts Options) *Poller {
	if logger == nil {
		logger = logging.Nop()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		fetcher:  fetcher,
		updates:  updates,
		interval: interval,
		logger:   logger,
		sink:     opts.Sink,
		cache:    map[string]Update{},
		tracked:  map[string]int64{},
	}
}

// Start runs the poll loop until ctx is cancelled. The first sweep
// happens immediately, not one interval in.
func (p *Poller) Start(ctx context.Context) {
	p.setPolling(true)
	go func() {
		defer p.setPolling(false)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.sweep(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.sweep(ctx)
			}
		}
	}()
}

func (p *Poller) IsPolling() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.polling
}

func (p *Poller) setPolling(v bool) {
	p.mu.Lock()
	p.polling = v
	p.mu.Unlock()
}

// Snapshot returns the last observed update for a session, if any.
func (p *Poller) Snapshot(sessionID string) (Update, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	update, ok := p.cache[sessionID]
	return update, ok
}

// sweep merges the active list into the tracked set, then polls every
// tracked session concurrently. The tracked set is the unit of work:
// the list only ever adds to it, and sessions leave it when a poll sees
// a terminal status or the daemon reports them gone. A session that
// drops off the list mid-flight keeps being polled until one of those
// two signals arrives, so a terminal transition is never missed.
// A failed list fetch skips the sweep; the next tick retries.
func (p *Poller) sweep(ctx context.Context) {
	active, err := p.fetcher.ListActiveSessions(ctx)
	if err != nil {
		p.logger.Warn("poll_list_failed", logging.F("error", err.Error()))
		return
	}

	p.mu.Lock()
	for _, sess := range active {
		if !validSessionID(sess.SessionID) {
			continue
		}
		p.tracked[sess.SessionID] = sess.IssueID
	}
	batch := make(map[string]int64, len(p.tracked))
	for id, issueID := range p.tracked {
		batch[id] = issueID
	}
	p.mu.Unlock()

	var wg sync.WaitGroup
	for id, issueID := range batch {
		wg.Add(1)
		go func(sessionID string, issueID int64) {
			defer wg.Done()
			p.pollSession(ctx, sessionID, issueID)
		}(id, issueID)
	}
	wg.Wait()
}

func (p *Poller) pollSession(ctx context.Context, sessionID string, issueID int64) {
	detail, err := p.fetcher.GetSession(ctx, sessionID)
	if err != nil {
		if apiErr := client.AsAPIError(err); apiErr != nil && apiErr.StatusCode == http.StatusNotFound {
			p.evict(sessionID)
			return
		}
		p.logger.Warn("poll_session_failed",
			logging.F("session_id", sessionID),
			logging.F("error", err.Error()),
		)
		return
	}

	update := Update{
		SessionID: sessionID,
		Detail:    detail,
		Output:    session.Normalize(detail.StructuredOutput),
		FetchedAt: time.Now(),
	}

	p.mu.Lock()
	p.cache[sessionID] = update
	if detail.Status.Terminal() {
		delete(p.tracked, sessionID)
	}
	p.mu.Unlock()

	p.recordIssueUpdate(ctx, issueID, detail, update.Output)

	if p.sink != nil {
		p.sink(update)
	}
}

// recordIssueUpdate persists the PR-submitted badge the first time a
// session finishes with a pull request.
func (p *Poller) recordIssueUpdate(ctx context.Context, issueID int64, detail *types.SessionDetail, out *session.Output) {
	if p.updates == nil || issueID == 0 {
		return
	}
	if detail.Status != types.SessionStatusFinished {
		return
	}
	prURL := ""
	if detail.PullRequest != nil {
		prURL = detail.PullRequest.URL
	}
	if prURL == "" && out != nil {
		prURL = out.PRURL
	}
	if prURL == "" {
		return
	}
	if existing, ok, err := p.updates.Get(ctx, issueID); err == nil && ok &&
		existing.Status == types.IssueUpdatePRSubmitted && existing.PRURL == prURL {
		return
	}
	err := p.updates.Set(ctx, issueID, types.IssueUpdate{
		Status: types.IssueUpdatePRSubmitted,
		PRURL:  prURL,
	})
	if err != nil {
		p.logger.Warn("issue_update_write_failed",
			logging.F("issue_id", issueID),
			logging.F("error", err.Error()),
		)
		return
	}
	p.logger.Info("issue_pr_submitted",
		logging.F("issue_id", issueID),
		logging.F("pr_url", prURL),
	)
}

func (p *Poller) evict(sessionID string) {
	p.mu.Lock()
	delete(p.cache, sessionID)
	delete(p.tracked, sessionID)
	p.mu.Unlock()
	p.logger.Info("poll_session_evicted", logging.F("session_id", sessionID))
}

// validSessionID rejects the empty and stringified-null ids that have
// been observed leaking out of serialized state.
func validSessionID(id string) bool {
	switch id {
	case "", "null", "undefined":
		return false
	}
	return true
}
