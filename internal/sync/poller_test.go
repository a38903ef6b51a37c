package sync

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/nhle/bugtracker/internal/api"
	"github.com/nhle/bugtracker/internal/model"
)

type fakeFetcher struct {
	issues []model.Issue
	err    error
	calls  chan struct{}
	block  chan struct{}
}

func (f *fakeFetcher) FetchIssues(ctx context.Context) ([]model.Issue, error) {
	if f.calls != nil {
		f.calls <- struct{}{}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.issues, f.err
}

type fakeSnapshot struct {
	saved []model.Issue
	err   error
}

func (f *fakeSnapshot) ReplaceIssues(ctx context.Context, issues []model.Issue) error {
	f.saved = issues
	return f.err
}

func TestFetchWritesSnapshot(t *testing.T) {
	issues := []model.Issue{{ID: "I1", Status: model.StatusTodo, ProjectID: "P1"}}
	snap := &fakeSnapshot{}
	logger, _ := test.NewNullLogger()
	p := New(&fakeFetcher{issues: issues}, snap, time.Minute, logger)

	got, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 1 || len(snap.saved) != 1 {
		t.Errorf("expected issue returned and cached, got %v / %v", got, snap.saved)
	}
	st := p.Status()
	if st.State != SyncIdle || st.LastSync.IsZero() {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestFetchSnapshotFailureIsLoggedOnly(t *testing.T) {
	snap := &fakeSnapshot{err: errors.New("disk full")}
	logger, hook := test.NewNullLogger()
	p := New(&fakeFetcher{issues: []model.Issue{}}, snap, time.Minute, logger)

	if _, err := p.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if hook.LastEntry() == nil {
		t.Error("expected snapshot failure to be logged")
	}
}

func TestFetchErrorSetsStatus(t *testing.T) {
	logger, _ := test.NewNullLogger()
	p := New(&fakeFetcher{err: errors.New("connection refused")}, nil, time.Minute, logger)

	if _, err := p.Fetch(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	st := p.Status()
	if st.State != SyncError || st.Error == nil {
		t.Errorf("unexpected status %+v", st)
	}
	if st.State.String() != "offline" {
		t.Errorf("expected offline, got %s", st.State)
	}
}

func TestStartSendsInitialResult(t *testing.T) {
	issues := []model.Issue{{ID: "I1", Status: model.StatusDone, ProjectID: "P1"}}
	logger, _ := test.NewNullLogger()
	p := New(&fakeFetcher{issues: issues}, nil, time.Hour, logger)
	defer p.Stop()

	cmd := p.Start()
	if cmd == nil {
		t.Fatal("expected a subscription command")
	}
	msg, ok := cmd().(IssuesFetchedMsg)
	if !ok {
		t.Fatalf("expected IssuesFetchedMsg")
	}
	if msg.Error != nil || len(msg.Issues) != 1 {
		t.Errorf("unexpected result %+v", msg)
	}

	if p.Start() != nil {
		t.Error("second Start should be a no-op")
	}
}

func TestRefreshTriggersFetch(t *testing.T) {
	fetcher := &fakeFetcher{issues: []model.Issue{}, calls: make(chan struct{}, 4)}
	logger, _ := test.NewNullLogger()
	p := New(fetcher, nil, time.Hour, logger)
	defer p.Stop()

	cmd := p.Start()
	<-fetcher.calls
	cmd()

	p.Refresh()
	select {
	case <-fetcher.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not trigger a fetch")
	}
	if _, ok := p.WaitForNextResult()().(IssuesFetchedMsg); !ok {
		t.Error("expected a second result")
	}
}

func TestAuthErrorIsFlagged(t *testing.T) {
	authErr := &api.AuthError{APIError: &api.APIError{StatusCode: http.StatusUnauthorized}}
	logger, _ := test.NewNullLogger()
	p := New(&fakeFetcher{err: authErr}, nil, time.Hour, logger)
	defer p.Stop()

	msg := p.Start()().(IssuesFetchedMsg)
	if !msg.AuthError || msg.Error == nil {
		t.Errorf("expected auth error result, got %+v", msg)
	}
}

func TestStopReleasesWaiter(t *testing.T) {
	fetcher := &fakeFetcher{issues: []model.Issue{}, block: make(chan struct{})}
	t.Cleanup(func() { close(fetcher.block) })
	logger, _ := test.NewNullLogger()
	p := New(fetcher, nil, time.Hour, logger)

	cmd := p.Start()
	done := make(chan interface{}, 1)
	go func() { done <- cmd() }()

	p.Stop()
	select {
	case msg := <-done:
		if msg != nil {
			t.Errorf("expected nil after Stop, got %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter still blocked after Stop")
	}
	if p.WaitForNextResult() != nil {
		t.Error("expected no wait command while stopped")
	}
}

func TestRestartDeliversOnlyNewRun(t *testing.T) {
	logger, _ := test.NewNullLogger()
	p := New(&fakeFetcher{issues: []model.Issue{}}, nil, time.Hour, logger)

	// A result of the first run is left unread in the channel.
	p.sendResult(99, IssuesFetchedMsg{Error: errors.New("stale")})

	msg, ok := p.Start()().(IssuesFetchedMsg)
	if !ok || msg.Error != nil {
		t.Fatalf("expected fresh result, got %+v", msg)
	}
	p.Stop()

	msg, ok = p.Start()().(IssuesFetchedMsg)
	defer p.Stop()
	if !ok || msg.Error != nil {
		t.Errorf("expected result after restart, got %+v", msg)
	}
}
