package app

import (
	"context"
	"errors"
	"strings"
	gosync "sync"
	"testing"
	"time"

	"github.com/99designs/keyring"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/nhle/bugtracker/internal/api"
	"github.com/nhle/bugtracker/internal/credential"
	"github.com/nhle/bugtracker/internal/model"
	"github.com/nhle/bugtracker/internal/store"
	appsync "github.com/nhle/bugtracker/internal/sync"
	"github.com/nhle/bugtracker/internal/testutil"
	"github.com/nhle/bugtracker/internal/ui/auth"
	"github.com/nhle/bugtracker/internal/ui/command"
	"github.com/nhle/bugtracker/internal/ui/issueform"
	"github.com/nhle/bugtracker/internal/ui/kanban"
)

type statusCall struct {
	id     string
	status model.Status
}

type fakeClient struct {
	mu        gosync.Mutex
	token     string
	calls     []statusCall
	statusErr error
	created   []model.CreateIssueInput
	createErr error
}

func (f *fakeClient) Login(ctx context.Context, email, password string) (*api.TokenResponse, error) {
	return &api.TokenResponse{AccessToken: "tok"}, nil
}

func (f *fakeClient) Register(ctx context.Context, email, password string) error {
	return nil
}

// FetchIssues never answers within a test, so the background poll cannot
// race the issues each test loads by hand.
func (f *fakeClient) FetchIssues(ctx context.Context) ([]model.Issue, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeClient) UpdateIssueStatus(ctx context.Context, id string, status model.Status) (*model.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, statusCall{id: id, status: status})
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return &model.Issue{ID: id, Status: status}, nil
}

func (f *fakeClient) CreateIssue(ctx context.Context, in model.CreateIssueInput) (*model.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, in)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &model.Issue{
		ID: "NEW", Title: in.Title, Status: in.Status,
		Priority: in.Priority, ProjectID: in.ProjectID,
	}, nil
}

func (f *fakeClient) UpdateIssue(ctx context.Context, id string, patch model.IssuePatch) (*model.Issue, error) {
	issue := &model.Issue{ID: id, Status: model.StatusTodo, ProjectID: "P1"}
	if patch.Title != nil {
		issue.Title = *patch.Title
	}
	return issue, nil
}

func (f *fakeClient) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

type harness struct {
	m      Model
	client *fakeClient
	creds  *credential.Store
	store  *store.SQLiteStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	s := testutil.NewTestStore(t)
	client := &fakeClient{}
	creds := credential.NewStore(keyring.NewArrayKeyring(nil))
	logger, _ := test.NewNullLogger()

	m := New(Deps{
		Client:      client,
		Store:       s,
		Credentials: creds,
		Config:      &model.AppConfig{Display: model.DisplayConfig{PollIntervalSec: 3600}},
		Logger:      logger,
	})
	t.Cleanup(m.poller.Stop)

	h := &harness{m: m, client: client, creds: creds, store: s}
	h.send(tea.WindowSizeMsg{Width: 140, Height: 40})
	return h
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	return cmd
}

func (h *harness) key(k string) tea.Cmd {
	switch k {
	case "space":
		return h.send(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	case "enter":
		return h.send(tea.KeyMsg{Type: tea.KeyEnter})
	case "esc":
		return h.send(tea.KeyMsg{Type: tea.KeyEsc})
	}
	return h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
}

// signedIn logs in, selects a project and loads a small board.
func (h *harness) signedIn(t *testing.T) {
	t.Helper()
	h.send(auth.LoggedInMsg{Email: "dev@example.com", Token: "opaque-token"})

	p, err := h.store.CreateProject(context.Background(), model.Project{Name: "Payments", Key: "pay"})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	h.send(h.m.loadProjects()())

	h.send(appsync.IssuesFetchedMsg{Issues: []model.Issue{
		{ID: "I1", Title: "Crash on save", Status: model.StatusBacklog, Priority: "high", ProjectID: p.ID},
		{ID: "I2", Title: "Slow search", Status: model.StatusTodo, Priority: "low", ProjectID: p.ID},
		{ID: "I3", Title: "Elsewhere", Status: model.StatusTodo, Priority: "low", ProjectID: "other"},
	}})
}

func statusOf(m Model, id string) model.Status {
	issue, _ := m.board.State().Get(id)
	return issue.Status
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return tok
}

func TestStartsAtLoginWithoutStoredToken(t *testing.T) {
	h := newHarness(t)

	if !strings.Contains(h.m.View(), "Restoring session") {
		t.Error("expected restoring placeholder before the session check")
	}

	h.send(h.m.restoreSession()())
	if h.m.currentView != ViewLogin {
		t.Fatalf("expected login view, got %v", h.m.currentView)
	}
	if !strings.Contains(h.m.View(), "Login") {
		t.Error("expected login screen")
	}
}

func TestRestoresStoredSession(t *testing.T) {
	h := newHarness(t)
	if err := h.creds.SaveSession("opaque-token", "dev@example.com"); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	h.send(h.m.restoreSession()())

	if h.m.currentView != ViewBoard {
		t.Fatalf("expected board view, got %v", h.m.currentView)
	}
	if h.client.token != "opaque-token" {
		t.Errorf("expected client token to be set, got %q", h.client.token)
	}
	if !strings.Contains(h.m.View(), "dev@example.com") {
		t.Error("expected signed-in user in header")
	}
}

func TestExpiredStoredTokenShowsLogin(t *testing.T) {
	h := newHarness(t)
	tok := signToken(t, jwt.MapClaims{"sub": "7", "exp": time.Now().Add(-time.Hour).Unix()})
	if err := h.creds.SaveSession(tok, "dev@example.com"); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	h.send(h.m.restoreSession()())

	if h.m.currentView != ViewLogin {
		t.Fatalf("expected login view, got %v", h.m.currentView)
	}
	if h.m.statusMsg != sessionExpiredMessage {
		t.Errorf("unexpected status %q", h.m.statusMsg)
	}
}

func TestLoginStoresSession(t *testing.T) {
	h := newHarness(t)
	h.send(auth.LoggedInMsg{Email: "dev@example.com", Token: "tok"})

	if h.m.currentView != ViewBoard || h.m.session == nil {
		t.Fatal("expected an active session on the board")
	}
	if h.m.session.User.Name != "dev" {
		t.Errorf("expected user name from email, got %q", h.m.session.User.Name)
	}

	h.m.saveSession(h.m.session)()
	tok, err := h.creds.Token()
	if err != nil || tok != "tok" {
		t.Errorf("expected stored token, got %q, %v", tok, err)
	}
}

func TestFetchedIssuesFillBoard(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)

	view := h.m.View()
	for _, want := range []string{"Crash on save", "Slow search", "Payments (PAY)"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected %q in view", want)
		}
	}
	if strings.Contains(view, "Elsewhere") {
		t.Error("issues of other projects must be hidden")
	}
}

func TestCachedSnapshotShownUntilFirstFetch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cached := []model.Issue{{ID: "C1", Title: "Cached bug", Status: model.StatusDone}}
	if err := h.store.ReplaceIssues(ctx, cached); err != nil {
		t.Fatalf("ReplaceIssues: %v", err)
	}

	h.send(h.m.loadSnapshot()())
	if statusOf(h.m, "C1") != model.StatusDone {
		t.Fatal("expected cached issue on the board")
	}

	h.send(auth.LoggedInMsg{Email: "dev@example.com", Token: "tok"})
	h.send(appsync.IssuesFetchedMsg{Issues: []model.Issue{{ID: "L1", Title: "Live bug", Status: model.StatusTodo}}})
	if _, ok := h.m.board.State().Get("C1"); ok {
		t.Error("expected the fetch to replace the cached issues")
	}

	// A late snapshot must not overwrite live data.
	h.send(snapshotLoadedMsg{issues: cached})
	if _, ok := h.m.board.State().Get("L1"); !ok {
		t.Error("expected live issues to survive a late snapshot")
	}
}

func TestEmptyFetchWinsOverLateSnapshot(t *testing.T) {
	h := newHarness(t)
	h.send(auth.LoggedInMsg{Email: "dev@example.com", Token: "tok"})
	h.send(appsync.IssuesFetchedMsg{Issues: []model.Issue{}})

	h.send(snapshotLoadedMsg{issues: []model.Issue{{ID: "C1", Title: "Cached bug", Status: model.StatusDone}}})
	if h.m.board.State().Len() != 0 {
		t.Errorf("expected the empty live list to stay, got %d issues", h.m.board.State().Len())
	}
}

func TestDragAndDropUpdatesBoardThenRemote(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)

	// Pick up I1 from Backlog, carry it to In Progress, drop.
	h.key("space")
	h.key("l")
	h.key("l")
	cmd := h.key("space")

	if got := statusOf(h.m, "I1"); got != model.StatusInProgress {
		t.Fatalf("expected optimistic inprogress, got %s", got)
	}
	if len(h.client.calls) != 0 {
		t.Fatal("remote call must not run before the command executes")
	}
	if cmd == nil {
		t.Fatal("expected sync command")
	}

	synced, ok := cmd().(kanban.IssueSyncedMsg)
	if !ok || synced.Err != nil {
		t.Fatalf("unexpected result %+v", synced)
	}
	want := statusCall{id: "I1", status: model.StatusInProgress}
	if len(h.client.calls) != 1 || h.client.calls[0] != want {
		t.Errorf("expected %+v, got %+v", want, h.client.calls)
	}

	if cache := h.send(synced); cache != nil {
		cache()
	}
	cached, err := h.store.GetIssues(context.Background(), "")
	if err != nil {
		t.Fatalf("GetIssues: %v", err)
	}
	found := false
	for _, c := range cached {
		if c.ID == "I1" && c.Status == model.StatusInProgress {
			found = true
		}
	}
	if !found {
		t.Error("expected moved issue in the local snapshot")
	}
}

func TestFailedStatusUpdateKeepsLocalStatus(t *testing.T) {
	h := newHarness(t)
	h.client.statusErr = errors.New("boom")
	h.signedIn(t)

	h.key("space")
	h.key("l")
	synced := h.key("space")().(kanban.IssueSyncedMsg)
	h.send(synced)

	if got := statusOf(h.m, "I1"); got != model.StatusTodo {
		t.Errorf("expected status to stay todo, got %s", got)
	}
	if h.m.currentView != ViewBoard {
		t.Error("a failed update must not leave the board")
	}
}

func TestUnauthorizedStatusUpdateEndsSession(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)

	h.send(kanban.IssueSyncedMsg{
		IssueID: "I1",
		Status:  model.StatusDone,
		Err:     &api.AuthError{APIError: &api.APIError{StatusCode: 401}},
	})

	if h.m.currentView != ViewLogin || h.m.session != nil {
		t.Fatal("expected to be logged out")
	}
	if h.m.board.State().Len() != 0 {
		t.Error("expected board to be cleared")
	}
}

func TestPollAuthErrorEndsSessionAndForgetsToken(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)
	h.m.saveSession(h.m.session)()

	h.send(appsync.IssuesFetchedMsg{Error: errors.New("401"), AuthError: true})
	if h.m.currentView != ViewLogin {
		t.Fatal("expected login view")
	}

	h.m.forgetSession()()
	if _, err := h.creds.Token(); !errors.Is(err, credential.ErrNotFound) {
		t.Errorf("expected token to be removed, got %v", err)
	}
}

func TestPollErrorKeepsBoard(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)

	h.send(appsync.IssuesFetchedMsg{Error: errors.New("connection refused")})

	if h.m.board.State().Len() != 3 {
		t.Error("expected issues to survive an offline poll")
	}
	if h.m.statusMsg != offlineMessage {
		t.Errorf("unexpected status %q", h.m.statusMsg)
	}
}

func TestCreateIssueAddsCard(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)

	h.key("n")
	if h.m.currentView != ViewIssueCreate {
		t.Fatalf("expected create view, got %v", h.m.currentView)
	}

	in := model.CreateIssueInput{
		Title: "New bug", Status: model.StatusTodo,
		Priority: model.PriorityHigh, ProjectID: h.m.project.ID,
	}
	cmd := h.send(issueform.CreateRequestMsg{Input: in})
	h.send(cmd())

	if h.m.currentView != ViewBoard {
		t.Error("expected to return to the board")
	}
	if _, ok := h.m.board.State().Get("NEW"); !ok {
		t.Error("expected created issue on the board")
	}
	if len(h.client.created) != 1 || h.client.created[0] != in {
		t.Errorf("unexpected create calls %+v", h.client.created)
	}
}

func TestCreateIssueFailureShowsMessage(t *testing.T) {
	h := newHarness(t)
	h.client.createErr = errors.New("boom")
	h.signedIn(t)

	cmd := h.send(issueform.CreateRequestMsg{Input: model.CreateIssueInput{Title: "x"}})
	h.send(cmd())

	if h.m.statusMsg != "Failed to create issue" {
		t.Errorf("unexpected status %q", h.m.statusMsg)
	}
	if h.m.board.State().Len() != 3 {
		t.Error("board must be unchanged")
	}
}

func TestNewIssueNeedsProject(t *testing.T) {
	h := newHarness(t)
	h.send(auth.LoggedInMsg{Email: "dev@example.com", Token: "tok"})

	h.key("n")
	if h.m.currentView != ViewBoard {
		t.Error("expected to stay on the board without a project")
	}
	if h.m.statusMsg != "Select a project first" {
		t.Errorf("unexpected status %q", h.m.statusMsg)
	}
}

func TestEditIssueReplacesCard(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)

	issue, _ := h.m.board.State().Get("I2")
	h.send(kanban.EditIssueMsg{Issue: issue})
	if h.m.currentView != ViewIssueEdit {
		t.Fatalf("expected edit view, got %v", h.m.currentView)
	}

	title := "Slow search results"
	cmd := h.send(issueform.UpdateRequestMsg{IssueID: "I2", Patch: model.IssuePatch{Title: &title}})
	h.send(cmd())

	got, _ := h.m.board.State().Get("I2")
	if got.Title != title {
		t.Errorf("expected updated title, got %q", got.Title)
	}
}

func TestEditOfIssueGoneAfterRefreshIsDropped(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)

	issue, _ := h.m.board.State().Get("I2")
	h.send(appsync.IssuesFetchedMsg{Issues: []model.Issue{{ID: "I1", Title: "Crash on save", Status: model.StatusBacklog}}})

	issue.Title = "Slow search results"
	if cmd := h.send(issueUpdatedMsg{issue: &issue}); cmd != nil {
		t.Error("expected no cache write for an issue the server no longer lists")
	}
	if _, ok := h.m.board.State().Get("I2"); ok {
		t.Error("expected the removed issue to stay off the board")
	}
}

func TestCommands(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)
	if _, err := h.store.CreateProject(context.Background(), model.Project{Name: "Search", Key: "src"}); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	h.send(h.m.loadProjects()())

	h.key(":")
	if h.m.currentView != ViewCommand {
		t.Fatal("expected command palette")
	}
	h.send(command.CommandMsg{Name: "project", Args: []string{"src"}})
	if h.m.currentView != ViewBoard || h.m.project.Key != "SRC" {
		t.Errorf("expected SRC selected, got %+v", h.m.project)
	}

	h.send(command.CommandMsg{Name: "project", Args: []string{"nope"}})
	if h.m.statusMsg != "Unknown project NOPE" {
		t.Errorf("unexpected status %q", h.m.statusMsg)
	}

	h.send(command.CommandMsg{Name: "frobnicate"})
	if h.m.statusMsg != "Unknown command: frobnicate" {
		t.Errorf("unexpected status %q", h.m.statusMsg)
	}
}

func TestMoveCommand(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)

	cmd := h.send(command.CommandMsg{Name: "move", Args: []string{"In", "Progress"}})
	if got := statusOf(h.m, "I1"); got != model.StatusInProgress {
		t.Fatalf("expected inprogress, got %s", got)
	}
	if cmd == nil {
		t.Fatal("expected sync command")
	}
	cmd()
	if len(h.client.calls) != 1 {
		t.Errorf("expected one remote call, got %d", len(h.client.calls))
	}

	h.send(command.CommandMsg{Name: "move", Args: []string{"sideways"}})
	if !strings.Contains(h.m.statusMsg, "unknown status") {
		t.Errorf("unexpected status %q", h.m.statusMsg)
	}
}

func TestLogoutKey(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)

	h.key("L")
	if h.m.currentView != ViewLogin || h.m.session != nil {
		t.Fatal("expected logout")
	}
	if h.m.statusMsg != "Logged out" {
		t.Errorf("unexpected status %q", h.m.statusMsg)
	}
}

func TestQuitOnlyFromBoard(t *testing.T) {
	h := newHarness(t)
	h.send(h.m.restoreSession()())

	// Typing q into the login form must not quit.
	if cmd := h.key("q"); cmd != nil {
		if _, ok := cmd().(tea.QuitMsg); ok {
			t.Fatal("q quit from the login screen")
		}
	}

	h.send(auth.LoggedInMsg{Email: "dev@example.com", Token: "tok"})
	cmd := h.key("q")
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestHelpToggle(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)

	h.key("?")
	if h.m.currentView != ViewHelp {
		t.Fatal("expected help view")
	}
	h.key("esc")
	if h.m.currentView != ViewBoard {
		t.Error("expected esc to close help")
	}
}
