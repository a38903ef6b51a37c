package issueform

import (
	"encoding/json"
	"testing"

	"github.com/nhle/bugtracker/internal/model"
)

func TestStartCreateDefaults(t *testing.T) {
	m := New(80, 24)
	m.StartCreate("P1")

	if m.fb.status != model.StatusBacklog || m.fb.priority != model.PriorityMedium {
		t.Errorf("unexpected defaults %+v", m.fb)
	}

	m.fb.title = "  Crash on save "
	msg, ok := m.handleSubmit()().(CreateRequestMsg)
	if !ok {
		t.Fatal("expected CreateRequestMsg")
	}
	want := model.CreateIssueInput{
		Title:     "Crash on save",
		Status:    model.StatusBacklog,
		Priority:  model.PriorityMedium,
		ProjectID: "P1",
	}
	if msg.Input != want {
		t.Errorf("expected %+v, got %+v", want, msg.Input)
	}
}

func TestStartEditPrefillsAndPatches(t *testing.T) {
	desc := "old"
	assignee := "U1"
	issue := model.Issue{
		ID: "I1", Title: "Crash", Status: model.StatusTodo, Priority: "high",
		ProjectID: "P1", Description: &desc, AssigneeID: &assignee,
	}

	m := New(80, 24)
	m.SetUsers([]model.User{{ID: "U1", Name: "Ada Lovelace", Role: model.RoleDeveloper}})
	m.StartEdit(issue)

	if m.fb.title != "Crash" || m.fb.description != "old" || m.fb.assigneeID != "U1" {
		t.Fatalf("form not prefilled: %+v", m.fb)
	}

	m.fb.assigneeID = ""
	msg, ok := m.handleSubmit()().(UpdateRequestMsg)
	if !ok {
		t.Fatal("expected UpdateRequestMsg")
	}
	if msg.IssueID != "I1" {
		t.Errorf("expected I1, got %s", msg.IssueID)
	}

	body, err := json.Marshal(msg.Patch)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"assigneeId":null,"description":"old","priority":"high","title":"Crash"}`
	if string(body) != want {
		t.Errorf("expected %s, got %s", want, body)
	}
}

func TestValidateRequired(t *testing.T) {
	v := validateRequired("Title")
	if v("   ") == nil {
		t.Error("expected error for blank")
	}
	if v("ok") != nil {
		t.Error("expected nil for non-blank")
	}
}
