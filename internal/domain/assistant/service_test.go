package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nrivaa/nrivaa/internal/platform/apperr"
	"github.com/nrivaa/nrivaa/internal/platform/auth"
	"github.com/nrivaa/nrivaa/internal/platform/llm"
)

type mockRepo struct {
	msgs []*Message
}

func (m *mockRepo) Create(_ context.Context, msg *Message) error {
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now()
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *mockRepo) forUser(userID uuid.UUID) []*Message {
	var out []*Message
	for _, msg := range m.msgs {
		if msg.UserID == userID {
			out = append(out, msg)
		}
	}
	return out
}

func (m *mockRepo) Recent(_ context.Context, userID uuid.UUID, n int) ([]*Message, error) {
	all := m.forUser(userID)
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}

func (m *mockRepo) List(_ context.Context, userID uuid.UUID, limit, offset int) ([]*Message, int, error) {
	all := m.forUser(userID)
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *mockRepo) Clear(_ context.Context, userID uuid.UUID) (int64, error) {
	var kept []*Message
	var n int64
	for _, msg := range m.msgs {
		if msg.UserID == userID {
			n++
			continue
		}
		kept = append(kept, msg)
	}
	m.msgs = kept
	return n, nil
}

type fakeModel struct {
	reply  string
	err    error
	system string
	turns  []llm.Turn
}

func (f *fakeModel) Generate(_ context.Context, systemPrompt string, turns []llm.Turn) (string, error) {
	f.system = systemPrompt
	f.turns = append([]llm.Turn(nil), turns...)
	return f.reply, f.err
}

func newTestService(history int) (*Service, *mockRepo, *fakeModel) {
	repo := &mockRepo{}
	model := &fakeModel{reply: "Drink plenty of water and rest."}
	return NewService(repo, model, history, zerolog.Nop()), repo, model
}

func patient() auth.CurrentUser {
	return auth.CurrentUser{ID: uuid.New(), CustomID: "#Nrivaa007", Role: auth.RolePatient, FullName: "Asha Rao"}
}

func TestService_Chat(t *testing.T) {
	svc, repo, model := newTestService(10)
	u := patient()

	resp, err := svc.Chat(context.Background(), u, ChatRequest{Message: "  I have a mild fever  "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Reply.Content != "Drink plenty of water and rest." || resp.Reply.Role != RoleAssistant {
		t.Errorf("unexpected reply %+v", resp.Reply)
	}
	if resp.Message.Content != "I have a mild fever" {
		t.Errorf("expected trimmed message, got %q", resp.Message.Content)
	}
	if len(repo.msgs) != 2 {
		t.Fatalf("expected both turns stored, got %d", len(repo.msgs))
	}
	if !strings.Contains(model.system, "patient") || !strings.Contains(model.system, "#Nrivaa007") {
		t.Errorf("unexpected system prompt %q", model.system)
	}
	if len(model.turns) != 1 || model.turns[0].Role != llm.RoleUser {
		t.Errorf("unexpected turns %+v", model.turns)
	}
}

func TestService_Chat_DoctorPrompt(t *testing.T) {
	svc, _, model := newTestService(10)
	u := auth.CurrentUser{ID: uuid.New(), CustomID: "#DrNrivaa002", Role: auth.RoleDoctor, FullName: "Dr. Shah"}

	if _, err := svc.Chat(context.Background(), u, ChatRequest{Message: "First line for stage 1 hypertension?"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(model.system, "clinical assistant") || !strings.Contains(model.system, "#DrNrivaa002") {
		t.Errorf("expected doctor prompt, got %q", model.system)
	}
}

func TestService_Chat_SendsRecentHistory(t *testing.T) {
	svc, _, model := newTestService(2)
	u := patient()
	ctx := context.Background()

	for _, m := range []string{"one", "two", "three"} {
		if _, err := svc.Chat(ctx, u, ChatRequest{Message: m}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// Two prior messages (user "two", assistant reply) plus the new one.
	if len(model.turns) != 3 {
		t.Fatalf("expected 3 turns, got %+v", model.turns)
	}
	if model.turns[0].Text != "two" || model.turns[1].Role != llm.RoleModel || model.turns[2].Text != "three" {
		t.Errorf("unexpected turns %+v", model.turns)
	}
}

func TestService_Chat_ModelFailure(t *testing.T) {
	svc, repo, model := newTestService(10)
	model.err = errors.New("llm: status 503: overloaded")
	u := patient()

	_, err := svc.Chat(context.Background(), u, ChatRequest{Message: "hello"})
	if !errors.Is(err, apperr.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if apperr.Message(err) != unavailableMessage {
		t.Errorf("expected generic message, got %q", apperr.Message(err))
	}
	if strings.Contains(apperr.Message(err), "overloaded") {
		t.Error("upstream details must not reach the caller")
	}
	if len(repo.msgs) != 1 || repo.msgs[0].Role != RoleUser {
		t.Errorf("expected only the user turn stored, got %+v", repo.msgs)
	}
}

func TestService_Chat_Validation(t *testing.T) {
	svc, repo, _ := newTestService(10)
	tests := []string{"", "   ", strings.Repeat("a", 4001)}
	for _, msg := range tests {
		if _, err := svc.Chat(context.Background(), patient(), ChatRequest{Message: msg}); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("expected validation error for %d chars, got %v", len(msg), err)
		}
	}
	if len(repo.msgs) != 0 {
		t.Error("invalid messages must not be stored")
	}
}

func TestToTurns(t *testing.T) {
	msgs := []*Message{
		{Role: RoleAssistant, Content: "orphan reply"},
		{Role: RoleUser, Content: "first"},
		{Role: RoleUser, Content: "retry"},
		{Role: RoleAssistant, Content: "answer"},
		{Role: RoleUser, Content: "thanks"},
	}
	turns := toTurns(msgs)
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %+v", turns)
	}
	if turns[0].Role != llm.RoleUser || turns[0].Text != "first\n\nretry" {
		t.Errorf("unexpected first turn %+v", turns[0])
	}
	if turns[1].Role != llm.RoleModel || turns[2].Text != "thanks" {
		t.Errorf("unexpected turns %+v", turns)
	}
}

func TestService_HistoryAndClear(t *testing.T) {
	svc, _, _ := newTestService(10)
	ctx := context.Background()
	a, b := patient(), patient()
	svc.Chat(ctx, a, ChatRequest{Message: "hi"})
	svc.Chat(ctx, b, ChatRequest{Message: "hello"})

	items, total, err := svc.History(ctx, a.ID, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || items[0].Role != RoleUser || items[1].Role != RoleAssistant {
		t.Errorf("unexpected history %+v", items)
	}

	if err := svc.ClearHistory(ctx, a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, total, _ := svc.History(ctx, a.ID, 20, 0); total != 0 {
		t.Errorf("expected empty history, got %d", total)
	}
	if _, total, _ := svc.History(ctx, b.ID, 20, 0); total != 2 {
		t.Errorf("other users' history must survive, got %d", total)
	}
}
