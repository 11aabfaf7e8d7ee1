package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nrivaa/nrivaa/internal/platform/apperr"
	"github.com/nrivaa/nrivaa/internal/platform/auth"
	"github.com/nrivaa/nrivaa/internal/platform/llm"
	"github.com/nrivaa/nrivaa/internal/platform/validate"
)

const unavailableMessage = "the assistant is unavailable right now, please try again later"

const patientPrompt = `You are the Nrivaa health assistant talking with a patient (%s, ID %s).
Answer health questions in simple, friendly language. Explain medical terms when you use them.
You do not diagnose or prescribe. When symptoms sound serious or urgent, tell the patient to
contact a doctor or emergency services right away.`

const doctorPrompt = `You are the Nrivaa clinical assistant supporting a doctor (%s, ID %s).
Answer concisely using standard clinical terminology. Cite guideline names where relevant
and state uncertainty plainly. The doctor makes all clinical decisions.`

type Service struct {
	messages     Repository
	model        llm.Generator
	historyTurns int
	logger       zerolog.Logger
}

func NewService(messages Repository, model llm.Generator, historyTurns int, logger zerolog.Logger) *Service {
	return &Service{messages: messages, model: model, historyTurns: historyTurns, logger: logger}
}

func systemPrompt(u auth.CurrentUser) string {
	if u.Role == auth.RoleDoctor {
		return fmt.Sprintf(doctorPrompt, u.FullName, u.CustomID)
	}
	return fmt.Sprintf(patientPrompt, u.FullName, u.CustomID)
}

// Chat sends the message with recent history to the model and relays its
// reply. The user's message is stored even when the model fails.
func (s *Service) Chat(ctx context.Context, u auth.CurrentUser, req ChatRequest) (*ChatResponse, error) {
	req.Message = strings.TrimSpace(req.Message)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	var history []*Message
	if s.historyTurns > 0 {
		var err error
		history, err = s.messages.Recent(ctx, u.ID, s.historyTurns)
		if err != nil {
			return nil, err
		}
	}

	msg := &Message{UserID: u.ID, Role: RoleUser, Content: req.Message}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	text, err := s.model.Generate(ctx, systemPrompt(u), toTurns(append(history, msg)))
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", u.ID.String()).Msg("assistant reply failed")
		return nil, apperr.Upstream(unavailableMessage, err)
	}

	reply := &Message{UserID: u.ID, Role: RoleAssistant, Content: text}
	if err := s.messages.Create(ctx, reply); err != nil {
		return nil, err
	}
	return &ChatResponse{Message: msg, Reply: reply}, nil
}

// toTurns converts stored messages to model turns. The conversation must
// start with a user turn and alternate roles, so leading assistant messages
// are dropped and consecutive messages from one side are merged.
func toTurns(msgs []*Message) []llm.Turn {
	turns := make([]llm.Turn, 0, len(msgs))
	for _, m := range msgs {
		role := llm.RoleUser
		if m.Role == RoleAssistant {
			role = llm.RoleModel
		}
		if len(turns) == 0 && role != llm.RoleUser {
			continue
		}
		if n := len(turns); n > 0 && turns[n-1].Role == role {
			turns[n-1].Text += "\n\n" + m.Content
			continue
		}
		turns = append(turns, llm.Turn{Role: role, Text: m.Content})
	}
	return turns
}

func (s *Service) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Message, int, error) {
	return s.messages.List(ctx, userID, limit, offset)
}

func (s *Service) ClearHistory(ctx context.Context, userID uuid.UUID) error {
	n, err := s.messages.Clear(ctx, userID)
	if err != nil {
		return err
	}
	s.logger.Info().Str("user_id", userID.String()).Int64("deleted", n).Msg("chat history cleared")
	return nil
}
