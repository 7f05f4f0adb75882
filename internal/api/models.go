package api

import (
	"github.com/google/uuid"
	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/exam"
	"github.com/phrazzld/lexi-api/internal/generation"
	"github.com/phrazzld/lexi-api/internal/service/session"
)

// TokenRequest is the payload of POST /api/auth/token.
type TokenRequest struct {
	AccessKey string `json:"access_key" validate:"required,min=8,max=72"`
}

// TokenResponse carries a bearer token for the installation user.
type TokenResponse struct {
	UserID      uuid.UUID `json:"user_id"`
	AccessToken string    `json:"token"`

	// ExpiresAt is RFC 3339.
	ExpiresAt string `json:"expires_at"`
}

// CreateCardRequest is the payload of POST /api/cards. Missing languages
// default to the learner's profile.
type CreateCardRequest struct {
	Word           string   `json:"word"                      validate:"required,max=100"`
	SourceLanguage string   `json:"source_language,omitempty" validate:"omitempty,max=30"`
	TargetLanguage string   `json:"target_language,omitempty" validate:"omitempty,max=30"`
	Tags           []string `json:"tags,omitempty"            validate:"omitempty,max=20,dive,max=50,excludesall=0x2C"`
	CEFRLevel      *string  `json:"cefr_level,omitempty"      validate:"omitempty,oneof=A1 A2 B1 B2 C1 C2"`
}

// UpdateCardRequest is the payload of PUT /api/cards/{id}. Omitted fields
// are left unchanged.
type UpdateCardRequest struct {
	Definition      *string   `json:"definition,omitempty"       validate:"omitempty,max=1000"`
	ShortDefinition *string   `json:"short_definition,omitempty" validate:"omitempty,max=200"`
	Translation     *string   `json:"translation,omitempty"      validate:"omitempty,max=200"`
	Example         *string   `json:"example,omitempty"          validate:"omitempty,max=1000"`
	Phonetics       *string   `json:"phonetics,omitempty"        validate:"omitempty,max=100"`
	CEFRLevel       *string   `json:"cefr_level,omitempty"       validate:"omitempty,oneof=A1 A2 B1 B2 C1 C2"`
	Tags            *[]string `json:"tags,omitempty"             validate:"omitempty,max=20,dive,max=50,excludesall=0x2C"`
}

// CardListResponse wraps a list of cards.
type CardListResponse struct {
	Cards []*domain.Flashcard `json:"cards"`
	Count int                 `json:"count"`
}

// TagListResponse lists the tags in use.
type TagListResponse struct {
	Tags []string `json:"tags"`
}

// StartSessionRequest is the payload of POST /api/session/start. Tags apply
// to full reviews, Count to exams.
type StartSessionRequest struct {
	Mode  string   `json:"mode"            validate:"required,oneof=due_review full_review exam"`
	Tags  []string `json:"tags,omitempty"  validate:"omitempty,max=20,dive,max=50,excludesall=0x2C"`
	Count int      `json:"count,omitempty" validate:"omitempty,min=1,max=50"`
}

// AnswerRequest is the payload of POST /api/session/answer.
type AnswerRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=hard good easy"`
}

// ChoiceRequest is the payload of POST /api/session/choice.
type ChoiceRequest struct {
	SelectedIndex *int `json:"selected_index" validate:"required"`
}

// QuestionResponse is an exam question without its answer.
type QuestionResponse struct {
	Prompt  string                   `json:"prompt"`
	Options [exam.OptionCount]string `json:"options"`
	Kind    generation.QuestionKind  `json:"kind"`
	Hint    string                   `json:"hint,omitempty"`
}

// SessionResponse is the state of the running or last session.
type SessionResponse struct {
	State    session.State     `json:"state"`
	Summary  *session.Summary  `json:"summary,omitempty"`
	Card     *domain.Flashcard `json:"card,omitempty"`
	Question *QuestionResponse `json:"question,omitempty"`
	Choice   *session.Choice   `json:"choice,omitempty"`

	// Warning is set when the answer counted but was not saved.
	Warning string `json:"warning,omitempty"`
}

// newSessionResponse converts a view for clients. During an exam the
// current card is withheld because it contains the answer.
func newSessionResponse(view *session.View) SessionResponse {
	resp := SessionResponse{
		State:   view.State,
		Summary: view.Summary,
		Card:    view.Card,
		Choice:  view.Choice,
	}
	if view.Question != nil {
		resp.Card = nil
		resp.Question = &QuestionResponse{
			Prompt:  view.Question.Prompt,
			Options: view.Question.Options,
			Kind:    view.Question.Kind,
			Hint:    view.Question.Hint,
		}
	}
	if view.Summary != nil && view.Summary.Mode == domain.ModeExam {
		resp.Card = nil
	}
	return resp
}

// ProfileRequest is the payload of PUT /api/profile. Omitted fields are
// left unchanged.
type ProfileRequest struct {
	Name                 *string `json:"name,omitempty"                  validate:"omitempty,min=1,max=50"`
	SourceLanguage       *string `json:"source_language,omitempty"       validate:"omitempty,max=30"`
	TargetLanguage       *string `json:"target_language,omitempty"       validate:"omitempty,max=30"`
	DailyGoal            *int    `json:"daily_goal,omitempty"            validate:"omitempty,min=5,max=50"`
	NotificationsEnabled *bool   `json:"notifications_enabled,omitempty"`
	ReminderTime         *string `json:"reminder_time,omitempty"         validate:"omitempty,datetime=15:04"`
}

// ExamListResponse lists past exams, newest first.
type ExamListResponse struct {
	Exams []*domain.ExamSession `json:"exams"`
	Count int                   `json:"count"`
}
