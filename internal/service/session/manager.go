package session

import (
	"context"
	"sync"

	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/exam"
)

// View is a consistent read of the controller taken under the manager's lock.
type View struct {
	State    State             `json:"state"`
	Summary  *Summary          `json:"summary,omitempty"`
	Card     *domain.Flashcard `json:"card,omitempty"`
	Question *exam.Question    `json:"question,omitempty"`
	Choice   *Choice           `json:"choice,omitempty"`
}

// Manager owns the installation's single session and serialises every call
// into its Controller.
type Manager struct {
	mu         sync.Mutex
	controller *Controller
}

// NewManager wraps controller.
func NewManager(controller *Controller) *Manager {
	if controller == nil {
		panic("controller cannot be nil")
	}
	return &Manager{controller: controller}
}

// Do runs fn with exclusive access to the controller.
func (m *Manager) Do(fn func(c *Controller) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.controller)
}

// Start begins a new session and returns its first view.
func (m *Manager) Start(ctx context.Context, mode domain.SessionMode, selector Selector) (*View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.controller.Start(ctx, mode, selector); err != nil {
		return nil, err
	}
	return m.view(nil), nil
}

// Current returns the current view without changing anything.
func (m *Manager) Current() *View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view(nil)
}

// Reveal shows the current card's answer.
func (m *Manager) Reveal() *View {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.controller.Reveal()
	return m.view(nil)
}

// Answer grades the current card. The view is returned even when the answer
// could not be saved, so callers can show the in-memory state next to the error.
func (m *Manager) Answer(ctx context.Context, outcome domain.AnswerOutcome) (*View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.controller.Answer(ctx, outcome)
	return m.view(nil), err
}

// AnswerChoice grades the current exam question.
func (m *Manager) AnswerChoice(ctx context.Context, selected int) (*View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	choice, err := m.controller.AnswerChoice(ctx, selected)
	return m.view(choice), err
}

// Skip moves past the current card.
func (m *Manager) Skip(ctx context.Context) (*View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.controller.Skip(ctx)
	return m.view(nil), err
}

// Reset discards the session.
func (m *Manager) Reset() *View {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.controller.Reset()
	return m.view(nil)
}

func (m *Manager) view(choice *Choice) *View {
	return &View{
		State:    m.controller.State(),
		Summary:  m.controller.Summary(),
		Card:     m.controller.CurrentCard(),
		Question: m.controller.CurrentQuestion(),
		Choice:   choice,
	}
}
