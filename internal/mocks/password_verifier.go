package mocks

import "github.com/phrazzld/lexi-api/internal/service/auth"

// MockPasswordVerifier implements auth.PasswordVerifier.
type MockPasswordVerifier struct {
	// ShouldSucceed decides the result when CompareFn is nil.
	ShouldSucceed bool

	CompareFn func(hashedPassword, password string) error

	CompareCalledWith struct {
		HashedPassword string
		Password       string
	}
	CompareCallCount int
}

var _ auth.PasswordVerifier = (*MockPasswordVerifier)(nil)

// Compare implements auth.PasswordVerifier. A failed comparison returns
// auth.ErrInvalidAccessKey.
func (m *MockPasswordVerifier) Compare(hashedPassword, password string) error {
	m.CompareCalledWith.HashedPassword = hashedPassword
	m.CompareCalledWith.Password = password
	m.CompareCallCount++

	if m.CompareFn != nil {
		return m.CompareFn(hashedPassword, password)
	}
	if m.ShouldSucceed {
		return nil
	}
	return auth.ErrInvalidAccessKey
}
