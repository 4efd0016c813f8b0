// Package mocks provides mock implementations of the compliance gate ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the port interfaces.
// Hand-written in-memory fakes for the same ports live in internal/mocks/auth.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	client := mocks.NewMockSessionClient(ctrl)
//	client.EXPECT().SignInWithPassword(gomock.Any(), "a@example.com", "secret").Return(sess, nil)
package mocks

// SignInWithPassword, SignUp, BeginOAuth, CompleteOAuthCallback, GetCurrentSession,
// RequestPasswordReset, SetNewPassword, SignOut
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=session_client_mock.go github.com/target/compliance-gate/internal/ports SessionClient

// Save, Get, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=session_store_mock.go github.com/target/compliance-gate/internal/ports SessionStore

// GetByID, FindByEmailPrefix, FindByEmails, List, Insert, Update, Delete, CountByRole
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=profile_store_mock.go github.com/target/compliance-gate/internal/ports ProfileStore

// ChangeRole, Remove, ListAudit
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=profile_admin_store_mock.go github.com/target/compliance-gate/internal/ports ProfileAdminStore
