// Package devin talks to the Devin session API. A deterministic local
// simulator stands in when no API key is configured so the rest of the
// stack behaves identically in keyless development.
package devin

import (
	"context"
	"errors"

	"triage/internal/types"
)

var ErrSessionNotFound = errors.New("devin session not found")

type CreateSessionRequest struct {
	Prompt string
	Title  string
	// RepoFullName and BranchSuggestion feed the simulator's scripted
	// payloads; the HTTP client folds them into the prompt.
	RepoFullName     string
	BranchSuggestion string
}

type CreatedSession struct {
	SessionID string
	URL       string
}

type ExecuteRequest struct {
	BranchName        string
	TargetBranch      string
	AdditionalContext string
}

// Service is the boundary the daemon programs against.
type Service interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*CreatedSession, error)
	GetSession(ctx context.Context, sessionID string) (*types.SessionDetail, error)
	SendMessage(ctx context.Context, sessionID, message string) error
	Execute(ctx context.Context, sessionID string, req ExecuteRequest) error
	Cancel(ctx context.Context, sessionID string) error
}
