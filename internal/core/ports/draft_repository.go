package ports

import (
	"context"
	"time"

	"github.com/marketlink/marketplace-web/internal/core/domain"
)

// RegistrationDraft is the partially filled form of one wizard step.
type RegistrationDraft struct {
	UserID    string
	Step      domain.RegistrationStep
	Fields    map[string]string
	UpdatedAt time.Time
}

// DraftRepository persists registration drafts between visits.
type DraftRepository interface {
	Save(ctx context.Context, draft RegistrationDraft) error
	// Find returns domain.ErrDraftNotFound when no draft exists.
	Find(ctx context.Context, userID string, step domain.RegistrationStep) (*RegistrationDraft, error)
	DeleteAll(ctx context.Context, userID string) error
}
