package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/ports"
)

// RegistrationService drives the onboarding wizard: drafts are kept locally
// between visits and each completed step is submitted to the backend.
type RegistrationService struct {
	api    ports.APIClient
	drafts ports.DraftRepository
	log    zerolog.Logger
	now    func() time.Time
}

func NewRegistrationService(api ports.APIClient, drafts ports.DraftRepository, log zerolog.Logger) *RegistrationService {
	return &RegistrationService{
		api:    api,
		drafts: drafts,
		log:    log.With().Str("component", "registration_service").Logger(),
		now:    time.Now,
	}
}

// StepResult is the backend's view of the wizard after a submission.
type StepResult struct {
	CompletedSteps       []string `json:"completed_steps"`
	RegistrationComplete bool     `json:"registration_complete"`
}

// Progress returns the wizard state of user.
func (s *RegistrationService) Progress(user *domain.User) domain.RegistrationProgress {
	return user.Progress()
}

// Draft returns the saved fields of step, or an empty draft when none exists.
func (s *RegistrationService) Draft(ctx context.Context, user *domain.User, step domain.RegistrationStep) (*ports.RegistrationDraft, error) {
	if err := s.checkAccessible(user, step); err != nil {
		return nil, err
	}
	d, err := s.drafts.Find(ctx, user.ID, step)
	if errors.Is(err, domain.ErrDraftNotFound) {
		return &ports.RegistrationDraft{UserID: user.ID, Step: step, Fields: map[string]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	return d, nil
}

// SaveDraft stores partially entered fields of step.
func (s *RegistrationService) SaveDraft(ctx context.Context, user *domain.User, step domain.RegistrationStep, fields map[string]string) error {
	if err := s.checkAccessible(user, step); err != nil {
		return err
	}
	return s.drafts.Save(ctx, ports.RegistrationDraft{
		UserID:    user.ID,
		Step:      step,
		Fields:    fields,
		UpdatedAt: s.now().UTC(),
	})
}

// Submit sends the validated fields of step to the backend. Field errors the
// backend reports come back as a VALIDATION_ERROR *domain.APIError.
func (s *RegistrationService) Submit(ctx context.Context, token string, user *domain.User, step domain.RegistrationStep, fields map[string]string) (domain.RegistrationProgress, error) {
	if err := s.checkAccessible(user, step); err != nil {
		return domain.RegistrationProgress{}, err
	}

	var result StepResult
	err := s.api.Do(ctx, ports.APIRequest{
		Method: http.MethodPost,
		Path:   "/registration/steps/" + url.PathEscape(string(step)),
		Body:   fields,
		Token:  token,
	}, &result)
	if err != nil {
		return domain.RegistrationProgress{}, err
	}

	// Keep the local draft in step with what was accepted.
	if saveErr := s.drafts.Save(ctx, ports.RegistrationDraft{
		UserID: user.ID, Step: step, Fields: fields, UpdatedAt: s.now().UTC(),
	}); saveErr != nil {
		s.log.Warn().Err(saveErr).Str("step", string(step)).Msg("failed to store submitted draft")
	}

	if result.RegistrationComplete {
		if err := s.drafts.DeleteAll(ctx, user.ID); err != nil {
			s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to delete registration drafts")
		}
		return domain.CompleteRegistrationProgress(), nil
	}
	return domain.NewRegistrationProgress(result.CompletedSteps), nil
}

func (s *RegistrationService) checkAccessible(user *domain.User, step domain.RegistrationStep) error {
	if user == nil {
		return domain.ErrNotAuthenticated
	}
	if step.Index() < 0 {
		return domain.ErrUnknownStep
	}
	if !user.Progress().Accessible(step) {
		return fmt.Errorf("%w: %s", domain.ErrStepNotAccessible, step)
	}
	return nil
}
