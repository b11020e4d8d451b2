package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/guard"
	"github.com/marketlink/marketplace-web/internal/core/service"
)

// RegistrationHandler serves the onboarding wizard: progress, drafts and
// step submission.
type RegistrationHandler struct {
	service *service.RegistrationService
	guard   *guard.Guard
	log     zerolog.Logger
}

func NewRegistrationHandler(svc *service.RegistrationService, g *guard.Guard, log zerolog.Logger) *RegistrationHandler {
	return &RegistrationHandler{service: svc, guard: g, log: log.With().Str("component", "registration_handler").Logger()}
}

// Progress handles GET /api/registration.
//
// @Summary      Registration progress
// @Tags         registration
// @Produce      json
// @Success      200  {object}  stepResponse
// @Failure      401  {object}  errorResponse
// @Router       /api/registration [get]
func (h *RegistrationHandler) Progress(c echo.Context) error {
	_, user, err := ctxSession(c)
	if err != nil {
		return err
	}
	progress := h.service.Progress(user)
	return c.JSON(http.StatusOK, stepResponse{Registration: progress, Next: h.next(progress)})
}

// Draft handles GET /api/registration/steps/:step/draft.
//
// @Summary      Load a step draft
// @Tags         registration
// @Produce      json
// @Param        step  path      string  true  "Step slug"
// @Success      200   {object}  draftResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/registration/steps/{step}/draft [get]
func (h *RegistrationHandler) Draft(c echo.Context) error {
	_, user, err := ctxSession(c)
	if err != nil {
		return err
	}
	step, err := stepParam(c)
	if err != nil {
		return err
	}

	d, err := h.service.Draft(c.Request().Context(), user, step)
	if err != nil {
		return err
	}
	resp := draftResponse{Step: step, Fields: d.Fields}
	if !d.UpdatedAt.IsZero() {
		resp.UpdatedAt = &d.UpdatedAt
	}
	if resp.Fields == nil {
		resp.Fields = map[string]string{}
	}
	return c.JSON(http.StatusOK, resp)
}

// SaveDraft handles PUT /api/registration/steps/:step/draft. Drafts are not
// validated: they hold whatever the user typed so far.
//
// @Summary      Save a step draft
// @Tags         registration
// @Accept       json
// @Param        step  path  string        true  "Step slug"
// @Param        body  body  draftRequest  true  "Draft fields"
// @Success      204
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/registration/steps/{step}/draft [put]
func (h *RegistrationHandler) SaveDraft(c echo.Context) error {
	_, user, err := ctxSession(c)
	if err != nil {
		return err
	}
	step, err := stepParam(c)
	if err != nil {
		return err
	}
	var req draftRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.Fields == nil {
		req.Fields = map[string]string{}
	}

	if err := h.service.SaveDraft(c.Request().Context(), user, step, req.Fields); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Submit handles POST /api/registration/steps/:step. The form is validated
// locally first; field errors from the backend come back in the same shape.
//
// @Summary      Submit a step
// @Tags         registration
// @Accept       json
// @Produce      json
// @Param        step  path      string  true  "Step slug"
// @Success      200   {object}  stepResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/registration/steps/{step} [post]
func (h *RegistrationHandler) Submit(c echo.Context) error {
	b, user, err := ctxSession(c)
	if err != nil {
		return err
	}
	step, err := stepParam(c)
	if err != nil {
		return err
	}
	form, _ := newStepForm(step)
	if err := c.Bind(form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(form); err != nil {
		return err
	}

	ctx := c.Request().Context()
	progress, err := h.service.Submit(ctx, b.Token(), user, step, form.fields())
	if err != nil {
		return err
	}
	// The account changed at the backend; the next read refetches it.
	if err := b.Scope.Users.Invalidate(ctx); err != nil {
		h.log.Warn().Err(err).Msg("failed to forget cached user")
	}

	h.log.Info().Str("user_id", user.ID).Str("step", string(step)).Bool("complete", progress.Complete()).Msg("registration step submitted")
	return c.JSON(http.StatusOK, stepResponse{Registration: progress, Next: h.next(progress)})
}

func (h *RegistrationHandler) next(p domain.RegistrationProgress) string {
	if step, ok := p.Current(); ok {
		return step.Path()
	}
	return h.guard.Config().DashboardPath
}

func stepParam(c echo.Context) (domain.RegistrationStep, error) {
	step, ok := domain.ParseRegistrationStep(c.Param("step"))
	if !ok {
		return "", domain.ErrUnknownStep
	}
	return step, nil
}
