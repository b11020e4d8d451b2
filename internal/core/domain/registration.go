package domain

import "strings"

// RegistrationRoot is the public entry point of the onboarding wizard.
const RegistrationRoot = "/register"

// ConfirmEmailPath is reachable in every state so users can always finish
// verifying their address.
const ConfirmEmailPath = RegistrationRoot + "/confirm-email"

// RegistrationStep is one page of the onboarding wizard.
type RegistrationStep string

const (
	StepAccountType RegistrationStep = "account-type"
	StepCompany     RegistrationStep = "company"
	StepContact     RegistrationStep = "contact"
	StepDocuments   RegistrationStep = "documents"
	StepReview      RegistrationStep = "review"
)

// RegistrationSteps lists the wizard steps in the order they must be completed.
var RegistrationSteps = []RegistrationStep{
	StepAccountType,
	StepCompany,
	StepContact,
	StepDocuments,
	StepReview,
}

// Path returns the canonical route of the step.
func (s RegistrationStep) Path() string {
	return RegistrationRoot + "/" + string(s)
}

// Index returns the zero-based position of s, or -1 when s is unknown.
func (s RegistrationStep) Index() int {
	for i, step := range RegistrationSteps {
		if step == s {
			return i
		}
	}
	return -1
}

// ParseRegistrationStep maps a slug to a known step.
func ParseRegistrationStep(slug string) (RegistrationStep, bool) {
	s := RegistrationStep(slug)
	return s, s.Index() >= 0
}

// StepStatus pairs a step with its completion flag.
type StepStatus struct {
	Step     RegistrationStep `json:"step"`
	Path     string           `json:"path"`
	Complete bool             `json:"complete"`
}

// RegistrationProgress is the ordered completion state of the wizard.
type RegistrationProgress struct {
	Steps []StepStatus `json:"steps"`
}

// NewRegistrationProgress builds progress from the slugs the backend reports as
// completed. A step only counts as complete when every earlier step is complete
// too, so a gap resets everything after it.
func NewRegistrationProgress(completed []string) RegistrationProgress {
	done := make(map[string]struct{}, len(completed))
	for _, c := range completed {
		done[c] = struct{}{}
	}

	p := RegistrationProgress{Steps: make([]StepStatus, len(RegistrationSteps))}
	chain := true
	for i, step := range RegistrationSteps {
		_, ok := done[string(step)]
		chain = chain && ok
		p.Steps[i] = StepStatus{Step: step, Path: step.Path(), Complete: chain}
	}
	return p
}

// CompleteRegistrationProgress returns progress with every step complete.
func CompleteRegistrationProgress() RegistrationProgress {
	all := make([]string, len(RegistrationSteps))
	for i, s := range RegistrationSteps {
		all[i] = string(s)
	}
	return NewRegistrationProgress(all)
}

// Complete reports whether every step is complete.
func (p RegistrationProgress) Complete() bool {
	_, ok := p.Current()
	return !ok
}

// Current returns the first incomplete step. ok is false when the wizard is done.
func (p RegistrationProgress) Current() (step RegistrationStep, ok bool) {
	for _, s := range p.Steps {
		if !s.Complete {
			return s.Step, true
		}
	}
	return "", false
}

// Accessible reports whether step may be visited: all earlier steps are complete.
func (p RegistrationProgress) Accessible(step RegistrationStep) bool {
	idx := step.Index()
	if idx < 0 {
		return false
	}
	for _, s := range p.Steps[:idx] {
		if !s.Complete {
			return false
		}
	}
	return true
}

// IsRegistrationSubPath reports whether path lies under the wizard root but is
// not the root itself.
func IsRegistrationSubPath(path string) bool {
	return strings.HasPrefix(path, RegistrationRoot+"/") && len(path) > len(RegistrationRoot)+1
}

// IsConfirmationPath reports whether path is an email confirmation route.
func IsConfirmationPath(path string) bool {
	return path == ConfirmEmailPath || strings.HasPrefix(path, ConfirmEmailPath+"/")
}
