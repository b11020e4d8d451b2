package handler

import (
	"strconv"

	"github.com/marketlink/marketplace-web/internal/core/domain"
)

// stepForm is the validated body of one wizard step.
type stepForm interface {
	fields() map[string]string
}

type accountTypeForm struct {
	AccountType string `json:"account_type" validate:"required,oneof=buyer supplier serviceProvider hybrid"`
}

func (f *accountTypeForm) fields() map[string]string {
	return map[string]string{"account_type": f.AccountType}
}

type companyForm struct {
	CompanyName string `json:"company_name" validate:"required,min=2,max=120"`
	TaxID       string `json:"tax_id"       validate:"required,alphanum,min=5,max=20"`
	Country     string `json:"country"      validate:"required,iso3166_1_alpha2"`
	Website     string `json:"website"      validate:"omitempty,http_url,max=2048"`
}

func (f *companyForm) fields() map[string]string {
	return map[string]string{
		"company_name": f.CompanyName,
		"tax_id":       f.TaxID,
		"country":      f.Country,
		"website":      f.Website,
	}
}

type contactForm struct {
	FirstName string `json:"first_name" validate:"required,max=80"`
	LastName  string `json:"last_name"  validate:"required,max=80"`
	Email     string `json:"email"      validate:"required,email"`
	Phone     string `json:"phone"      validate:"required,e164"`
}

func (f *contactForm) fields() map[string]string {
	return map[string]string{
		"first_name": f.FirstName,
		"last_name":  f.LastName,
		"email":      f.Email,
		"phone":      f.Phone,
	}
}

// documentsForm references files already uploaded to the backend.
type documentsForm struct {
	BusinessLicenseID string `json:"business_license_id" validate:"required,uuid"`
	TaxCertificateID  string `json:"tax_certificate_id"  validate:"required,uuid"`
}

func (f *documentsForm) fields() map[string]string {
	return map[string]string{
		"business_license_id": f.BusinessLicenseID,
		"tax_certificate_id":  f.TaxCertificateID,
	}
}

type reviewForm struct {
	AcceptTerms bool `json:"accept_terms" validate:"required"`
}

func (f *reviewForm) fields() map[string]string {
	return map[string]string{"accept_terms": strconv.FormatBool(f.AcceptTerms)}
}

func newStepForm(step domain.RegistrationStep) (stepForm, bool) {
	switch step {
	case domain.StepAccountType:
		return &accountTypeForm{}, true
	case domain.StepCompany:
		return &companyForm{}, true
	case domain.StepContact:
		return &contactForm{}, true
	case domain.StepDocuments:
		return &documentsForm{}, true
	case domain.StepReview:
		return &reviewForm{}, true
	}
	return nil, false
}
