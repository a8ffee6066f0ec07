package registry

// Result is the answer of one licence lookup. Found is false both when the
// register has no such licence (Error empty) and when the lookup failed
// (Error set).
type Result struct {
	Found             bool   `json:"found"`
	FirstName         string `json:"first_name,omitempty"`
	Surname           string `json:"surname,omitempty"`
	LicenceNumber     string `json:"licence_number,omitempty"`
	Role              string `json:"role,omitempty"`
	Sector            string `json:"sector,omitempty"`
	ExpiryDate        string `json:"expiry_date,omitempty"`
	Status            string `json:"status,omitempty"`
	StatusExplanation string `json:"status_explanation,omitempty"`
	Error             string `json:"error,omitempty"`
}

// Outcome classifies the page returned by a search submission.
type Outcome string

const (
	OutcomeFound        Outcome = "found"
	OutcomeNoResults    Outcome = "no_results"
	OutcomeValidation   Outcome = "validation_error"
	OutcomeCaptcha      Outcome = "captcha"
	OutcomeUnrecognized Outcome = "unrecognized"
	// OutcomeError covers failures before a result page was classified.
	OutcomeError Outcome = "error"
)
