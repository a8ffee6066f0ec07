package registry

import (
	"errors"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	ErrFormNotFound     = errors.New("licence search form not found on register page")
	ErrCaptcha          = errors.New("register answered with a CAPTCHA challenge")
	ErrValidation       = errors.New("register rejected the licence number")
	ErrUnrecognizedPage = errors.New("register returned an unrecognized page")
	ErrDisabled         = errors.New("registry lookup is disabled")
)

// PageParser isolates everything that depends on the register's markup, so
// the scraping strategy can be replaced without touching the client.
type PageParser interface {
	FindSearchForm(doc *html.Node, page *url.URL) (*SearchForm, error)
	Classify(doc *html.Node) Outcome
	Extract(doc *html.Node) Result
}

// Result field keys used in HTMLParser.Labels.
const (
	FieldFirstName         = "first_name"
	FieldSurname           = "surname"
	FieldLicenceNumber     = "licence_number"
	FieldRole              = "role"
	FieldSector            = "sector"
	FieldExpiryDate        = "expiry_date"
	FieldStatus            = "status"
	FieldStatusExplanation = "status_explanation"
)

// DefaultLabels are the captions printed next to each value on a result page.
var DefaultLabels = map[string]string{
	FieldFirstName:         "First name",
	FieldSurname:           "Surname",
	FieldLicenceNumber:     "Licence number",
	FieldRole:              "Role",
	FieldSector:            "Licence sector",
	FieldExpiryDate:        "Expiry date",
	FieldStatus:            "Status",
	FieldStatusExplanation: "Status explanation",
}

var (
	defaultInputNames = []string{"LicenseNo", "LicenceNo", "LicenceNumber", "LicenseNumber"}
	defaultHintTexts  = []string{"licence number", "license number", "16 digit"}

	captchaMarkers    = []string{"g-recaptcha", "h-captcha", "cf-turnstile", "recaptcha", "hcaptcha"}
	captchaPhrases    = []string{"captcha", "verify you are human", "are you a robot"}
	validationClasses = []string{"validation-summary-errors", "field-validation-error", "error-summary", "govuk-error-message"}
	validationPhrases = []string{"please enter a valid", "is not a valid", "must be 16 digits", "enter a licence number"}
	noResultPhrases   = []string{"no results", "no matching", "did not return any", "0 results", "no licence holders", "no records found"}
)

// HTMLParser is the default PageParser for a server-rendered search form.
type HTMLParser struct {
	InputNames []string
	HintTexts  []string
	Labels     map[string]string
}

// NewHTMLParser builds a parser; empty arguments fall back to defaults and
// labels override DefaultLabels per field.
func NewHTMLParser(inputNames, hintTexts []string, labels map[string]string) *HTMLParser {
	if len(inputNames) == 0 {
		inputNames = defaultInputNames
	}
	if len(hintTexts) == 0 {
		hintTexts = defaultHintTexts
	}
	merged := make(map[string]string, len(DefaultLabels))
	for k, v := range DefaultLabels {
		merged[k] = v
	}
	for k, v := range labels {
		merged[k] = v
	}
	return &HTMLParser{InputNames: inputNames, HintTexts: hintTexts, Labels: merged}
}

// Classify decides what a submission returned.
func (p *HTMLParser) Classify(doc *html.Node) Outcome {
	nodes := flatten(doc)
	text := strings.ToLower(textContent(doc))

	if hasCaptcha(nodes, text) {
		return OutcomeCaptcha
	}
	if hasValidationError(nodes, text) {
		return OutcomeValidation
	}
	if p.labelValue(nodes, FieldLicenceNumber) != "" || p.labelValue(nodes, FieldSurname) != "" {
		return OutcomeFound
	}
	for _, phrase := range noResultPhrases {
		if strings.Contains(text, phrase) {
			return OutcomeNoResults
		}
	}
	return OutcomeUnrecognized
}

// Extract reads the labelled fields of a result page.
func (p *HTMLParser) Extract(doc *html.Node) Result {
	nodes := flatten(doc)
	return Result{
		Found:             true,
		FirstName:         p.labelValue(nodes, FieldFirstName),
		Surname:           p.labelValue(nodes, FieldSurname),
		LicenceNumber:     strings.ReplaceAll(p.labelValue(nodes, FieldLicenceNumber), " ", ""),
		Role:              p.labelValue(nodes, FieldRole),
		Sector:            p.labelValue(nodes, FieldSector),
		ExpiryDate:        p.labelValue(nodes, FieldExpiryDate),
		Status:            p.labelValue(nodes, FieldStatus),
		StatusExplanation: p.labelValue(nodes, FieldStatusExplanation),
	}
}

// labelValue finds the outermost element whose whole text is the field's
// caption and returns the first text that follows it. An empty string means
// the caption is absent or immediately followed by another caption.
func (p *HTMLParser) labelValue(nodes []flatNode, field string) string {
	caption := p.Labels[field]
	if caption == "" {
		return ""
	}
	for _, f := range nodes {
		if f.node.Type != html.ElementNode || insideControl(f.node) || !sameCaption(textContent(f.node), caption) {
			continue
		}
		for _, next := range nodes[f.end+1:] {
			n := next.node
			if n.Type != html.TextNode || insideIgnored(n) || insideControl(n) {
				continue
			}
			value := normalizeSpace(n.Data)
			if value == "" || value == ":" {
				continue
			}
			if p.isCaption(value) {
				return ""
			}
			return value
		}
		return ""
	}
	return ""
}

func (p *HTMLParser) isCaption(s string) bool {
	for _, caption := range p.Labels {
		if sameCaption(s, caption) {
			return true
		}
	}
	return false
}

// insideControl reports whether n is part of a form control, whose text is
// never a result value. Result pages often re-render the search form.
func insideControl(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		switch {
		case isElement(p, atom.Label), isElement(p, atom.Button), isElement(p, atom.Select),
			isElement(p, atom.Option), isElement(p, atom.Textarea):
			return true
		}
	}
	return false
}

func sameCaption(text, caption string) bool {
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), ":"))
	return text != "" && strings.EqualFold(text, caption)
}

func hasCaptcha(nodes []flatNode, text string) bool {
	for _, f := range nodes {
		n := f.node
		if n.Type != html.ElementNode {
			continue
		}
		marker := attr(n, "class") + " " + attr(n, "id")
		if isElement(n, atom.Iframe) || isElement(n, atom.Script) {
			marker += " " + attr(n, "src")
		}
		for _, m := range captchaMarkers {
			if containsFold(marker, m) {
				return true
			}
		}
	}
	for _, phrase := range captchaPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

func hasValidationError(nodes []flatNode, text string) bool {
	for _, f := range nodes {
		n := f.node
		if n.Type != html.ElementNode {
			continue
		}
		class := attr(n, "class")
		for _, c := range validationClasses {
			if containsFold(class, c) && textContent(n) != "" {
				return true
			}
		}
	}
	for _, phrase := range validationPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}
