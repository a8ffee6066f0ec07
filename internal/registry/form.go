package registry

import (
	"math"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// SearchForm is everything needed to replay the register's search form.
type SearchForm struct {
	Action       *url.URL
	Method       string
	LicenceField string
	Hidden       url.Values
	SubmitName   string
	SubmitValue  string
	// Strategy names the discovery layer that located the licence input.
	Strategy string
}

// Values returns the submission body for a licence number.
func (f *SearchForm) Values(licence string) url.Values {
	v := url.Values{}
	for k, vals := range f.Hidden {
		v[k] = append([]string(nil), vals...)
	}
	v.Set(f.LicenceField, licence)
	if f.SubmitName != "" {
		v.Set(f.SubmitName, f.SubmitValue)
	}
	return v
}

// Discovery layers, tried in order.
const (
	StrategyAttribute = "attribute"
	StrategyLabel     = "label"
	StrategyName      = "name_substring"
	StrategyHint      = "hint_proximity"
)

var nameSubstrings = []string{"licen", "sia"}

// FindSearchForm locates the licence-number input and its enclosing form.
func (p *HTMLParser) FindSearchForm(doc *html.Node, page *url.URL) (*SearchForm, error) {
	nodes := flatten(doc)

	input, strategy := p.findByAttribute(nodes), StrategyAttribute
	if input == nil {
		input, strategy = p.findByLabel(doc, nodes), StrategyLabel
	}
	if input == nil {
		input, strategy = findByNameSubstring(nodes), StrategyName
	}
	if input == nil {
		input, strategy = p.findByHint(nodes), StrategyHint
	}
	if input == nil {
		return nil, ErrFormNotFound
	}

	field := attr(input, "name")
	if field == "" {
		return nil, ErrFormNotFound
	}

	// Scope is the enclosing form; some server-rendered pages wrap the whole
	// body in one form, others have none and post the page to itself.
	scope := ancestor(input, atom.Form)
	if scope == nil {
		scope = doc
	}

	form := &SearchForm{
		Action:       page,
		Method:       http.MethodPost,
		LicenceField: field,
		Hidden:       harvestHidden(scope),
		Strategy:     strategy,
	}
	if isElement(scope, atom.Form) {
		if action := strings.TrimSpace(attr(scope, "action")); action != "" {
			if u, err := page.Parse(action); err == nil {
				form.Action = u
			}
		}
		if strings.EqualFold(attr(scope, "method"), http.MethodGet) {
			form.Method = http.MethodGet
		}
	}

	if submit := pickSubmit(scope, input); submit != nil {
		form.SubmitName = attr(submit, "name")
		form.SubmitValue = attr(submit, "value")
		if form.SubmitValue == "" && isElement(submit, atom.Button) {
			form.SubmitValue = textContent(submit)
		}
		if action := strings.TrimSpace(attr(submit, "formaction")); action != "" {
			if u, err := page.Parse(action); err == nil {
				form.Action = u
			}
		}
	}
	return form, nil
}

// findByAttribute matches the configured input names exactly against name and id.
func (p *HTMLParser) findByAttribute(nodes []flatNode) *html.Node {
	for _, want := range p.InputNames {
		for _, f := range nodes {
			n := f.node
			if !isTextInput(n) {
				continue
			}
			if strings.EqualFold(attr(n, "name"), want) || strings.EqualFold(attr(n, "id"), want) {
				return n
			}
		}
	}
	return nil
}

// findByLabel follows <label> elements (and label-like attributes) whose text
// mentions a hint phrase.
func (p *HTMLParser) findByLabel(doc *html.Node, nodes []flatNode) *html.Node {
	for _, f := range nodes {
		n := f.node
		if !isElement(n, atom.Label) || !p.mentionsHint(textContent(n)) {
			continue
		}
		if target := findElementByID(doc, attr(n, "for")); target != nil && isTextInput(target) {
			return target
		}
		for _, inner := range flatten(n) {
			if isTextInput(inner.node) {
				return inner.node
			}
		}
	}
	for _, f := range nodes {
		n := f.node
		if !isTextInput(n) {
			continue
		}
		if p.mentionsHint(attr(n, "aria-label")) || p.mentionsHint(attr(n, "placeholder")) || p.mentionsHint(attr(n, "title")) {
			return n
		}
	}
	return nil
}

// findByNameSubstring guesses from field names such as "ctl00$LicNoTxt".
func findByNameSubstring(nodes []flatNode) *html.Node {
	for _, sub := range nameSubstrings {
		for _, f := range nodes {
			n := f.node
			if !isTextInput(n) {
				continue
			}
			if containsFold(attr(n, "name"), sub) || containsFold(attr(n, "id"), sub) {
				return n
			}
		}
	}
	return nil
}

// findByHint takes the first text input after any text mentioning a hint phrase.
func (p *HTMLParser) findByHint(nodes []flatNode) *html.Node {
	for i, f := range nodes {
		if f.node.Type != html.TextNode || insideIgnored(f.node) || !p.mentionsHint(f.node.Data) {
			continue
		}
		for _, next := range nodes[i+1:] {
			if isTextInput(next.node) {
				return next.node
			}
		}
	}
	return nil
}

func (p *HTMLParser) mentionsHint(s string) bool {
	s = normalizeSpace(s)
	if s == "" {
		return false
	}
	for _, hint := range p.HintTexts {
		if containsFold(s, hint) {
			return true
		}
	}
	return false
}

// harvestHidden collects every named hidden input in scope, which carries the
// session and anti-forgery tokens the register expects back.
func harvestHidden(scope *html.Node) url.Values {
	v := url.Values{}
	for _, f := range flatten(scope) {
		n := f.node
		if !isElement(n, atom.Input) || !strings.EqualFold(attr(n, "type"), "hidden") {
			continue
		}
		if name := attr(n, "name"); name != "" {
			v.Add(name, attr(n, "value"))
		}
	}
	return v
}

// pickSubmit chooses the control that submits the licence search when the
// scope holds several (search by name, clear, language toggles).
func pickSubmit(scope, input *html.Node) *html.Node {
	nodes := flatten(scope)
	inputAt := -1
	for i, f := range nodes {
		if f.node == input {
			inputAt = i
			break
		}
	}

	var best *html.Node
	bestScore := math.MinInt
	for i, f := range nodes {
		n := f.node
		if !isSubmitControl(n) {
			continue
		}
		label := strings.Join([]string{attr(n, "value"), attr(n, "name"), attr(n, "id"), textContent(n)}, " ")
		score := 0
		for _, word := range []string{"search", "find", "check", "submit"} {
			if containsFold(label, word) {
				score += 3
				break
			}
		}
		for _, word := range []string{"clear", "reset", "cancel", "back"} {
			if containsFold(label, word) {
				score -= 5
				break
			}
		}
		if inputAt >= 0 && i > inputAt {
			score += 2
		}
		if score > bestScore {
			best, bestScore = n, score
		}
	}
	return best
}

func isSubmitControl(n *html.Node) bool {
	if n.Type != html.ElementNode || hasAttr(n, "disabled") {
		return false
	}
	switch n.DataAtom {
	case atom.Input:
		t := strings.ToLower(attr(n, "type"))
		return t == "submit" || t == "image"
	case atom.Button:
		t := strings.ToLower(attr(n, "type"))
		return t == "" || t == "submit"
	}
	return false
}
