package dashboard

import "sync"

// Element ids the dashboard binds to.
const (
	TargetServices    = "dss"
	TargetNodes       = "cns"
	InputPattern      = "invalidatePattern"
	OutputInvalidate  = "invalidateStatus"
	ButtonInvalidate  = "invalidate"
	RadioServices     = "dsSelected"
	RadioNodes        = "cnSelected"
	emptyPatternAlert = "Please enter a pattern to invalidate."
)

// View is the rendering surface the dashboard writes into. Implementations
// must accept concurrent writes to distinct targets.
type View interface {
	// SetHTML replaces the content of target with markup.
	SetHTML(target, markup string)
	// SetText replaces the content of target with literal text.
	SetText(target, text string)
	// Value reads the current value of an input.
	Value(source string) string
	// Alert shows a blocking message to the user.
	Alert(msg string)
	// Navigate replaces the current page with page.
	Navigate(page string)
}

// PageView is an in-memory View. The HTTP handler renders it into a template
// once all dashboard operations for a request have finished.
type PageView struct {
	mu       sync.Mutex
	html     map[string]string
	text     map[string]string
	inputs   map[string]string
	alert    string
	navigate string
}

// NewPageView returns a PageView whose inputs are pre-filled from values.
func NewPageView(values map[string]string) *PageView {
	inputs := make(map[string]string, len(values))
	for k, v := range values {
		inputs[k] = v
	}
	return &PageView{
		html:   make(map[string]string),
		text:   make(map[string]string),
		inputs: inputs,
	}
}

func (p *PageView) SetHTML(target, markup string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.text, target)
	p.html[target] = markup
}

func (p *PageView) SetText(target, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.html, target)
	p.text[target] = text
}

func (p *PageView) Value(source string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inputs[source]
}

func (p *PageView) Alert(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alert = msg
}

func (p *PageView) Navigate(page string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigate = page
}

// HTML returns the markup last written to target.
func (p *PageView) HTML(target string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html[target]
}

// Text returns the text last written to target.
func (p *PageView) Text(target string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.text[target]
}

// AlertMessage returns the pending alert, if any.
func (p *PageView) AlertMessage() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.alert
}

// NavigatedTo returns the page requested by Navigate, if any.
func (p *PageView) NavigatedTo() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.navigate
}
