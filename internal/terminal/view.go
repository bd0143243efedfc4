// Package terminal renders dashboard output on a terminal.
package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// View collects dashboard output and prints it in a fixed order once all
// operations are done. Alerts go straight to the error stream.
type View struct {
	mu       sync.Mutex
	out      io.Writer
	errOut   io.Writer
	inputs   map[string]string
	sections map[string]string
	nav      string
}

// NewView returns a View reading inputs from values.
func NewView(out, errOut io.Writer, values map[string]string) *View {
	return &View{
		out:      out,
		errOut:   errOut,
		inputs:   values,
		sections: make(map[string]string),
	}
}

func (v *View) SetHTML(target, markup string) {
	v.SetText(target, markup)
}

func (v *View) SetText(target, text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sections[target] = text
}

func (v *View) Value(source string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.inputs[source]
}

func (v *View) Alert(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.errOut, msg)
}

func (v *View) Navigate(page string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nav = page
}

// Page returns the page passed to Navigate.
func (v *View) Page() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.nav
}

// Flush prints the given targets in order, separated by blank lines.
// Targets nothing was written to are skipped.
func (v *View) Flush(targets ...string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	var parts []string
	for _, t := range targets {
		if s, ok := v.sections[t]; ok {
			parts = append(parts, strings.TrimRight(s, "\n"))
		}
	}
	if len(parts) == 0 {
		return nil
	}
	_, err := fmt.Fprintln(v.out, strings.Join(parts, "\n\n"))
	return err
}
