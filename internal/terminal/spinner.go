package terminal

import (
	"context"

	"github.com/yarlson/pin"
)

// Spinner shows progress while a backend call is running. A nil Spinner is
// valid and does nothing, which keeps piped output clean.
type Spinner struct {
	p      *pin.Pin
	cancel context.CancelFunc
}

// NewSpinner creates a spinner with message. It returns nil when quiet.
func NewSpinner(message string, quiet bool) *Spinner {
	if quiet {
		return nil
	}
	return &Spinner{
		p: pin.New(message,
			pin.WithDoneSymbol('✔'),
			pin.WithDoneSymbolColor(pin.ColorGreen),
			pin.WithFailSymbol('✖'),
			pin.WithFailSymbolColor(pin.ColorRed),
		),
	}
}

func (s *Spinner) Start(ctx context.Context) {
	if s == nil {
		return
	}
	s.cancel = s.p.Start(ctx)
}

func (s *Spinner) Stop(message string) {
	if s == nil {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.p.Stop(message)
}

func (s *Spinner) Fail(message string) {
	if s == nil {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.p.Fail(message)
}
