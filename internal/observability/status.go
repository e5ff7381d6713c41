package observability

import "github.com/pterm/pterm"

// Status is a live spinner line for long-running phases. All methods are
// safe on a Status that failed to start; they fall back to plain prints.
type Status struct {
	spinner *pterm.SpinnerPrinter
}

// StartStatus begins a spinner with the given message.
func StartStatus(message string) *Status {
	spinner, err := pterm.DefaultSpinner.Start(message)
	if err != nil {
		pterm.Info.Println(message)
		return &Status{}
	}
	return &Status{spinner: spinner}
}

// Update replaces the spinner text.
func (s *Status) Update(message string) {
	if s.spinner == nil {
		return
	}
	s.spinner.UpdateText(message)
}

// Success ends the spinner with a success mark.
func (s *Status) Success(message string) {
	if s.spinner == nil {
		pterm.Success.Println(message)
		return
	}
	s.spinner.Success(message)
}

// Fail ends the spinner with a failure mark.
func (s *Status) Fail(message string) {
	if s.spinner == nil {
		pterm.Error.Println(message)
		return
	}
	s.spinner.Fail(message)
}

// Stop ends the spinner without a verdict.
func (s *Status) Stop() {
	if s.spinner == nil {
		return
	}
	_ = s.spinner.Stop()
}
