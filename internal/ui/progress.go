package ui

import (
	"io"

	"github.com/schollz/progressbar/v3"
)

// Spinner wraps an indeterminate progressbar/v3 bar
type Spinner struct {
	bar *progressbar.ProgressBar
}

// NewSpinner creates a spinner for unknown-length operations such as a scan.
// A nil writer disables rendering.
func NewSpinner(w io.Writer, description string) *Spinner {
	if w == nil {
		w = io.Discard
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(10),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &Spinner{bar: bar}
}

// Tick advances the spinner by one step
func (s *Spinner) Tick() {
	_ = s.bar.Add(1)
}

// Describe changes the spinner description
func (s *Spinner) Describe(description string) {
	s.bar.Describe(description)
}

// Finish stops and clears the spinner
func (s *Spinner) Finish() error {
	if err := s.bar.Finish(); err != nil {
		return err
	}
	return s.bar.Clear()
}
