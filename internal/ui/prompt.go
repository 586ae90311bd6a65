package ui

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/manifoldco/promptui"
)

// ErrCancelled is returned when the user aborts a prompt
var ErrCancelled = errors.New("cancelled by user")

// ConfirmPrompt asks a yes/no confirmation question
func ConfirmPrompt(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}

	result, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		if errors.Is(err, promptui.ErrInterrupt) {
			return false, ErrCancelled
		}
		return false, err
	}

	// promptui returns "y" for yes
	return strings.EqualFold(result, "y"), nil
}

// AcknowledgePrompt blocks until the user presses Enter
func AcknowledgePrompt(label string) error {
	prompt := promptui.Prompt{
		Label:       label,
		HideEntered: true,
	}
	if _, err := prompt.Run(); err != nil && !errors.Is(err, promptui.ErrAbort) {
		return err
	}
	return nil
}

// SelectOption is an item of SelectPromptDetailed
type SelectOption struct {
	Label  string
	Detail string
	Value  string
}

func (o SelectOption) searchText() string {
	return o.Label + " " + o.Detail
}

// MatchOption reports whether input fuzzily matches the option label or detail
func MatchOption(input string, option SelectOption) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return true
	}
	return fuzzy.MatchNormalizedFold(input, option.searchText())
}

// FilterOptions returns the options matching query, best match first
func FilterOptions(query string, options []SelectOption) []SelectOption {
	query = strings.TrimSpace(query)
	if query == "" {
		return options
	}

	targets := make([]string, len(options))
	for i, o := range options {
		targets[i] = o.searchText()
	}

	ranks := fuzzy.RankFindNormalizedFold(query, targets)
	sort.Stable(ranks)

	filtered := make([]SelectOption, 0, len(ranks))
	for _, r := range ranks {
		filtered = append(filtered, options[r.OriginalIndex])
	}
	return filtered
}

// SelectPromptDetailed presents options with details and fuzzy search
func SelectPromptDetailed(label string, options []SelectOption) (int, SelectOption, error) {
	if len(options) == 0 {
		return -1, SelectOption{}, fmt.Errorf("nothing to select")
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}?",
		Active:   "▸ {{ .Label | cyan }} ({{ .Detail | faint }})",
		Inactive: "  {{ .Label | faint }} ({{ .Detail | faint }})",
		Selected: "▸ {{ .Label | green }}",
	}

	prompt := promptui.Select{
		Label:     label,
		Items:     options,
		Templates: templates,
		Size:      min(10, len(options)),
		Searcher: func(input string, index int) bool {
			return MatchOption(input, options[index])
		},
	}

	index, _, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return -1, SelectOption{}, ErrCancelled
		}
		return -1, SelectOption{}, err
	}

	return index, options[index], nil
}

// ValidateNonEmpty validates that input is not empty
func ValidateNonEmpty(input string) error {
	if len(strings.TrimSpace(input)) == 0 {
		return errors.New("input cannot be empty")
	}
	return nil
}
