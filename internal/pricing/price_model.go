// Package pricing derives quotes from a Selection and the Catalog. Nothing here keeps
// state: totals are recomputed on every call.
package pricing

import (
	"errors"
	"fmt"

	d "github.com/M2labo/mm-lp-page/internal/domain"
)

var ErrInvalidSelection = errors.New("invalid selection")

// Line is one row of the price breakdown.
type Line struct {
	Kind     string `json:"kind"` // base, work or option
	Key      string `json:"key,omitempty"`
	Price    int64  `json:"price"`
	Selected bool   `json:"selected"`
}

// ComputeTotal returns base + work price + the price of every selected option.
func ComputeTotal(selection d.Selection, catalog *d.Catalog) (int64, error) {
	work, ok := catalog.Work(selection.Work)
	if !ok {
		return 0, fmt.Errorf("%w: unknown work %q", ErrInvalidSelection, selection.Work)
	}

	total := catalog.Base() + work.Price
	for key, selected := range selection.Options {
		option, ok := catalog.Option(key)
		if !ok {
			return 0, fmt.Errorf("%w: unknown option %q", ErrInvalidSelection, key)
		}
		if selected {
			total += option.Price
		}
	}
	return total, nil
}

// Breakdown lists the base price, the chosen work and every catalog option. Unselected
// options are listed with Selected=false so the summary always shows the full menu.
func Breakdown(selection d.Selection, catalog *d.Catalog) ([]Line, int64, error) {
	total, err := ComputeTotal(selection, catalog)
	if err != nil {
		return nil, 0, err
	}

	work, _ := catalog.Work(selection.Work)
	lines := []Line{
		{Kind: "base", Price: catalog.Base(), Selected: true},
		{Kind: "work", Key: work.Key, Price: work.Price, Selected: true},
	}
	for _, option := range catalog.Options() {
		lines = append(lines, Line{
			Kind:     "option",
			Key:      option.Key,
			Price:    option.Price,
			Selected: selection.Options[d.OptionKey(option.Key)],
		})
	}
	return lines, total, nil
}

// ValidateSelection checks every key of the selection against the catalog, including
// the color, which does not influence the price.
func ValidateSelection(selection d.Selection, catalog *d.Catalog) error {
	if _, err := ComputeTotal(selection, catalog); err != nil {
		return err
	}
	if selection.Color != "" && !catalog.HasColor(selection.Color) {
		return fmt.Errorf("%w: unknown color %q", ErrInvalidSelection, selection.Color)
	}
	return nil
}
