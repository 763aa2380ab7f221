// Package summary builds the per-run report returned by the ingestion driver.
package summary

import (
	"encoding/json"
	"sort"

	"github.com/JonMunkholm/ingest/internal/core"
)

// EntitySummary is the outcome of one entity in a run.
type EntitySummary struct {
	Entity            string `json:"entity"`
	Total             int    `json:"total"`
	Valid             int    `json:"valid"`
	Invalid           int    `json:"invalid"`
	ValidatedLocator  string `json:"validated_locator"`
	QuarantineLocator string `json:"quarantine_locator"`
	RawLocator        string `json:"raw_locator,omitempty"`
	ValidatedSkipped  bool   `json:"validated_skipped,omitempty"`
	QuarantineSkipped bool   `json:"quarantine_skipped,omitempty"`
}

// RunSummary maps every entity of a run to its counts and artifact locators.
type RunSummary struct {
	RunDate    string                   `json:"run_date"`
	Entities   map[string]EntitySummary `json:"entities"`
	Validated  map[string]string        `json:"validated"`
	Quarantine map[string]string        `json:"quarantine"`
	Raw        map[string]string        `json:"raw,omitempty"`
}

// Build assembles a RunSummary. Later entries for the same entity replace earlier ones.
func Build(runDate core.Date, entities []EntitySummary) RunSummary {
	s := RunSummary{
		RunDate:    runDate.String(),
		Entities:   make(map[string]EntitySummary, len(entities)),
		Validated:  make(map[string]string, len(entities)),
		Quarantine: make(map[string]string, len(entities)),
	}
	for _, e := range entities {
		s.Entities[e.Entity] = e
		s.Validated[e.Entity] = e.ValidatedLocator
		s.Quarantine[e.Entity] = e.QuarantineLocator
		if e.RawLocator != "" {
			if s.Raw == nil {
				s.Raw = make(map[string]string)
			}
			s.Raw[e.Entity] = e.RawLocator
		}
	}
	return s
}

// Names returns the entity names of the summary in sorted order.
func (s RunSummary) Names() []string {
	names := make([]string, 0, len(s.Entities))
	for name := range s.Entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Totals returns row counts summed over every entity.
func (s RunSummary) Totals() (total, valid, invalid int) {
	for _, e := range s.Entities {
		total += e.Total
		valid += e.Valid
		invalid += e.Invalid
	}
	return total, valid, invalid
}

// JSON renders the summary with two-space indentation.
func (s RunSummary) JSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}
