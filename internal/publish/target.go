package publish

import (
	"fmt"
	"path"
	"strings"

	"github.com/JonMunkholm/ingest/internal/core"
)

// Kind names the dataset an artifact belongs to.
type Kind string

const (
	KindValidated  Kind = "validated"
	KindQuarantine Kind = "quarantine"
)

// Kinds lists every dataset published per entity and run.
var Kinds = []Kind{KindValidated, KindQuarantine}

// Target addresses one artifact. Keys are a pure function of the target.
type Target struct {
	Kind    Kind
	Entity  string
	RunDate core.Date
}

// Key returns <kind>_raw/<entity>/<entity>_<run_date>_<kind>.csv.
func (t Target) Key() string {
	return fmt.Sprintf("%s_raw/%s/%s_%s_%s.csv", t.Kind, t.Entity, t.Entity, t.RunDate, t.Kind)
}

func (t Target) String() string {
	return string(t.Kind) + ":" + t.Entity + ":" + t.RunDate.String()
}

// RawKey returns <prefix>/<run_date>/<entity>_<run_date>.csv for raw file copies.
func RawKey(prefix, entity string, runDate core.Date) string {
	name := fmt.Sprintf("%s_%s.csv", entity, runDate)
	return path.Join(strings.Trim(prefix, "/"), runDate.String(), name)
}
