// Package source loads one day's raw rows per entity.
//
// The on-disk layout is one folder per run date holding one CSV per entity:
//
//	<root>/<run_date>/<entity>_<run_date>.csv
//
// Every cell is kept as raw text; empty cells become nil. Type coercion is
// left to the normalizer so quarantined rows keep exactly what was read.
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/ingest/internal/core"
	"github.com/JonMunkholm/ingest/internal/logging"
)

// Source yields the raw batch for one entity and run date.
type Source interface {
	Load(ctx context.Context, entity string, runDate core.Date) (core.Batch, error)
}

// RawReader returns the unparsed bytes of an entity's raw file.
type RawReader interface {
	ReadRaw(ctx context.Context, entity string, runDate core.Date) ([]byte, error)
}

// FileSource reads day folders from a local directory.
type FileSource struct {
	root string
}

// NewFileSource creates a FileSource rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{root: dir}
}

// Root returns the directory the source reads from.
func (s *FileSource) Root() string {
	return s.root
}

// FileName returns the base name of an entity's raw file.
func FileName(entity string, runDate core.Date) string {
	return fmt.Sprintf("%s_%s.csv", entity, runDate)
}

// Path returns the raw file path for entity on runDate.
func (s *FileSource) Path(entity string, runDate core.Date) string {
	return filepath.Join(s.root, runDate.String(), FileName(entity, runDate))
}

// Open opens the raw file unchanged. The caller must close it.
func (s *FileSource) Open(entity string, runDate core.Date) (*os.File, error) {
	f, err := os.Open(s.Path(entity, runDate))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, core.NewFatalError(core.CodeSourceMissing, entity, "load", err)
		}
		return nil, core.NewFatalError(core.CodeSourceRead, entity, "load", err)
	}
	return f, nil
}

// ReadRaw returns the entity's raw file exactly as stored on disk.
func (s *FileSource) ReadRaw(ctx context.Context, entity string, runDate core.Date) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := s.Open(entity, runDate)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, core.NewFatalError(core.CodeSourceRead, entity, "load", err)
	}
	return data, nil
}

// Load reads and parses the entity's raw file.
// A missing file is a FatalError with CodeSourceMissing.
func (s *FileSource) Load(ctx context.Context, entity string, runDate core.Date) (core.Batch, error) {
	f, err := s.Open(entity, runDate)
	if err != nil {
		return core.Batch{}, err
	}
	defer f.Close()

	counter := &countingReader{r: f}
	rows, err := ReadCSV(ctx, counter)
	if err != nil {
		return core.Batch{}, core.NewFatalError(core.CodeSourceRead, entity, "load", err)
	}

	logging.WithFields(ctx, "entity", entity, "run_date", runDate.String()).Debug("raw file read",
		"path", s.Path(entity, runDate),
		"bytes", counter.n,
		"rows", len(rows),
	)

	return core.Batch{Entity: entity, RunDate: runDate, Rows: rows}, nil
}

// ReadCSV parses a headed CSV stream into raw records.
// Empty cells stay "". Rows shorter than the header leave the trailing fields
// nil; cells past the header are kept under core.ExtraFieldsKey so the row is
// quarantined rather than lost. Stray quotes in unquoted fields are kept as
// text. An empty stream yields no rows.
func ReadCSV(ctx context.Context, r io.Reader) ([]core.RawRecord, error) {
	cr := csv.NewReader(Sanitize(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = append([]string(nil), header...)

	var rows []core.RawRecord
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record %d: %w", n, err)
		}

		row := make(core.RawRecord, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[name] = rec[i]
			} else {
				row[name] = nil
			}
		}
		if len(rec) > len(header) {
			row[core.ExtraFieldsKey] = append([]string(nil), rec[len(header):]...)
		}
		rows = append(rows, row)
	}

	return rows, nil
}
