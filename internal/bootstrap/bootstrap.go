// Package bootstrap reads the starter dataset that seeds the event store.
//
// The dataset is an array of records:
//
//	[{"title": "Team Meeting", "date": "2024-05-01",
//	  "startTime": "09:00", "endTime": "10:00", "color": "#3b82f6"}]
//
// Records that fail validation are skipped and reported; one bad record
// never blocks the rest of the calendar from loading.
package bootstrap

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	appLog "deskcal/internal/log"
	"deskcal/internal/model"
)

// Format selects the dataset encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// MalformedRecordError reports a dataset record that was skipped.
type MalformedRecordError struct {
	// Index is the zero-based position of the record in the dataset.
	Index int
	Err   error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("bootstrap record %d: %v", e.Index, e.Err)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

// Result is what a load produced: the usable events in dataset order plus
// one error per skipped record.
type Result struct {
	Events  []model.Event
	Skipped []*MalformedRecordError
}

// FormatForPath picks the format from the file extension; anything that is
// not .yaml/.yml is treated as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadFile reads and decodes the dataset at path. A missing file is not an
// error: it yields an empty result so the calendar still starts.
func LoadFile(path string) (Result, error) {
	if path == "" {
		return Result{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			appLog.Warn("bootstrap dataset not found; starting empty", "path", path)
			return Result{}, nil
		}
		return Result{}, err
	}
	defer f.Close()

	res, err := Decode(f, FormatForPath(path))
	if err != nil {
		return Result{}, fmt.Errorf("bootstrap %s: %w", path, err)
	}
	appLog.Info("bootstrap dataset loaded", "path", path, "events", len(res.Events), "skipped", len(res.Skipped))
	return res, nil
}

// Decode parses a dataset from r. Only a structurally unreadable document
// (not an array of objects) is an error; individual bad records are skipped.
func Decode(r io.Reader, format Format) (Result, error) {
	raw, err := decodeRaw(r, format)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for i, rec := range raw {
		fields, err := rec.record()
		var ev model.Event
		if err == nil {
			ev, err = fields.Event()
		}
		if err != nil {
			merr := &MalformedRecordError{Index: i, Err: err}
			appLog.Warn("bootstrap: skipping malformed record", "index", i, "reason", err.Error())
			res.Skipped = append(res.Skipped, merr)
			continue
		}
		res.Events = append(res.Events, ev)
	}
	return res, nil
}

// rawRecord keeps each field as loosely typed as the decoder allows so that
// a wrong type in one record (a number for a title, say) marks only that
// record as malformed.
type rawRecord map[string]any

var recordFields = []string{"title", "date", "startTime", "endTime", "color"}

func (r rawRecord) record() (model.Record, error) {
	vals := make(map[string]string, len(recordFields))
	for _, f := range recordFields {
		v, ok := r[f]
		if !ok || v == nil {
			continue
		}
		switch v := v.(type) {
		case string:
			vals[f] = v
		case time.Time:
			// YAML resolves an unquoted 2024-05-01 to a timestamp.
			if f != "date" {
				return model.Record{}, &model.ValidationError{Field: f, Reason: "must be a string, got a timestamp"}
			}
			vals[f] = model.DateOf(v).String()
		default:
			return model.Record{}, &model.ValidationError{Field: f, Reason: fmt.Sprintf("must be a string, got %T", v)}
		}
	}
	return model.Record{
		Title:     vals["title"],
		Date:      vals["date"],
		StartTime: vals["startTime"],
		EndTime:   vals["endTime"],
		Color:     vals["color"],
	}, nil
}

func decodeRaw(r io.Reader, format Format) ([]rawRecord, error) {
	var items []any
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&items); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	default:
		if err := json.NewDecoder(r).Decode(&items); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	}

	out := make([]rawRecord, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			// Keep position so indexes in errors match the file; an empty
			// record fails validation on its title.
			m = map[string]any{}
		}
		out[i] = m
	}
	return out, nil
}
