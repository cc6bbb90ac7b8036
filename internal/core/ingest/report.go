package ingest

import (
	"time"
)

const (
	KindObject       = "object"
	KindRelationship = "relationship"
)

// Reasons a row was not written.
const (
	SkipValidation         = "validation"
	SkipMalformed          = "malformed"
	SkipUnknownType        = "unknown_type"
	SkipAmbiguity          = "resolution_ambiguity"
	SkipMissingEndpoint    = "missing_endpoint"
	SkipEndpointTypeFailed = "endpoint_type_failed"
)

// FileReport is the outcome of one dataset file.
type FileReport struct {
	File    string         `json:"file"`
	Kind    string         `json:"kind"`
	Type    string         `json:"type"`
	Hash    string         `json:"hash,omitempty"`
	Missing bool           `json:"missing,omitempty"`
	Rows    int            `json:"rows"`
	Written int            `json:"written"`
	Skipped map[string]int `json:"skipped"`
	Err     string         `json:"error,omitempty"`

	err error
}

func newFileReport(file, kind, typ string) *FileReport {
	return &FileReport{File: file, Kind: kind, Type: typ, Skipped: make(map[string]int)}
}

func (f *FileReport) fail(err error) {
	f.err = err
	f.Err = err.Error()
}

// Error returns the failure that aborted the file, if any.
func (f *FileReport) Error() error { return f.err }

func (f *FileReport) SkippedTotal() int {
	n := 0
	for _, c := range f.Skipped {
		n += c
	}
	return n
}

// Report is the outcome of one ingestion run.
type Report struct {
	RunID      string        `json:"run_id"`
	Source     string        `json:"source"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Files      []*FileReport `json:"files"`
}

type Totals struct {
	Files   int `json:"files"`
	Failed  int `json:"failed"`
	Rows    int `json:"rows"`
	Written int `json:"written"`
	Skipped int `json:"skipped"`
}

func (r *Report) Totals() Totals {
	var t Totals
	for _, f := range r.Files {
		if f.Missing {
			continue
		}
		t.Files++
		if f.err != nil {
			t.Failed++
		}
		t.Rows += f.Rows
		t.Written += f.Written
		t.Skipped += f.SkippedTotal()
	}
	return t
}

// File returns the report for the named dataset, or nil.
func (r *Report) File(name string) *FileReport {
	for _, f := range r.Files {
		if f.File == name {
			return f
		}
	}
	return nil
}
