package importer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lindale-isd/districtops/internal/mapper"
	"github.com/lindale-isd/districtops/internal/registry"
)

type fakeLedger struct {
	opened      *Session
	closed      bool
	closeStatus SessionStatus
	failures    []RowFailure
	openErr     error
	closeErr    error
}

func (l *fakeLedger) Open(_ context.Context, s Session) (Session, error) {
	if l.openErr != nil {
		return Session{}, l.openErr
	}
	s.ID = "sess-1"
	l.opened = &s
	return s, nil
}

func (l *fakeLedger) Close(_ context.Context, _ string, _, _, _ int, status SessionStatus) error {
	if l.closeErr != nil {
		return l.closeErr
	}
	l.closed = true
	l.closeStatus = status
	return nil
}

func (l *fakeLedger) RecordFailures(_ context.Context, _ string, failures []RowFailure) error {
	l.failures = append(l.failures, failures...)
	return nil
}

type fakeLoader struct {
	vctx *Context
	err  error
}

func (f *fakeLoader) LoadContext(_ context.Context, _ string) (*Context, error) {
	return f.vctx, f.err
}

func studentRunRequest(rows [][]string) RunRequest {
	tpl, _ := registry.Get("students")
	return RunRequest{
		EntityType: "students",
		FileName:   "students.csv",
		Headers:    studentHeaders,
		Rows:       rows,
		Mapping:    mapper.Propose(studentHeaders, tpl),
		Strategy:   StrategySkip,
	}
}

func TestRun_EndToEnd(t *testing.T) {
	w := &fakeWriter{}
	led := &fakeLedger{}
	r := NewRunner(w, led, &fakeLoader{vctx: testContext()}, discardLogger())

	rows := [][]string{
		studentRow(map[string]string{"student_id_number": "200001"}),
		studentRow(map[string]string{"student_id_number": "200002"}),
		studentRow(map[string]string{"student_id_number": "200003", "grade_level": "14"}),
	}
	report, err := r.Run(context.Background(), studentRunRequest(rows))
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}

	if report.Session.SuccessCount != 2 {
		t.Errorf("SuccessCount = %d, want 2", report.Session.SuccessCount)
	}
	if report.Session.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", report.Session.ErrorCount)
	}
	if report.Session.Status != StatusPartial {
		t.Errorf("Status = %q, want partial", report.Session.Status)
	}
	if report.Session.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}
	if got := report.Validation["valid"]; got != 2 {
		t.Errorf("Validation[valid] = %d, want 2", got)
	}
	if got := report.Validation["errors"]; got != 1 {
		t.Errorf("Validation[errors] = %d, want 1", got)
	}

	if len(led.failures) != 1 {
		t.Fatalf("recorded failures = %d, want 1", len(led.failures))
	}
	if led.failures[0].Category != CategoryValidation {
		t.Errorf("failure category = %q, want validation", led.failures[0].Category)
	}
	if !led.closed || led.closeStatus != StatusPartial {
		t.Errorf("ledger closed=%v status=%q, want partial", led.closed, led.closeStatus)
	}
	if led.opened.TotalRows != 3 {
		t.Errorf("session TotalRows = %d, want 3", led.opened.TotalRows)
	}
}

func TestRun_UnknownEntityType(t *testing.T) {
	r := NewRunner(&fakeWriter{}, &fakeLedger{}, &fakeLoader{vctx: testContext()}, discardLogger())

	req := studentRunRequest([][]string{studentRow(nil)})
	req.EntityType = "staff"
	_, err := r.Run(context.Background(), req)

	var unknownErr *registry.UnknownEntityTypeError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("error = %v, want *UnknownEntityTypeError", err)
	}
}

func TestRun_EmptyFileIsFatal(t *testing.T) {
	led := &fakeLedger{}
	r := NewRunner(&fakeWriter{}, led, &fakeLoader{vctx: testContext()}, discardLogger())

	_, err := r.Run(context.Background(), studentRunRequest(nil))

	var parseErr *FileParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want *FileParseError", err)
	}
	if led.opened != nil {
		t.Error("session opened for an empty file")
	}
}

func TestRun_MissingRequiredColumnsIsFatal(t *testing.T) {
	led := &fakeLedger{}
	r := NewRunner(&fakeWriter{}, led, &fakeLoader{vctx: testContext()}, discardLogger())

	tpl, _ := registry.Get("students")
	headers := []string{"Student ID", "First Name", "Last Name"} // no DOB, no grade
	req := RunRequest{
		EntityType: "students",
		FileName:   "partial.csv",
		Headers:    headers,
		Rows:       [][]string{{"200001", "Maria", "Gonzalez"}},
		Mapping:    mapper.Propose(headers, tpl),
		Strategy:   StrategySkip,
	}
	_, err := r.Run(context.Background(), req)

	var missingErr *MissingColumnsError
	if !errors.As(err, &missingErr) {
		t.Fatalf("error = %v, want *MissingColumnsError", err)
	}
	if led.opened != nil {
		t.Error("session opened despite missing required columns")
	}
}

func TestRun_LedgerOpenFailureIsFatal(t *testing.T) {
	w := &fakeWriter{}
	led := &fakeLedger{openErr: errors.New("insert failed")}
	r := NewRunner(w, led, &fakeLoader{vctx: testContext()}, discardLogger())

	_, err := r.Run(context.Background(), studentRunRequest([][]string{studentRow(nil)}))

	var ledgerErr *LedgerError
	if !errors.As(err, &ledgerErr) {
		t.Fatalf("error = %v, want *LedgerError", err)
	}
	if w.insertBatchCalls != 0 {
		t.Error("rows were written despite ledger open failure")
	}
}

func TestRun_CancellationClosesPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := &fakeWriter{}
	led := &fakeLedger{}
	r := NewRunner(w, led, &fakeLoader{vctx: testContext()}, discardLogger(),
		WithBatchSize(2),
		WithProgress(func(done, _ int) {
			if done >= 2 {
				cancel()
			}
		}),
	)

	rows := make([][]string, 6)
	for i := range rows {
		rows[i] = studentRow(map[string]string{"student_id_number": fmt.Sprintf("3000%02d", i)})
	}
	report, err := r.Run(ctx, studentRunRequest(rows))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}

	if report.Session.SuccessCount != 2 {
		t.Errorf("SuccessCount = %d, want 2 (first batch only)", report.Session.SuccessCount)
	}
	if report.Session.Status != StatusPartial {
		t.Errorf("Status = %q, want partial (4 rows never attempted)", report.Session.Status)
	}
	if !led.closed || led.closeStatus != StatusPartial {
		t.Errorf("ledger closed=%v status=%q, want partial", led.closed, led.closeStatus)
	}
}

func TestRun_CancelledBeforeFirstBatchClosesFailed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	led := &fakeLedger{}
	r := NewRunner(&fakeWriter{}, led, &fakeLoader{vctx: testContext()}, discardLogger())

	report, err := r.Run(ctx, studentRunRequest([][]string{studentRow(nil)}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}

	if report.Session.Status != StatusFailed {
		t.Errorf("Status = %q, want failed", report.Session.Status)
	}
	if !led.closed || led.closeStatus != StatusFailed {
		t.Errorf("ledger closed=%v status=%q, want failed", led.closed, led.closeStatus)
	}
}

func TestRun_InvalidStrategyDefaultsToSkip(t *testing.T) {
	// The colliding row must be skipped, proving the run went down the
	// insert path rather than upserting.
	w := &fakeWriter{collideID: "200001"}
	led := &fakeLedger{}
	r := NewRunner(w, led, &fakeLoader{vctx: testContext()}, discardLogger())

	req := studentRunRequest([][]string{studentRow(map[string]string{"student_id_number": "200001"})})
	req.Strategy = Strategy("merge")
	report, err := r.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}

	if report.Session.SkippedCount != 1 {
		t.Errorf("SkippedCount = %d, want 1", report.Session.SkippedCount)
	}
	if w.upsertBatchCalls != 0 {
		t.Errorf("UpsertBatch calls = %d, want 0", w.upsertBatchCalls)
	}
}
