package recon

// Package recon ingests the case-management vendor's periodic export and
// reconciles it against local data. The feed's layout is fixed, so there
// is no column-mapping step; rows are processed one at a time because the
// feed is small and every row touches reference data.
//
// Idempotency rests on two anchors: the vendor's instance id, remembered
// per case across runs, and the deterministic synthetic student id, so a
// re-import of an identical file creates no new records.

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lindale-isd/districtops/internal/importer"
)

// Vendor feed column names. These are bit-exact: the vendor's export
// tooling is not configurable, inconsistent casing and all.
const (
	ColInstanceID    = "Instance ID"
	ColFirstName     = "First_Name"
	ColLastName      = "Last_Name"
	ColCampus        = "Campus"
	ColStatus        = "Status"
	ColCurrentStep   = "Current step"
	ColCurrentStage  = "Current stage"
	ColViolationDate = "Date_of_Violation"
	ColReferralDate  = "Referral_Date"
	ColGrade         = "Grade"
	ColGender        = "Gender"
	ColNumber        = "Number"
	ColFirstDayISS   = "First_Day_of_ISS"
	ColFirstDayOSS   = "First_Day_OSS"
	ColLastDAEPDate  = "Last_Date_of_Enrollment_at_DAEP"
)

// RequiredColumns must all be present in the feed header; their absence
// means the upload is not a vendor export at all and the run aborts.
var RequiredColumns = []string{ColInstanceID, ColFirstName, ColLastName}

// EntityType is the ledger entity type for reconciliation sessions.
const EntityType = "external_cases"

// Case is one reconciled disciplinary case, keyed by the vendor's
// instance id.
type Case struct {
	ForeignInstanceID string
	StudentID         pgtype.UUID
	Status            CaseStatus
	PlacementType     string
	RawStatus         pgtype.Text
	RawStep           pgtype.Text
	RawStage          pgtype.Text
	ViolationDate     pgtype.Date
	ReferralDate      pgtype.Date
	DaysAssigned      pgtype.Int4
	FirstDayISS       pgtype.Date
	FirstDayOSS       pgtype.Date
	LastDAEPDate      pgtype.Date
}

// Snapshot is the reference data one reconciliation run resolves against,
// fetched once up front.
type Snapshot struct {
	// StudentIDByName maps normalized "last|first" name pairs to ids.
	StudentIDByName map[string]pgtype.UUID

	// CampusIDByName maps normalized campus names to ids.
	CampusIDByName map[string]pgtype.UUID

	// CaseIDByForeignID maps vendor instance ids to case ids for every
	// case any previous run has linked.
	CaseIDByForeignID map[string]pgtype.UUID
}

// StudentNameKey builds the natural-key string for StudentIDByName.
func StudentNameKey(lastName, firstName string) string {
	return normalizeNamePart(lastName) + "|" + normalizeNamePart(firstName)
}

// Store is the persistence surface of the adapter.
type Store interface {
	// LoadSnapshot fetches the run's reference data in one consistent read.
	LoadSnapshot(ctx context.Context) (*Snapshot, error)

	// CreateStudent inserts a student fabricated from feed data and
	// returns its id.
	CreateStudent(ctx context.Context, rec *importer.StudentRecord) (pgtype.UUID, error)

	// InsertCase inserts a new case with its vendor link and returns the
	// case id.
	InsertCase(ctx context.Context, c Case) (pgtype.UUID, error)

	// UpdateCase updates a previously linked case in place.
	UpdateCase(ctx context.Context, caseID pgtype.UUID, c Case) error
}

// Adapter drives one reconciliation run.
type Adapter struct {
	store  Store
	ledger importer.Ledger
	logger *slog.Logger
}

// NewAdapter builds an Adapter over the given store and session ledger.
func NewAdapter(store Store, ledger importer.Ledger, logger *slog.Logger) *Adapter {
	return &Adapter{store: store, ledger: ledger, logger: logger}
}

// Result is the aggregate outcome of a reconciliation run, shaped like
// the generic ingestor's result so both paths share reporting.
type Result struct {
	Session         importer.Session `json:"session"`
	SuccessCount    int              `json:"successCount"`
	ErrorCount      int              `json:"errorCount"`
	SkippedCount    int              `json:"skippedCount"`
	CreatedStudents int              `json:"createdStudents"`
}

// Run reconciles one parsed vendor export. Fatal errors (missing key
// columns, snapshot load, ledger open) abort before any write; per-row
// problems are recorded on the session and do not stop the run.
func (a *Adapter) Run(ctx context.Context, fileName string, headers []string, rows [][]string) (Result, error) {
	idx := importer.MakeHeaderIndex(headers)
	if missing := missingColumns(idx); len(missing) > 0 {
		return Result{}, &importer.MissingColumnsError{Columns: missing}
	}

	if len(rows) == 0 {
		return Result{}, &importer.FileParseError{Reason: "empty file: no data rows below the header"}
	}

	snap, err := a.store.LoadSnapshot(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("loading reconciliation snapshot: %w", err)
	}

	session, err := a.ledger.Open(ctx, importer.Session{
		EntityType: EntityType,
		FileName:   fileName,
		Strategy:   importer.StrategyUpsert,
		TotalRows:  len(rows),
		Status:     importer.StatusProcessing,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		return Result{}, &importer.LedgerError{Op: "open", Err: err}
	}

	result := Result{Session: session}
	var failures []importer.RowFailure

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			break
		}

		line := i + 2
		fail := a.reconcileRow(ctx, idx, row, snap, &result)
		if fail != nil {
			fail.Line = line
			fail.Raw = row
			result.ErrorCount++
			failures = append(failures, *fail)
		}
	}

	// Ledger writes run on a detached context so a cancelled run still
	// gets its audit record.
	closeCtx := context.WithoutCancel(ctx)

	if len(failures) > 0 {
		if err := a.ledger.RecordFailures(closeCtx, session.ID, failures); err != nil {
			a.logger.Error("recording reconciliation failures failed",
				slog.String("session_id", session.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	status := importer.CloseStatus(result.SuccessCount, result.ErrorCount)
	if ctx.Err() != nil {
		// A cancelled run never closes as completed: rows past the
		// cancellation point were never attempted.
		status = importer.StatusPartial
		if result.SuccessCount == 0 {
			status = importer.StatusFailed
		}
	}
	if err := a.ledger.Close(closeCtx, session.ID, result.SuccessCount, result.ErrorCount, result.SkippedCount, status); err != nil {
		return result, &importer.LedgerError{Op: "close", Err: err}
	}

	result.Session.Status = status
	result.Session.SuccessCount = result.SuccessCount
	result.Session.ErrorCount = result.ErrorCount
	result.Session.SkippedCount = result.SkippedCount

	a.logger.Info("reconciliation run finished",
		slog.String("session_id", session.ID),
		slog.String("status", string(status)),
		slog.Int("success", result.SuccessCount),
		slog.Int("errors", result.ErrorCount),
		slog.Int("skipped", result.SkippedCount),
		slog.Int("created_students", result.CreatedStudents),
	)

	return result, ctx.Err()
}

// reconcileRow processes one feed row. A nil return means the row was
// upserted or skipped; a non-nil RowFailure means it errored.
func (a *Adapter) reconcileRow(ctx context.Context, idx importer.HeaderIndex, row []string, snap *Snapshot, result *Result) *importer.RowFailure {
	cell := func(col string) string {
		i, ok := idx[importer.NormalizeName(col)]
		if !ok || i >= len(row) {
			return ""
		}
		return importer.CleanCell(row[i])
	}

	instanceID := cell(ColInstanceID)
	if instanceID == "" {
		// Non-actionable, not an error: the vendor emits header-like and
		// summary rows with no instance id.
		result.SkippedCount++
		return nil
	}

	firstName := cell(ColFirstName)
	lastName := cell(ColLastName)
	if firstName == "" || lastName == "" {
		return &importer.RowFailure{
			Category: importer.CategoryValidation,
			Messages: []string{"row has an instance id but no student name"},
		}
	}

	studentID, fail := a.resolveStudent(ctx, cell, firstName, lastName, snap, result)
	if fail != nil {
		return fail
	}

	c := Case{
		ForeignInstanceID: instanceID,
		StudentID:         studentID,
		Status:            MapStatus(cell(ColStatus), cell(ColCurrentStep)),
		PlacementType:     ConsequenceFor(cell(ColFirstDayISS), cell(ColFirstDayOSS)),
		RawStatus:         importer.ToPgText(cell(ColStatus)),
		RawStep:           importer.ToPgText(cell(ColCurrentStep)),
		RawStage:          importer.ToPgText(cell(ColCurrentStage)),
		ViolationDate:     importer.ToPgDate(cell(ColViolationDate)),
		ReferralDate:      importer.ToPgDate(cell(ColReferralDate)),
		FirstDayISS:       importer.ToPgDate(cell(ColFirstDayISS)),
		FirstDayOSS:       importer.ToPgDate(cell(ColFirstDayOSS)),
		LastDAEPDate:      importer.ToPgDate(cell(ColLastDAEPDate)),
	}
	if days, ok := importer.ParseInt(cell(ColNumber)); ok {
		c.DaysAssigned = pgtype.Int4{Int32: int32(days), Valid: true}
	}

	if caseID, seen := snap.CaseIDByForeignID[instanceID]; seen {
		if err := a.store.UpdateCase(ctx, caseID, c); err != nil {
			return &importer.RowFailure{
				Category: importer.CategoryWrite,
				Messages: []string{fmt.Sprintf("updating case %s: %v", instanceID, err)},
			}
		}
	} else {
		caseID, err := a.store.InsertCase(ctx, c)
		if err != nil {
			return &importer.RowFailure{
				Category: importer.CategoryWrite,
				Messages: []string{fmt.Sprintf("inserting case %s: %v", instanceID, err)},
			}
		}
		snap.CaseIDByForeignID[instanceID] = caseID
	}

	result.SuccessCount++
	return nil
}

// resolveStudent finds the feed row's student by name, creating one with
// a synthetic id when the row carries enough data to do so safely.
func (a *Adapter) resolveStudent(ctx context.Context, cell func(string) string, firstName, lastName string, snap *Snapshot, result *Result) (pgtype.UUID, *importer.RowFailure) {
	nameKey := StudentNameKey(lastName, firstName)
	if id, ok := snap.StudentIDByName[nameKey]; ok {
		return id, nil
	}

	// Creating a student requires a resolvable campus; fabricating one
	// with a dangling campus reference is worse than reporting the row.
	campusName := cell(ColCampus)
	campusID, ok := snap.CampusIDByName[importer.NormalizeName(campusName)]
	if !ok {
		return pgtype.UUID{}, &importer.RowFailure{
			Category: importer.CategoryReference,
			Messages: []string{fmt.Sprintf("student %s, %s not found and campus %q does not resolve", lastName, firstName, campusName)},
		}
	}

	grade, _ := importer.ParseInt(cell(ColGrade))
	rec := &importer.StudentRecord{
		StudentIDNumber: SyntheticID(lastName, firstName, grade),
		FirstName:       firstName,
		LastName:        lastName,
		GradeLevel:      grade,
		CampusID:        campusID,
		Gender:          importer.ToPgText(cell(ColGender)),
	}

	id, err := a.store.CreateStudent(ctx, rec)
	if err != nil {
		return pgtype.UUID{}, &importer.RowFailure{
			Category: importer.CategoryWrite,
			Messages: []string{fmt.Sprintf("creating student %s, %s: %v", lastName, firstName, err)},
		}
	}

	snap.StudentIDByName[nameKey] = id
	result.CreatedStudents++
	return id, nil
}

func missingColumns(idx importer.HeaderIndex) []string {
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := idx[importer.NormalizeName(col)]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}
