package recon

import "strings"

// CaseStatus is the internal lifecycle state of a disciplinary case.
type CaseStatus string

const (
	CaseOverturned  CaseStatus = "overturned"
	CaseCompleted   CaseStatus = "completed"
	CaseActive      CaseStatus = "active"
	CaseReturned    CaseStatus = "returned"
	CaseUnderReview CaseStatus = "under_review"
)

// statusRule is one row of the ordered status decision table.
type statusRule struct {
	name   string
	match  func(status, step string) bool
	result CaseStatus
}

// inProgress reports whether the vendor status marks an open case. Only
// open cases consult the step; any other unrecognized status falls
// through to the catch-all regardless of step.
func inProgress(status string) bool {
	return strings.Contains(status, "progress")
}

// statusTable maps the vendor's status/step vocabulary onto internal
// lifecycle states. Evaluated top to bottom, first match wins. A
// terminated case maps to overturned no matter what step it sits on.
// The final row is a deliberate catch-all: a case with no recognizable
// status, or an in-progress case with no recognizable step, stays under
// review rather than guessing.
var statusTable = []statusRule{
	{
		name:   "terminated",
		match:  func(status, _ string) bool { return strings.Contains(status, "terminat") },
		result: CaseOverturned,
	},
	{
		name:   "completed",
		match:  func(status, _ string) bool { return strings.Contains(status, "complet") },
		result: CaseCompleted,
	},
	{
		name:   "in progress at placement",
		match:  func(status, step string) bool { return inProgress(status) && strings.Contains(step, "daep") },
		result: CaseActive,
	},
	{
		name: "returning to campus",
		match: func(status, step string) bool {
			return inProgress(status) && (strings.Contains(step, "return") || strings.Contains(step, "correct"))
		},
		result: CaseReturned,
	},
	{
		name:   "default",
		match:  func(_, _ string) bool { return true },
		result: CaseUnderReview,
	},
}

// MapStatus resolves the vendor status/step pair to an internal case
// status via the decision table.
func MapStatus(status, step string) CaseStatus {
	status = strings.ToLower(strings.TrimSpace(status))
	step = strings.ToLower(strings.TrimSpace(step))
	for _, rule := range statusTable {
		if rule.match(status, step) {
			return rule.result
		}
	}
	return CaseUnderReview
}

// ConsequenceFor picks the placement type from the vendor's consequence
// date fields, most specific populated field first.
func ConsequenceFor(firstDayISS, firstDayOSS string) string {
	switch {
	case strings.TrimSpace(firstDayISS) != "":
		return "iss"
	case strings.TrimSpace(firstDayOSS) != "":
		return "oss"
	default:
		return "daep"
	}
}
