package recon

import "testing"

func TestMapStatus(t *testing.T) {
	tests := []struct {
		name   string
		status string
		step   string
		want   CaseStatus
	}{
		// Termination wins regardless of step.
		{"terminated at placement", "Terminated", "DAEP Placement", CaseOverturned},
		{"terminated variant", "Terminated - parent appeal granted", "", CaseOverturned},
		{"terminating", "Terminating", "Return to campus", CaseOverturned},

		{"completed", "Completed", "", CaseCompleted},
		{"completed over step", "Completed", "DAEP Placement", CaseCompleted},

		{"in progress at daep", "In progress", "DAEP Placement", CaseActive},
		{"hyphenated in-progress", "In-progress", "Step 3: DAEP", CaseActive},

		{"returning", "In progress", "Return to campus", CaseReturned},
		{"correction step", "In progress", "Correction period", CaseReturned},

		// The step only counts while the case is in progress.
		{"on hold ignores step", "On hold", "DAEP Placement", CaseUnderReview},
		{"unrecognized status ignores return step", "Open", "Return to campus", CaseUnderReview},
		{"empty status ignores step", "", "DAEP Placement", CaseUnderReview},

		{"unrecognized step", "In progress", "Intake", CaseUnderReview},
		{"empty everything", "", "", CaseUnderReview},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapStatus(tt.status, tt.step); got != tt.want {
				t.Errorf("MapStatus(%q, %q) = %q, want %q", tt.status, tt.step, got, tt.want)
			}
		})
	}
}

func TestMapStatus_CaseInsensitive(t *testing.T) {
	if got := MapStatus("COMPLETED", ""); got != CaseCompleted {
		t.Errorf("MapStatus(COMPLETED) = %q, want completed", got)
	}
	if got := MapStatus("in progress", "  daep  "); got != CaseActive {
		t.Errorf("MapStatus(daep step) = %q, want active", got)
	}
}

func TestConsequenceFor(t *testing.T) {
	tests := []struct {
		iss, oss string
		want     string
	}{
		{"2025-01-06", "", "iss"},
		{"", "2025-01-06", "oss"},
		{"2025-01-06", "2025-01-08", "iss"}, // ISS is the more specific signal
		{"", "", "daep"},
		{"  ", "  ", "daep"},
	}
	for _, tt := range tests {
		if got := ConsequenceFor(tt.iss, tt.oss); got != tt.want {
			t.Errorf("ConsequenceFor(%q, %q) = %q, want %q", tt.iss, tt.oss, got, tt.want)
		}
	}
}

func TestSyntheticID(t *testing.T) {
	tests := []struct {
		last, first string
		grade       int
		want        string
	}{
		{"Doe", "John", 9, "SYN-DOE-JOHN-G09"},
		{"O'Brien ", "Mary-Jane", 11, "SYN-OBRIEN-MARYJANE-G11"},
		{"de la Cruz", "Ana", 0, "SYN-DELACRUZ-ANA-G00"},
		{"doe", "JOHN", 9, "SYN-DOE-JOHN-G09"}, // casing never changes the id
	}
	for _, tt := range tests {
		if got := SyntheticID(tt.last, tt.first, tt.grade); got != tt.want {
			t.Errorf("SyntheticID(%q, %q, %d) = %q, want %q", tt.last, tt.first, tt.grade, got, tt.want)
		}
	}
}

func TestStudentNameKey(t *testing.T) {
	if StudentNameKey("O'Brien", "Mary") != StudentNameKey("OBRIEN ", "mary") {
		t.Error("equivalent names produce different keys")
	}
	if StudentNameKey("Doe", "John") == StudentNameKey("John", "Doe") {
		t.Error("swapped name parts must not collide")
	}
}
