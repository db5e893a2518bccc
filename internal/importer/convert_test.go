package importer

import (
	"testing"
	"time"
)

func TestToPgDate(t *testing.T) {
	tests := []struct {
		input string
		want  string // "" means invalid
	}{
		{"2011-04-17", "2011-04-17"},
		{"04/17/2011", "2011-04-17"},
		{"4/17/2011", "2011-04-17"},
		{"17 Apr 2011", "2011-04-17"},
		{"Apr 17, 2011", "2011-04-17"},
		{"20110417", "2011-04-17"},
		{"4/17/11", "2011-04-17"},
		{"", ""},
		{"not a date", ""},
		{"13/45/2011", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ToPgDate(tt.input)
			if tt.want == "" {
				if got.Valid {
					t.Errorf("ToPgDate(%q).Valid = true, want invalid", tt.input)
				}
				return
			}
			if !got.Valid {
				t.Fatalf("ToPgDate(%q).Valid = false, want valid", tt.input)
			}
			if formatted := got.Time.Format("2006-01-02"); formatted != tt.want {
				t.Errorf("ToPgDate(%q) = %s, want %s", tt.input, formatted, tt.want)
			}
		})
	}
}

func TestToPgDate_TwoDigitYearPivot(t *testing.T) {
	// A 2-digit year far past the pivot belongs to the previous century.
	got := ToPgDate("4/17/85")
	if !got.Valid {
		t.Fatal("ToPgDate(4/17/85).Valid = false, want valid")
	}
	if got.Time.Year() != 1985 {
		t.Errorf("year = %d, want 1985", got.Time.Year())
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		input  string
		want   int
		wantOK bool
	}{
		{"7", 7, true},
		{"-1", -1, true},
		{"0", 0, true},
		{"1,200", 1200, true},
		{"45.0", 45, true},
		{" 12 ", 12, true},
		{"", 0, false},
		{"seven", 0, false},
		{"7.5", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseInt(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseInt(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseInt(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestToPgBool(t *testing.T) {
	trueValues := []string{"true", "T", "yes", "Y", "1"}
	falseValues := []string{"false", "F", "no", "N", "0"}
	invalid := []string{"", "maybe", "2"}

	for _, v := range trueValues {
		if got := ToPgBool(v); !got.Valid || !got.Bool {
			t.Errorf("ToPgBool(%q) = %+v, want valid true", v, got)
		}
	}
	for _, v := range falseValues {
		if got := ToPgBool(v); !got.Valid || got.Bool {
			t.Errorf("ToPgBool(%q) = %+v, want valid false", v, got)
		}
	}
	for _, v := range invalid {
		if got := ToPgBool(v); got.Valid {
			t.Errorf("ToPgBool(%q).Valid = true, want invalid", v)
		}
	}
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello", "hello"},
		{"whitespace", "  hello  ", "hello"},
		{"bom", "\uFEFFhello", "hello"},
		{"excel formula quoted", `="100245"`, "100245"},
		{"excel formula bare", "=100245", "100245"},
		{"surrounding quotes", `"hello"`, "hello"},
		{"single quotes", "'hello'", "hello"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanCell(tt.input); got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMakeHeaderIndex_FirstOccurrenceWins(t *testing.T) {
	idx := MakeHeaderIndex([]string{"Name", "Grade", "name"})

	if got := idx["name"]; got != 0 {
		t.Errorf("idx[name] = %d, want 0 (first occurrence)", got)
	}
	if got := idx["grade"]; got != 1 {
		t.Errorf("idx[grade] = %d, want 1", got)
	}
}

func TestToPgText(t *testing.T) {
	if got := ToPgText("  "); got.Valid {
		t.Error("ToPgText(whitespace).Valid = true, want invalid")
	}
	got := ToPgText(" Lindale ")
	if !got.Valid || got.String != "Lindale" {
		t.Errorf("ToPgText = %+v, want valid %q", got, "Lindale")
	}
}

func TestPlacementKey(t *testing.T) {
	date := ToPgDate("2024-09-03")
	key := PlacementKey(" 100245 ", "DAEP", date)
	want := "100245|daep|2024-09-03"
	if key != want {
		t.Errorf("PlacementKey = %q, want %q", key, want)
	}

	// Same inputs always converge on the same key.
	if again := PlacementKey("100245", "daep", date); again != key {
		t.Errorf("PlacementKey not stable: %q vs %q", key, again)
	}
}

func TestCloseStatus(t *testing.T) {
	tests := []struct {
		success, errors int
		want            SessionStatus
	}{
		{100, 0, StatusCompleted},
		{50, 50, StatusPartial},
		{0, 100, StatusFailed},
		{0, 0, StatusCompleted},
	}
	for _, tt := range tests {
		if got := CloseStatus(tt.success, tt.errors); got != tt.want {
			t.Errorf("CloseStatus(%d, %d) = %q, want %q", tt.success, tt.errors, got, tt.want)
		}
	}
}

func TestTwoDigitPivotUnchanged(t *testing.T) {
	// Recent 2-digit years stay in the current century.
	year := time.Now().Year() % 100
	got := ToPgDate("1/2/" + pad2(year))
	if !got.Valid {
		t.Fatal("expected valid date")
	}
	if got.Time.Year() != time.Now().Year() {
		t.Errorf("year = %d, want %d", got.Time.Year(), time.Now().Year())
	}
}

func pad2(n int) string {
	if n < 10 {
		return "0" + string(rune('0'+n))
	}
	return string(rune('0'+n/10)) + string(rune('0'+n%10))
}
