package recon

// synthetic.go derives the deterministic identifier assigned to students
// created from the vendor feed. The feed never carries our local student
// ID numbers, so identity across runs hangs on this derivation being
// stable: the same name and grade always produce the same identifier.

import (
	"fmt"
	"strings"
	"unicode"
)

// SyntheticIDPrefix marks identifiers generated by reconciliation rather
// than assigned by the district's student-information system.
const SyntheticIDPrefix = "SYN"

// SyntheticID derives a stable identifier from a student's normalized
// name plus grade as a discriminator, e.g. "SYN-DOE-JOHN-G09".
func SyntheticID(lastName, firstName string, grade int) string {
	return fmt.Sprintf("%s-%s-%s-G%02d",
		SyntheticIDPrefix,
		normalizeNamePart(lastName),
		normalizeNamePart(firstName),
		grade,
	)
}

// normalizeNamePart upper-cases a name and strips everything that is not
// a letter or digit, so "O'Brien " and "OBrien" collapse to the same key.
func normalizeNamePart(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
