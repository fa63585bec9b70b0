// Package localtime converts between absolute instants and the fleet's
// civil timezone. All schedule comparisons happen in America/Lima, which is
// UTC-5 year round (no DST), so a fixed zone is enough and avoids a tzdata
// dependency on minimal containers.
package localtime

import "time"

// Lima is the canonical civil timezone for every shift-timing comparison.
var Lima = time.FixedZone("America/Lima", -5*60*60)

const civilLayout = "2006-01-02 15:04:05"

// Now returns the current instant.
func Now() time.Time {
	return time.Now()
}

// ToLocal converts an absolute instant to Lima civil time.
func ToLocal(t time.Time) time.Time {
	return t.In(Lima)
}

// ParseLocal interprets a "YYYY-MM-DD HH:MM:SS" civil datetime as Lima time
// and returns the absolute instant.
func ParseLocal(s string) (time.Time, error) {
	return time.ParseInLocation(civilLayout, s, Lima)
}

// FormatLocal renders an instant as a Lima civil datetime string.
func FormatLocal(t time.Time) string {
	return t.In(Lima).Format(civilLayout)
}

// FormatLocalClock renders just the HH:MM clock reading in Lima time.
func FormatLocalClock(t time.Time) string {
	return t.In(Lima).Format("15:04")
}

// SameLocalDay reports whether two instants fall on the same Lima calendar day.
func SameLocalDay(a, b time.Time) bool {
	ay, am, ad := a.In(Lima).Date()
	by, bm, bd := b.In(Lima).Date()
	return ay == by && am == bm && ad == bd
}

// StartOfLocalDay returns midnight of t's Lima calendar day as an instant.
func StartOfLocalDay(t time.Time) time.Time {
	l := t.In(Lima)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, Lima)
}
