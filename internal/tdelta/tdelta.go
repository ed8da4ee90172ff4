// Package tdelta renders the relative-time prefixes used when appending notes
// to an experience.
package tdelta

import (
	"fmt"
	"time"
)

// Format returns the offset between now and a reference instant as T±HH:MM.
// The sign is '+' when now is at or past the reference, '-' when the reference
// is still in the future. The magnitude is floored to whole minutes and both
// fields are zero padded. A zero offset is T+00:00.
//
// No timezone conversion happens here; both instants must share an epoch basis.
func Format(ref, now time.Time) string {
	diff := now.Sub(ref)
	sign := "+"
	if diff < 0 {
		sign = "-"
		diff = -diff
	}
	minutes := int64(diff / time.Minute)
	return fmt.Sprintf("T%s%02d:%02d", sign, minutes/60, minutes%60)
}

// Stamp is the fallback note prefix when the experience has no T-zero
// consumption: "HHMM" when now falls on the same calendar day the experience
// was created, otherwise "M-D HHMM". Calendar comparison happens in loc.
func Stamp(expCreated, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	created := expCreated.In(loc)
	local := now.In(loc)

	clock := fmt.Sprintf("%02d%02d", local.Hour(), local.Minute())
	cy, cm, cd := created.Date()
	ny, nm, nd := local.Date()
	if cy == ny && cm == nm && cd == nd {
		return clock
	}
	return fmt.Sprintf("%d-%d %s", int(nm), nd, clock)
}
