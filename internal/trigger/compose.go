package trigger

import (
	"fmt"
	"strings"

	"github.com/large-farva/fast-trigger/internal/astro"
)

// TimingASAP is the only timing tag this system requests.
const TimingASAP = "ASAP"

// AlertFields are the inputs of the notification body.
type AlertFields struct {
	TargetName string
	Coords     astro.Equatorial
	Duration   int // seconds
	Requester  string
	Comment    string
	Action     string
}

// ComposeAlert renders the notification body. Field order and padding are
// scraped by downstream tools and must not change.
func ComposeAlert(f AlertFields) string {
	var b strings.Builder
	b.WriteString("Target=    " + f.TargetName + "\n")
	b.WriteString("J2000RA=   " + f.Coords.HMS() + "\n")
	b.WriteString("J2000Dec=  " + f.Coords.DMS() + "\n")
	b.WriteString("Timing=    " + TimingASAP + "\n")
	b.WriteString("Duration=  " + DurationTag(f.Duration) + "\n")
	b.WriteString("Requester= " + f.Requester + "\n")
	b.WriteString("Comment=  " + f.Comment + "\n")
	b.WriteString("Action=  " + f.Action + "\n")
	return b.String()
}

// DurationTag renders seconds as "HH.MM", rounding up to the next minute.
func DurationTag(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	minutes := (seconds + 59) / 60
	return fmt.Sprintf("%02d.%02d", minutes/60, minutes%60)
}

// joinComment appends each diagnostic to the classifier comment on its own
// line.
func joinComment(comment string, diagnostics []string) string {
	parts := append([]string{comment}, diagnostics...)
	return strings.Join(parts, "\n")
}
