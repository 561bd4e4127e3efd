// Package trigger runs the request pipeline for one alert against one
// station: availability, visibility, calibrator selection, beam planning and
// submission, ending in a status code and the notification text.
package trigger

import "fmt"

// Status is the closed set of outcomes of a request.
type Status int

const (
	StatusSuccess      Status = 0
	StatusUnavailable  Status = -1
	StatusBusy         Status = -2
	StatusDryRun       Status = 1 // dry run, or the submission failed
	StatusNotVisible   Status = 2
	StatusNoCalibrator Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusUnavailable:
		return "station_unavailable"
	case StatusBusy:
		return "station_busy"
	case StatusDryRun:
		return "not_sent"
	case StatusNotVisible:
		return "target_not_visible"
	case StatusNoCalibrator:
		return "no_calibrator"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Stage names one step of the pipeline.
type Stage string

const (
	StageAvailability Stage = "availability"
	StageVisibility   Stage = "visibility"
	StageCalibrator   Stage = "calibrator"
	StageBeams        Stage = "beams"
	StageSubmit       Stage = "submit"
	StageNotify       Stage = "notify"
)
