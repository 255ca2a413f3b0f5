package render

import "fmt"

// LocateReason classifies why the target table could not be located.
type LocateReason string

const (
	ReasonHeadingNotFound  LocateReason = "heading-not-found"
	ReasonTableNotFound    LocateReason = "table-not-found"
	ReasonAllEnginesFailed LocateReason = "all-engines-failed"
)

// LocateError reports a failure to reach the target table. It is fatal to
// the run; retrying is the caller's decision, not ours.
type LocateError struct {
	Reason LocateReason
	Engine string
	Cause  error
}

func (e *LocateError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("locate table (%s): %s: %v", e.Engine, e.Reason, e.Cause)
	}
	return fmt.Sprintf("locate table (%s): %s", e.Engine, e.Reason)
}

func (e *LocateError) Unwrap() error { return e.Cause }

// RenderTimeoutError reports that the table never satisfied the stability
// conditions within the nudge budget. The last observed counts are carried
// for diagnostics.
type RenderTimeoutError struct {
	HeaderCells   int
	BodyRows      int
	FirstRowCells int
}

func (e *RenderTimeoutError) Error() string {
	return fmt.Sprintf("table never stabilized: header cells=%d body rows=%d first row cells=%d",
		e.HeaderCells, e.BodyRows, e.FirstRowCells)
}
