// Package intake holds the validation rules for uploads and reports. Every
// check returns either a value or a *Rejection naming why the input was
// refused; callers decide how a Reason is rendered.
package intake

import (
	"errors"
	"fmt"
)

// Reason identifies which rule refused an input.
type Reason int

const (
	ReasonMissingFile Reason = iota + 1
	ReasonUnexpectedField
	ReasonExtension
	ReasonUnsafeName
	ReasonBlacklisted
	ReasonTooLarge
	ReasonReportMissing
	ReasonReportFormat
)

var reasonNames = map[Reason]string{
	ReasonMissingFile:     "missing file",
	ReasonUnexpectedField: "unexpected field",
	ReasonExtension:       "extension not allowed",
	ReasonUnsafeName:      "unsafe file name",
	ReasonBlacklisted:     "file name blacklisted",
	ReasonTooLarge:        "file too large",
	ReasonReportMissing:   "report missing",
	ReasonReportFormat:    "report format rejected",
}

func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// Rejection is returned by every check in this package when input is refused.
type Rejection struct {
	Reason Reason
	// Detail carries the offending value where one exists (an extension, a
	// field name). It is never set for report rejections.
	Detail string
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return r.Reason.String()
	}
	return fmt.Sprintf("%s: %q", r.Reason, r.Detail)
}

// Reject builds a Rejection.
func Reject(reason Reason, detail string) *Rejection {
	return &Rejection{Reason: reason, Detail: detail}
}

// AsRejection unwraps err into a *Rejection if it is one.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
