package errors

import (
	"fmt"
	"strings"
)

// ValidationError aggregates every construction-time finding.
type ValidationError struct {
	Findings []*Error
}

// Add records a finding. Nil findings are ignored.
func (v *ValidationError) Add(finding *Error) {
	if finding == nil {
		return
	}
	v.Findings = append(v.Findings, finding)
}

// Merge appends the findings of err. A *ValidationError is flattened, an
// *Error is added as-is and any other non-nil error is wrapped as a build finding.
func (v *ValidationError) Merge(err error) {
	switch e := err.(type) {
	case nil:
		return
	case *ValidationError:
		if e != nil {
			v.Findings = append(v.Findings, e.Findings...)
		}
	case *Error:
		v.Add(e)
	default:
		v.Add(&Error{Op: "build", Detail: err.Error(), Cause: err})
	}
}

// Len returns the number of findings.
func (v *ValidationError) Len() int {
	if v == nil {
		return 0
	}
	return len(v.Findings)
}

// Err returns v if it holds findings, nil otherwise.
func (v *ValidationError) Err() error {
	if v.Len() == 0 {
		return nil
	}
	return v
}

// Count returns the number of findings of the given kind.
func (v *ValidationError) Count(kind Kind) int {
	n := 0
	for _, f := range v.Findings {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// Error implements the error interface. Findings are listed one per line.
func (v *ValidationError) Error() string {
	if v.Len() == 0 {
		return "validation failed"
	}
	lines := make([]string, 0, len(v.Findings)+1)
	lines = append(lines, fmt.Sprintf("validation failed with %d finding(s):", len(v.Findings)))
	for _, f := range v.Findings {
		lines = append(lines, "  "+f.Error())
	}
	return strings.Join(lines, "\n")
}

// Unwrap exposes each finding to errors.Is and errors.As.
func (v *ValidationError) Unwrap() []error {
	out := make([]error, len(v.Findings))
	for i, f := range v.Findings {
		out[i] = f
	}
	return out
}
