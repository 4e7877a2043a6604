package domain

import (
	"fmt"
	"strings"
)

// Check is one assertion made while validating a role's store.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// ValidationReport is the structured result of validating a role's store.
// It lists every check, passed or not, so partial state is never reported as
// success.
type ValidationReport struct {
	Role   Role    `json:"role"`
	Checks []Check `json:"checks"`
}

// Add records a check result.
func (r *ValidationReport) Add(name string, passed bool, detailFormat string, args ...any) {
	r.Checks = append(r.Checks, Check{
		Name:   name,
		Passed: passed,
		Detail: fmt.Sprintf(detailFormat, args...),
	})
}

// Passed reports whether the report holds at least one check and all passed.
func (r *ValidationReport) Passed() bool {
	if len(r.Checks) == 0 {
		return false
	}
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Failures returns the checks that did not pass.
func (r *ValidationReport) Failures() []Check {
	var failed []Check
	for _, c := range r.Checks {
		if !c.Passed {
			failed = append(failed, c)
		}
	}
	return failed
}

// String renders one line per check.
func (r *ValidationReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "role %s:\n", r.Role)
	for _, c := range r.Checks {
		mark := "ok  "
		if !c.Passed {
			mark = "FAIL"
		}
		fmt.Fprintf(&b, "  [%s] %s: %s\n", mark, c.Name, c.Detail)
	}
	return b.String()
}
