package cli

import "errors"

// CLI-specific sentinel errors: validation/usage problems that don't
// belong to a domain package.
var (
	// ErrDoctorFailed indicates one or more doctor checks failed.
	ErrDoctorFailed = errors.New("doctor checks failed")
)
