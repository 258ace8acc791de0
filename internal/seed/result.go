// Package seed loads the boss catalog from a YAML file into the store.
package seed

import "fmt"

// SeedResult tracks counts and errors from a seeding operation.
type SeedResult struct {
	Added   int
	Updated int
	Skipped int
	Errors  []string
}

// AddError records an error message.
func (r *SeedResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// AddErrorf records a formatted error message.
func (r *SeedResult) AddErrorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Summary returns a human-readable summary of the seed operation.
func (r *SeedResult) Summary() string {
	return fmt.Sprintf("added=%d updated=%d skipped=%d errors=%d",
		r.Added, r.Updated, r.Skipped, len(r.Errors))
}
