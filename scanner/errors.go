package scanner

import "fmt"

// ParseError reports a fragment that violates the change-list rendering
// contract. It aborts the whole scan: the markup is assumed malformed or
// incompatible and needs human attention, so no partial results are returned.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "scanner: " + e.Reason
}

// MissingFieldError reports a marker that lacks an attribute the contract
// requires. Same fatal class as ParseError.
type MissingFieldError struct {
	Marker string
	Attr   string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("scanner: %s marker missing %q attribute", e.Marker, e.Attr)
}
