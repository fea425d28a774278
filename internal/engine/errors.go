package engine

import "errors"

// Conditions that abort a comparison. Wrap them with fmt.Errorf("...: %w")
// and test with errors.Is.
var (
	ErrResourceUnavailable = errors.New("resource unavailable")
	ErrExtractionNotFound  = errors.New("string table not found")
	ErrMalformedAsset      = errors.New("malformed asset")
)
