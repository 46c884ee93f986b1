package manifest

// ValidationError reports a malformed or internally inconsistent
// manifest. It fails the whole build or parse; nothing is applied.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "manifest validation failed for " + e.Field + ": " + e.Message
	}
	return "manifest validation failed: " + e.Message
}
