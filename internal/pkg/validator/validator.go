package validator

// Validator checks a struct against its validate tags.
type Validator interface {
	Validate(data any) error
}
