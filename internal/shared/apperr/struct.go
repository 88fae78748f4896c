package apperr

type Kind string

type AppError struct {
	Kind      Kind
	PublicMsg string            // safe to show to the caller
	Fields    map[string]string // field-level validation errors (optional)
	Err       error             // internal cause (for logs)
}
