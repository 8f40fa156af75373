package service

import "fmt"

const (
	CodeNotFound            = "NOT_FOUND"
	CodeValidation          = "VALIDATION_ERROR"
	CodeNoAssigneeAvailable = "NO_ASSIGNEE_AVAILABLE"
	CodeStore               = "STORE_ERROR"
)

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func NewNotFound(resource string, id string) *BusinessError {
	return &BusinessError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %s not found", resource, id),
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func NewValidationError(field, reason string) *BusinessError {
	return &BusinessError{
		Code:    CodeValidation,
		Message: fmt.Sprintf("invalid value for field '%s': %s", field, reason),
		Details: map[string]any{
			"field":  field,
			"reason": reason,
		},
	}
}

func NewNoAssigneeAvailable() *BusinessError {
	return &BusinessError{
		Code:    CodeNoAssigneeAvailable,
		Message: "no users available for assignment",
	}
}

func NewStoreError(operation string, err error) *BusinessError {
	return &BusinessError{
		Code:    CodeStore,
		Message: fmt.Sprintf("storage failure during %s", operation),
		Details: map[string]any{
			"operation": operation,
		},
		Err: err,
	}
}
