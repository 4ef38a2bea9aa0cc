package services

// Kind classifies service errors for the transport layer.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
)

// Error is a caller-facing failure. Anything that is not an *Error is an
// internal fault and must not be shown to the caller.
type Error struct {
	Kind    Kind
	Message string
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

var (
	// Authentication
	ErrUnauthenticated    = newError(KindUnauthenticated, "not authorized")
	ErrInvalidCredentials = newError(KindUnauthenticated, "invalid credentials")

	// Authorization
	ErrForbidden              = newError(KindForbidden, "access denied")
	ErrTaskForbidden          = newError(KindForbidden, "you cannot modify this task")
	ErrAssignForbidden        = newError(KindForbidden, "managers can only assign tasks to users (employees)")
	ErrRegistrationKeyInvalid = newError(KindForbidden, "invalid registration key")

	// Resources
	ErrTaskNotFound = newError(KindNotFound, "task not found")
	ErrUserNotFound = newError(KindNotFound, "user not found")
	ErrEmailTaken   = newError(KindConflict, "email already registered")

	// Validation
	ErrTaskFieldsRequired  = newError(KindValidation, "task title and description are required")
	ErrTaskTitleEmpty      = newError(KindValidation, "task title cannot be empty")
	ErrDescriptionEmpty    = newError(KindValidation, "description cannot be empty")
	ErrInvalidStatus       = newError(KindValidation, "status must be one of pending, in-progress, completed")
	ErrNoteTooLong         = newError(KindValidation, "note is too long")
	ErrTargetUserNotFound  = newError(KindValidation, "target user not found")
	ErrUserFieldsRequired  = newError(KindValidation, "username, email, password, phone and address are required")
	ErrRoleTitleRequired   = newError(KindValidation, "roleTitle is required")
	ErrRoleNotFound        = newError(KindValidation, "role not found")
	ErrLoginFieldsRequired = newError(KindValidation, "email and password are required")
	ErrEmptyUserField      = newError(KindValidation, "username, phone and address cannot be empty")
)
