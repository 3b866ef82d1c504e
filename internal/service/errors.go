package service

import "errors"

var (
	// Not found
	ErrTaskNotFound    = errors.New("task not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrNotARequest     = errors.New("message is not a due date request")
	ErrUserNotFound    = errors.New("user not found")

	// Forbidden
	ErrForbidden   = errors.New("no access to this task channel")
	ErrNotAssignee = errors.New("only an assigned user can perform this action")

	// Validation
	ErrEmptyText   = errors.New("message text is required")
	ErrEmptyReason = errors.New("a reason for the extension is required")
	ErrBadDate     = errors.New("proposed due date is not a valid date")

	// Invalid state
	ErrMessageDeleted = errors.New("message has been deleted")
	ErrNotEditable    = errors.New("only plain messages can be edited or deleted")
	ErrRequestDecided = errors.New("due date request has already been decided")

	// Invalid reference
	ErrBadReply = errors.New("reply target does not belong to this task")

	// Auth
	ErrEmailTaken   = errors.New("email already taken")
	ErrInvalidCreds = errors.New("invalid email or password")
	ErrInvalidToken = errors.New("invalid or expired token")
)
