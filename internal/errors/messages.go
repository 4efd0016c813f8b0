package errors

import (
	"context"
	"errors"
)

// userMessages holds the stable, user-facing copy for each code.
// Raw backend text never reaches the user; everything goes through this table.
var userMessages = map[ErrorCode]string{
	ErrCodeInvalidCredentials: "Invalid email or password. Please check your credentials and try again.",
	ErrCodeAccountExists:      "An account with this email already exists. Please sign in instead.",
	ErrCodeProvider:           "Sign-in with the selected provider failed. Please try again.",
	ErrCodeNetwork:            "We could not reach the sign-in service. Please check your connection and try again.",
	ErrCodeTimeout:            "We could not reach the sign-in service. Please check your connection and try again.",
	ErrCodeTokenExpired:       "Your session has expired. Please sign in again.",
	ErrCodeRecoveryToken:      "This password reset link is invalid or has expired. Please request a new link.",
	ErrCodeValidation:         "Please check the highlighted fields and try again.",
	ErrCodeForbidden:          "You do not have permission to perform this action.",
	ErrCodeNotFound:           "The requested record was not found.",
	ErrCodeConflict:           "This record was changed by someone else. Please reload and try again.",
	ErrCodeCanceled:           "The request was canceled.",
}

const genericMessage = "Something went wrong. Please try again."

// UserMessage returns the stable user-facing message for err.
// Validation errors keep their own message because it names the offending field.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return userMessages[ErrCodeNetwork]
	}
	code := GetCode(err)
	if code == ErrCodeValidation {
		var appErr *AppError
		if errors.As(err, &appErr) && appErr.Message != "" {
			return appErr.Message
		}
	}
	if msg, ok := userMessages[code]; ok {
		return msg
	}
	return genericMessage
}

// IsRecoverable reports whether the code has a local recovery rule and must never be shown to a user.
func IsRecoverable(code ErrorCode) bool {
	return code == ErrCodePolicyRecursion || code == ErrCodeProvisioning
}
