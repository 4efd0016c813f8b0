package gotrue

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"

	apperrors "github.com/target/compliance-gate/internal/errors"
)

// apiError covers both error envelopes GoTrue has shipped: the current
// {code, error_code, msg} shape and the legacy OAuth-style {error, error_description}.
type apiError struct {
	Code        int    `json:"code"`
	ErrorCode   string `json:"error_code"`
	Msg         string `json:"msg"`
	Message     string `json:"message"`
	Err         string `json:"error"`
	Description string `json:"error_description"`
}

var (
	credentialCodes = []string{"invalid_credentials", "email_not_confirmed", "phone_not_confirmed", "user_banned"}
	duplicateCodes  = []string{"user_already_exists", "email_exists", "phone_exists", "identity_already_exists"}
	tokenCodes      = []string{
		"bad_jwt", "no_authorization", "session_not_found", "session_expired",
		"refresh_token_not_found", "refresh_token_already_used", "reauthentication_needed", "otp_expired",
	}
	providerCodes = []string{
		"bad_code_verifier", "flow_state_not_found", "flow_state_expired", "bad_oauth_callback",
		"bad_oauth_state", "provider_disabled", "oauth_provider_not_supported", "signup_disabled",
		"email_provider_disabled", "over_request_rate_limit", "over_email_send_rate_limit",
	}
)

// mapAPIError turns a non-2xx GoTrue response into an AppError. The raw backend text is kept
// only as the cause; the message is fixed per code.
func mapAPIError(status int, body []byte) error {
	var e apiError
	_ = json.Unmarshal(body, &e)

	code := e.ErrorCode
	if code == "" {
		code = e.Err
	}
	text := firstNonEmpty(e.Msg, e.Message, e.Description)
	cause := fmt.Errorf("gotrue status %d code %q: %s", status, code, text)

	switch {
	case slices.Contains(credentialCodes, code):
		return apperrors.Wrap(cause, apperrors.ErrCodeInvalidCredentials, "invalid credentials")
	case slices.Contains(duplicateCodes, code):
		return apperrors.Wrap(cause, apperrors.ErrCodeAccountExists, "account already exists")
	case slices.Contains(tokenCodes, code):
		return apperrors.Wrap(cause, apperrors.ErrCodeTokenExpired, "session is no longer valid")
	case slices.Contains(providerCodes, code):
		return apperrors.Wrap(cause, apperrors.ErrCodeProvider, "identity provider rejected the request")
	case code == "same_password":
		return fieldError(cause, "password", "New password must be different from the old password.")
	case code == "weak_password":
		return fieldError(cause, "password", "Password does not meet the strength requirements.")
	case code == "email_address_invalid":
		return fieldError(cause, "email", "Please enter a valid email address.")
	case code == "validation_failed" || code == "bad_json":
		return apperrors.Wrap(cause, apperrors.ErrCodeValidation, "The sign-in service rejected the request.")
	}

	if mapped := mapByText(strings.ToLower(text), cause); mapped != nil {
		return mapped
	}
	return mapByStatus(status, cause)
}

// mapByText handles older servers that only return a human-readable description.
func mapByText(lower string, cause error) error {
	switch {
	case strings.Contains(lower, "already registered"):
		return apperrors.Wrap(cause, apperrors.ErrCodeAccountExists, "account already exists")
	case strings.Contains(lower, "invalid login credentials"), strings.Contains(lower, "email not confirmed"):
		return apperrors.Wrap(cause, apperrors.ErrCodeInvalidCredentials, "invalid credentials")
	case strings.Contains(lower, "refresh token"), strings.Contains(lower, "jwt"):
		return apperrors.Wrap(cause, apperrors.ErrCodeTokenExpired, "session is no longer valid")
	}
	return nil
}

func mapByStatus(status int, cause error) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.Wrap(cause, apperrors.ErrCodeTokenExpired, "session is no longer valid")
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperrors.Wrap(cause, apperrors.ErrCodeValidation, "The sign-in service rejected the request.")
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return apperrors.Wrap(cause, apperrors.ErrCodeNetwork, "identity backend unavailable")
	default:
		return apperrors.Wrap(cause, apperrors.ErrCodeProvider, "identity backend error")
	}
}

func fieldError(cause error, field, msg string) error {
	return &apperrors.AppError{Code: apperrors.ErrCodeValidation, Message: msg, Field: field, Cause: cause}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
