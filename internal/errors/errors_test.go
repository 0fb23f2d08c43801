package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err: &AppError{
				Code:    ErrCodeNotFound,
				Message: "user not found",
			},
			want: "user not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeInternal,
				Message: "failed to issue token",
				Cause:   errors.New("underlying error"),
			},
			want: "failed to issue token: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &AppError{
		Code:    ErrCodeInternal,
		Message: "wrapped error",
		Cause:   cause,
	}

	if unwrapped := err.Unwrap(); !errors.Is(unwrapped, cause) {
		t.Errorf("AppError.Unwrap() = %v, want %v", unwrapped, cause)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantCode ErrorCode
		check    func(error) bool
	}{
		{"not found", NotFound("missing"), ErrCodeNotFound, IsNotFound},
		{"conflict", Conflict("duplicate"), ErrCodeConflict, IsConflict},
		{"validation", Validation("bad input"), ErrCodeValidation, IsValidation},
		{"unauthenticated", Unauthenticated("no token"), ErrCodeUnauthenticated, IsUnauthenticated},
		{"forbidden", Forbidden("wrong role"), ErrCodeForbidden, IsForbidden},
		{"rate limited", RateLimited("too many attempts"), ErrCodeRateLimited, IsRateLimited},
		{"internal", Internal("boom"), ErrCodeInternal, IsInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.wantCode)
			}
			if !tt.check(tt.err) {
				t.Errorf("predicate returned false for %v", tt.err)
			}
		})
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("email", "invalid email format")
	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
	if !IsValidation(err) {
		t.Errorf("IsValidation() = false, want true")
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, ErrCodeInternal, "failed to reach database")
	if err == nil {
		t.Fatal("Wrap() returned nil for non-nil cause")
	}
	if !errors.Is(err, cause) {
		t.Errorf("wrapped error does not match cause via errors.Is")
	}
	if Wrap(nil, ErrCodeInternal, "ignored") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestWrapf(t *testing.T) {
	cause := errors.New("boom")
	err := Wrapf(cause, ErrCodeNotFound, "user %s not found", "abc")
	if err.Message != "user abc not found" {
		t.Errorf("Message = %q", err.Message)
	}
	if Wrapf(nil, ErrCodeNotFound, "ignored") != nil {
		t.Error("Wrapf(nil) should return nil")
	}
}

func TestPredicates_WrappedDeep(t *testing.T) {
	inner := NotFound("user not found")
	outer := fmt.Errorf("load profile: %w", inner)
	if !IsNotFound(outer) {
		t.Error("IsNotFound should see through fmt.Errorf wrapping")
	}
	if IsConflict(outer) {
		t.Error("IsConflict matched a NotFound error")
	}
}
