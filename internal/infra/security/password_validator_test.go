package security

import (
	"errors"
	"testing"
)

func TestDefaultPasswordValidatorLenient(t *testing.T) {
	validator := DefaultPasswordValidator(6, 0)

	if err := validator.Validate("secret1"); err != nil {
		t.Fatalf("expected password to pass default validation, got %v", err)
	}

	err := validator.Validate("short")
	if err == nil {
		t.Fatal("expected validation error for short password")
	}
	var vErr *PasswordValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected PasswordValidationError, got %T", err)
	}
	if vErr.Code != "min_length" {
		t.Fatalf("expected min_length code, got %s", vErr.Code)
	}
}

func TestDefaultPasswordValidatorStrengthEnabled(t *testing.T) {
	validator := DefaultPasswordValidator(6, 3)

	err := validator.Validate("password123")
	if err == nil {
		t.Fatal("expected weak password to be rejected when strength rule enabled")
	}
	var vErr *PasswordValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected PasswordValidationError, got %T", err)
	}
	if vErr.Code != "weak_password" {
		t.Fatalf("expected weak_password code, got %s", vErr.Code)
	}

	if err := validator.Validate("C0mplex!Passphrase#2025"); err != nil {
		t.Fatalf("expected strong password to pass, got %v", err)
	}
}

func TestCustomPasswordValidator(t *testing.T) {
	validator := NewPasswordValidator(
		MinLengthRule(4),
		RequireDifferentFrom("existing"),
	)

	if err := validator.Validate("existing"); err == nil {
		t.Fatal("expected validation error when new password equals comparator")
	}

	if err := validator.Validate("abc"); err == nil {
		t.Fatal("expected validation error for short password")
	}

	if err := validator.Validate("fresh"); err != nil {
		t.Fatalf("expected password to pass custom validation, got %v", err)
	}
}
