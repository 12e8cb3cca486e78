package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied", detailsOK: true},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusBadRequest, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, publicMsg: "rate limit exceeded"},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "serial number already registered")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "serial number already registered" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	base.WithDetails(map[string]any{"field": "serial_number"})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeDependency, cause, "load device")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestHasCodeFollowsWrapping(t *testing.T) {
	err := fmt.Errorf("approve: %w", New(CodeStateConflict, "only pending assignments can be approved"))
	if !HasCode(err, CodeStateConflict) {
		t.Fatalf("expected state conflict in chain")
	}
	if HasCode(err, CodeValidation) {
		t.Fatalf("unexpected validation match")
	}
	if HasCode(stdErrors.New("plain"), CodeInternal) {
		t.Fatalf("plain errors carry no code")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("connection refused"), "lock assignment")
	dump := Dump(err)
	if dump.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %s", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %d", len(dump.Chain))
	}
	if dump.DBCode != "" {
		t.Fatalf("unexpected db code %q", dump.DBCode)
	}
}

func TestDumpReadsPostgresError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "devices_device_code_key", Detail: "Key (device_code)=(LAP-1) already exists."}
	dump := Dump(fmt.Errorf("insert device: %w", pgErr))
	if dump.DBCode != "23505" || dump.DBConstraint != "devices_device_code_key" {
		t.Fatalf("unexpected dump %+v", dump)
	}
}

func TestPublicMessageHidesInternalDetail(t *testing.T) {
	if got := New(CodeNotFound, "device not found").PublicMessage(); got != "device not found" {
		t.Fatalf("expected caller message, got %q", got)
	}
	if got := Wrap(CodeDependency, stdErrors.New("dial tcp 10.0.0.4:5432"), "load device").PublicMessage(); got != "dependency unavailable" {
		t.Fatalf("expected generic message, got %q", got)
	}
	if got := New(CodeForbidden, "").PublicMessage(); got != "access denied" {
		t.Fatalf("expected fallback message, got %q", got)
	}
}

func TestStatusOf(t *testing.T) {
	if StatusOf(nil) != http.StatusOK {
		t.Fatalf("nil should be 200")
	}
	if StatusOf(fmt.Errorf("x: %w", New(CodeStateConflict, "retired"))) != http.StatusBadRequest {
		t.Fatalf("state conflict should render as 400")
	}
	if StatusOf(stdErrors.New("plain")) != http.StatusInternalServerError {
		t.Fatalf("plain errors should render as 500")
	}
}

func TestFieldErrorsKeepFirstMessage(t *testing.T) {
	fields := FieldErrors{}
	if fields.Err() != nil {
		t.Fatalf("empty field set should not produce an error")
	}
	fields.Add("serial_number", "is required")
	fields.Add("serial_number", "is too long")
	fields.Add("brand", "is required")

	err := fields.Err()
	if err.Code() != CodeValidation {
		t.Fatalf("unexpected code %s", err.Code())
	}
	details := err.Details().(map[string]string)
	if details["serial_number"] != "is required" {
		t.Fatalf("first message should win, got %q", details["serial_number"])
	}
	if got := fields.Fields(); len(got) != 2 || got[0] != "brand" {
		t.Fatalf("unexpected field order %v", got)
	}
}
