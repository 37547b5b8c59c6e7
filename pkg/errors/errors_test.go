package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeTypeConflict, status: http.StatusConflict, publicMsg: "item type conflict", detailsOK: true},
		{code: CodeImmutableFlag, status: http.StatusConflict, publicMsg: "serialization flag cannot change while items exist", detailsOK: true},
		{code: CodeSerialization, status: http.StatusUnprocessableEntity, publicMsg: "serialized and bulk rules violated", detailsOK: true},
		{code: CodeDuplicateSerial, status: http.StatusConflict, publicMsg: "serial number already exists", detailsOK: true},
		{code: CodeInsufficientQuantity, status: http.StatusUnprocessableEntity, publicMsg: "insufficient quantity", detailsOK: true},
		{code: CodeInvalidSelection, status: http.StatusUnprocessableEntity, publicMsg: "invalid selection", detailsOK: true},
		{code: CodeStorage, status: http.StatusInternalServerError, publicMsg: "storage failure"},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error"},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable {
			t.Fatalf("code %s must not be retryable", tt.code)
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
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeStorage, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeStorage {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}

	formatted := Newf(CodeTypeConflict, "type %q exists as %s", "Laptop", "serialized")
	if formatted.Message() != `type "Laptop" exists as serialized` {
		t.Fatalf("unexpected formatted message %q", formatted.Message())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeNotFound, "no entry")
	if got := As(err); got == nil || got.Code() != CodeNotFound {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestCodeOfFollowsWrappedChain(t *testing.T) {
	inner := New(CodeInsufficientQuantity, "only 2 left")
	outer := fmt.Errorf("remove quantity: %w", inner)

	if got := CodeOf(outer); got != CodeInsufficientQuantity {
		t.Fatalf("expected wrapped code, got %s", got)
	}
	if !Is(outer, CodeInsufficientQuantity) {
		t.Fatalf("Is should match wrapped code")
	}
	if got := CodeOf(stdErrors.New("plain")); got != CodeInternal {
		t.Fatalf("untyped errors should map to internal, got %s", got)
	}
	if Is(nil, CodeInternal) {
		t.Fatalf("nil error should not match any code")
	}
}
