package errors

import (
	"fmt"
	"testing"
)

func TestIsCodeThroughWrapping(t *testing.T) {
	base := New(CodeBlocked, "stage blocked")
	wrapped := fmt.Errorf("start stage: %w", base)

	if !IsCode(wrapped, CodeBlocked) {
		t.Fatal("expected CodeBlocked through wrapping")
	}
	if IsCode(wrapped, CodeNotFound) {
		t.Fatal("did not expect CodeNotFound")
	}
}

func TestMetaOf(t *testing.T) {
	err := New(CodeBlocked, "stage blocked").WithMeta("blocking_stages", []string{"production"})
	wrapped := fmt.Errorf("caller: %w", err)

	meta := MetaOf(wrapped)
	if meta == nil {
		t.Fatal("expected meta through wrapping")
	}
	names, ok := meta["blocking_stages"].([]string)
	if !ok || len(names) != 1 || names[0] != "production" {
		t.Fatalf("unexpected meta: %v", meta)
	}
}

func TestWrapNil(t *testing.T) {
	err := Wrap(nil, CodeInternal, "oops")
	if err.Err != nil {
		t.Fatal("wrapping nil should produce a bare AppError")
	}
	if err.Error() != "internal: oops" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}
