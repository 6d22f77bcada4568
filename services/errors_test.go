package services

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindSurvivesWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(KindExternalGateway, "transfer rejected", cause)

	wrapped := fmt.Errorf("request payout: %w", err)
	if !IsKind(wrapped, KindExternalGateway) {
		t.Fatalf("kind lost through fmt.Errorf wrap: %v", wrapped)
	}
	if !errors.Is(wrapped, cause) {
		t.Fatal("cause lost through the chain")
	}
}

func TestKindOfForeignError(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != "" {
		t.Fatalf("KindOf(plain error) = %q, want empty", got)
	}
	if got := KindOf(nil); got != "" {
		t.Fatalf("KindOf(nil) = %q, want empty", got)
	}
	if IsKind(errors.New("plain"), KindNotFound) {
		t.Fatal("plain error matched a kind")
	}
}

func TestErrorMessageFormat(t *testing.T) {
	bare := NewError(KindNotFound, "creator not found")
	if bare.Error() != "not_found: creator not found" {
		t.Fatalf("bare message = %q", bare.Error())
	}

	withCause := WrapError(KindReconciliationRequired, "refund not recorded", errors.New("disk full"))
	if withCause.Error() != "reconciliation_required: refund not recorded: disk full" {
		t.Fatalf("wrapped message = %q", withCause.Error())
	}

	formatted := Errorf(KindRateLimited, "monthly payout limit of %d reached", 4)
	if formatted.Message != "monthly payout limit of 4 reached" {
		t.Fatalf("formatted message = %q", formatted.Message)
	}
}
