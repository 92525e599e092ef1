package ctxkeys

import (
	"context"
	"testing"
)

func TestWithValueAndValue(t *testing.T) {
	t.Parallel()

	ctx := WithValue(context.Background(), UserID, "user-1")
	if got := Value(ctx, UserID); got != "user-1" {
		t.Errorf("Value(UserID) = %q; want %q", got, "user-1")
	}
	if got := Value(ctx, TenantID); got != "" {
		t.Errorf("Value(TenantID) = %q; want empty", got)
	}
}

func TestKeyTypeDoesNotCollideWithStringKeys(t *testing.T) {
	t.Parallel()

	ctx := context.WithValue(context.Background(), "user_id", "plain-string") //nolint:staticcheck
	if got := Value(ctx, UserID); got != "" {
		t.Errorf("typed key must not read plain string keys, got %q", got)
	}
}
