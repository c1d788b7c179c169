package errkind

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestOf(t *testing.T) {
	err := New(Rejected, "nonce too low")
	if Of(err) != Rejected {
		t.Fatalf("expected Rejected, got %v", Of(err))
	}
	wrapped := fmt.Errorf("send: %w", err)
	if Of(wrapped) != Rejected {
		t.Fatalf("kind must survive wrapping, got %v", Of(wrapped))
	}
	if Of(errors.New("plain")) != Unknown {
		t.Fatal("plain errors must classify as Unknown")
	}
	if Of(nil) != Unknown {
		t.Fatal("nil must classify as Unknown")
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{New(Transient, "request timed out"), true},
		{New(Rejected, "insufficient funds"), false},
		{context.DeadlineExceeded, true},
		{fmt.Errorf("rpc: %w", context.DeadlineExceeded), true},
		{errors.New("i/o timeout"), true},
		{errors.New("request timed out"), true},
		{errors.New("nonce too low"), false},
		{context.Canceled, false},
	}
	for _, c := range cases {
		if got := IsTransient(c.err); got != c.want {
			t.Fatalf("IsTransient(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestKindString(t *testing.T) {
	if Transient.String() != "transient" || InvalidInput.String() != "invalid input" {
		t.Fatal("unexpected kind strings")
	}
}
