package errors

import "testing"

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	if Wrapf(nil, "context %d", 1) != nil {
		t.Error("Wrapf(nil) should return nil")
	}
}

func TestWrapPreservesSentinel(t *testing.T) {
	err := Wrap(ErrNoCaptures, "cdx lookup for example.com")
	if !Is(err, ErrNoCaptures) {
		t.Error("wrapped error should match its sentinel")
	}
	if !IsNoCaptures(err) {
		t.Error("IsNoCaptures should see through the wrap")
	}
	want := "cdx lookup for example.com: no captures found"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestWrapfChain(t *testing.T) {
	inner := New("boom")
	err := Wrapf(Wrap(inner, "first"), "second %s", "layer")
	if !Is(err, inner) {
		t.Error("chain should reach the innermost error")
	}
}

func TestIsInvalidInput(t *testing.T) {
	if !IsInvalidInput(Wrap(ErrInvalidInput, "no inputs")) {
		t.Error("IsInvalidInput should match")
	}
	if IsInvalidInput(ErrTimeout) {
		t.Error("IsInvalidInput should not match timeout")
	}
}
