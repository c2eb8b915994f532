package remote

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

func Test_Wrap_NilStaysNil(t *testing.T) {
	if Wrap("read", "/p/a", nil) != nil {
		t.Error("expected nil for nil error")
	}
}

func Test_Wrap_KeepsCauseReachable(t *testing.T) {
	err := Wrap("read", "/p/a", fmt.Errorf("open: %w", os.ErrNotExist))

	if !IsCallError(err) {
		t.Fatal("expected a CallError")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("expected os.ErrNotExist to be reachable")
	}
	if err.Error() != "read /p/a: open: file does not exist" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func Test_Wrap_DoesNotDoubleWrap(t *testing.T) {
	inner := Wrap("write", "/p/a", errors.New("disk full"))
	outer := Wrap("save", "/p/a", inner)

	if outer != inner {
		t.Error("expected existing CallError to be returned unchanged")
	}
}

func Test_CallError_WithoutPath(t *testing.T) {
	err := Wrap("shells", "", errors.New("boom"))
	if err.Error() != "shells: boom" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
