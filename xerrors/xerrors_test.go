package xerrors

import (
	"errors"
	"testing"
)

func TestWrap(t *testing.T) {
	// nil 错误应返回 nil
	if err := Wrap(nil, "context"); err != nil {
		t.Errorf("Wrap(nil) = %v，期望 nil", err)
	}

	base := errors.New("base error")
	wrapped := Wrap(base, "context")
	if wrapped.Error() != "context: base error" {
		t.Errorf("Wrap(err).Error() = %q，期望 %q", wrapped.Error(), "context: base error")
	}
	if !errors.Is(wrapped, base) {
		t.Error("errors.Is(wrapped, base) = false，期望 true")
	}
}

func TestWrapf(t *testing.T) {
	if err := Wrapf(nil, "key %s", "k"); err != nil {
		t.Errorf("Wrapf(nil) = %v，期望 nil", err)
	}

	wrapped := Wrapf(ErrNotFound, "key %s", "order_1")
	if wrapped.Error() != "key order_1: not found" {
		t.Errorf("Wrapf(err).Error() = %q", wrapped.Error())
	}
	if !Is(wrapped, ErrNotFound) {
		t.Error("Is(wrapped, ErrNotFound) = false，期望 true")
	}
}

func TestWithCode(t *testing.T) {
	if err := WithCode(nil, "CODE"); err != nil {
		t.Errorf("WithCode(nil) = %v，期望 nil", err)
	}

	coded := WithCode(ErrTimeout, "LOCK_TIMEOUT")
	if coded.Error() != "[LOCK_TIMEOUT] timeout" {
		t.Errorf("WithCode(err).Error() = %q", coded.Error())
	}
	if code := GetCode(Wrap(coded, "outer")); code != "LOCK_TIMEOUT" {
		t.Errorf("GetCode(wrapped coded) = %q，期望 LOCK_TIMEOUT", code)
	}
	if !Is(coded, ErrTimeout) {
		t.Error("coded error 应保留 cause")
	}
}

type codeCarrier struct{}

func (codeCarrier) Error() string     { return "carrier" }
func (codeCarrier) ErrorCode() string { return "CARRIER" }

func TestGetCode_Interface(t *testing.T) {
	if code := GetCode(Wrap(codeCarrier{}, "ctx")); code != "CARRIER" {
		t.Errorf("GetCode() = %q，期望 CARRIER", code)
	}
	if code := GetCode(errors.New("plain")); code != "" {
		t.Errorf("GetCode(plain) = %q，期望空串", code)
	}
}

func TestCombine(t *testing.T) {
	if err := Combine(nil, nil); err != nil {
		t.Errorf("Combine(nil, nil) = %v，期望 nil", err)
	}

	e1 := errors.New("e1")
	if err := Combine(nil, e1); err != e1 {
		t.Errorf("Combine(nil, e1) = %v，期望 e1", err)
	}

	e2 := errors.New("e2")
	err := Combine(e1, e2)
	if err.Error() != "e1 (and 1 more errors)" {
		t.Errorf("Combine(e1, e2).Error() = %q", err.Error())
	}
	if !errors.Is(err, e2) {
		t.Error("errors.Is(combined, e2) = false，期望 true")
	}
}
