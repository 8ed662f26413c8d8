package relaylog

import "testing"

func TestOKSingleton(t *testing.T) {
	if OK.IsKO() {
		t.Error("OK should never be KO")
	}
	if (*Error)(nil).IsOK() != true {
		t.Error("a nil *Error should be treated as OK")
	}
}

func TestNewfIsKO(t *testing.T) {
	err := Newf(Generic, "boom: %d", 42)
	if err.IsOK() {
		t.Fatal("Newf should produce a KO error")
	}
	if err.Message != "boom: 42" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Code != Generic {
		t.Errorf("Code = %v, want Generic", err.Code)
	}
}

func TestChainOrderAndDepth(t *testing.T) {
	a := Newf(Generic, "first")
	b := Newf(Generic, "second")
	c := Newf(Generic, "third")

	chained := Chain(a, b)
	chained = Chain(chained, c)

	if Depth(chained) != 3 {
		t.Errorf("Depth = %d, want 3", Depth(chained))
	}
	if chained.Message != "third" {
		t.Errorf("outgoing error should be %q, got %q", "third", chained.Message)
	}
	if chained.Cause.Message != "second" {
		t.Errorf("first cause should be %q, got %q", "second", chained.Cause.Message)
	}
	if chained.Cause.Cause.Message != "first" {
		t.Errorf("second cause should be %q, got %q", "first", chained.Cause.Cause.Message)
	}
}

func TestChainWithOK(t *testing.T) {
	a := Newf(Generic, "real error")
	if got := Chain(a, OK); got != a {
		t.Error("chaining OK onto an error should pass the error through unchanged")
	}
	if got := Chain(OK, a); got != a {
		t.Error("chaining an error onto OK should pass the error through unchanged")
	}
	if got := Chain(OK, OK); got != OK {
		t.Error("chaining OK onto OK should stay OK")
	}
}

func TestChainSelfLoop(t *testing.T) {
	a := Newf(Generic, "loop")
	got := Chain(a, a)
	if got != a {
		t.Error("a self-chain should return the error unchanged, not panic or hang")
	}
}

func TestDepthOK(t *testing.T) {
	if Depth(OK) != 0 {
		t.Errorf("Depth(OK) = %d, want 0", Depth(OK))
	}
}

func TestErrnoErrNilHasNoSuffix(t *testing.T) {
	err := ErrnoErr(nil, "doing the thing")
	if err.Message != "doing the thing" {
		t.Errorf("Message = %q, want no OS error suffix", err.Message)
	}
}

func TestErrnoErrWrapsMessage(t *testing.T) {
	sysErr := Newf(Generic, "disk full")
	err := ErrnoErr(sysErr, "writing record")
	if err.Message != "writing record: disk full" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestDestroyStaticIsNoop(t *testing.T) {
	e := OK
	Destroy(&e)
	if e != nil {
		t.Error("Destroy should clear the pointer even for a static error")
	}
	// OK itself must remain usable afterwards.
	if OK.IsKO() {
		t.Error("Destroy must not mutate the OK singleton")
	}
}

func TestFromIdx(t *testing.T) {
	table := []string{"not found", "permission denied"}

	err := FromIdx(1, table, "path %q", "/etc/shadow")
	if err.Message != "permission denied: path \"/etc/shadow\"" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Code != Code(1) {
		t.Errorf("Code = %v, want 1", err.Code)
	}
}

func TestFromIdxOutOfRange(t *testing.T) {
	err := FromIdx(5, []string{"only one"}, "detail %d", 7)
	if err.Message != "detail 7" {
		t.Errorf("Message = %q, want just the detail when the index is out of range", err.Message)
	}
}

func TestDestroyChain(t *testing.T) {
	a := Newf(Generic, "a")
	b := Newf(Generic, "b")
	chained := Chain(a, b)
	Destroy(&chained)
	if chained != nil {
		t.Error("Destroy should nil out the pointer")
	}
}
