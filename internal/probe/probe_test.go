package probe

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCheck_ExpectedOutput(t *testing.T) {
	r := New("", time.Second*5, nil)
	res := r.Check(context.Background(), "echo Apache Maven 3.9.6", "Apache Maven")
	if !res.Satisfied || res.ExitCode != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestCheck_MissingText(t *testing.T) {
	r := New("", time.Second*5, nil)
	res := r.Check(context.Background(), "echo hello", "Apache Maven")
	if res.Satisfied {
		t.Error("expected unsatisfied when output lacks expected text")
	}
	if res.Err != nil {
		t.Errorf("unexpected err %v", res.Err)
	}
}

func TestCheck_NonZeroExit(t *testing.T) {
	r := New("", time.Second*5, nil)
	res := r.Check(context.Background(), "echo Apache Maven; exit 3", "Apache Maven")
	if res.Satisfied {
		t.Error("non-zero exit must be unsatisfied")
	}
	if res.ExitCode != 3 {
		t.Errorf("exit code = %d", res.ExitCode)
	}
}

func TestCheck_MissingBinary(t *testing.T) {
	r := New("", time.Second*5, nil)
	res := r.Check(context.Background(), "definitely-not-a-command-xyz", "")
	if res.Satisfied {
		t.Error("missing binary must be unsatisfied")
	}
}

func TestCheck_Timeout(t *testing.T) {
	r := New("", 100*time.Millisecond, nil)
	res := r.Check(context.Background(), "sleep 5", "")
	if res.Satisfied {
		t.Error("timed out probe must be unsatisfied")
	}
	if !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", res.Err)
	}
}
