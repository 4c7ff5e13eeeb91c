package inference

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorPredicates(t *testing.T) {
	cases := []struct {
		err  error
		pred func(error) bool
	}{
		{ErrValidation([]string{"x"}), IsValidation},
		{ErrNotLoaded("m"), IsNotLoaded},
		{ErrLoad("m", errors.New("io")), IsLoad},
		{ErrUnsupportedFormat("gguf"), IsUnsupportedFormat},
		{ErrPrediction("m", errors.New("boom")), IsPrediction},
		{ErrTooBusy("m"), IsTooBusy},
		{ErrExecTimeout("m"), IsExecTimeout},
	}
	preds := []func(error) bool{
		IsValidation, IsNotLoaded, IsLoad, IsUnsupportedFormat, IsPrediction, IsTooBusy, IsExecTimeout,
	}
	for i, c := range cases {
		if !c.pred(c.err) {
			t.Fatalf("case %d: predicate rejected its own error %v", i, c.err)
		}
		matched := 0
		for _, p := range preds {
			if p(c.err) {
				matched++
			}
		}
		if matched != 1 {
			t.Fatalf("case %d: error %v matched %d predicates", i, c.err, matched)
		}
	}
	if IsNotLoaded(errors.New("plain")) {
		t.Fatalf("plain error must not match")
	}
}

func TestErrorMessages(t *testing.T) {
	if got := ErrValidation([]string{"a", "b"}).Error(); !strings.Contains(got, "a; b") {
		t.Fatalf("joined messages: %q", got)
	}
	if got := ErrNotLoaded("m1").Error(); got != "model not loaded: m1" {
		t.Fatalf("message: %q", got)
	}
	cause := errors.New("disk gone")
	le := ErrLoad("m1", cause)
	if !errors.Is(le, cause) {
		t.Fatalf("load error must unwrap its cause")
	}
	pe := ErrPrediction("m1", cause)
	if !errors.Is(pe, cause) {
		t.Fatalf("prediction error must unwrap its cause")
	}
}
