package httpapi

import (
	"errors"
	"net/http"
	"testing"

	"inferd/internal/manager"
)

func TestStatusForErrorTaxonomy(t *testing.T) {
	cases := []struct {
		err          error
		code         int
		backpressure bool
	}{
		{manager.ErrUnknownModel("m"), http.StatusNotFound, false},
		{manager.ErrStaleResourceData(), http.StatusServiceUnavailable, false},
		{manager.ErrDependencyUnavailable("x"), http.StatusServiceUnavailable, false},
		{mockHTTPError{msg: "gone", code: http.StatusGone}, http.StatusGone, false},
		{errors.New("plain"), http.StatusInternalServerError, false},
	}
	for _, c := range cases {
		code, bp := statusForError(c.err)
		if code != c.code || bp != c.backpressure {
			t.Fatalf("err=%v: got (%d,%v) want (%d,%v)", c.err, code, bp, c.code, c.backpressure)
		}
	}
}

func TestBackpressureReasonDefault(t *testing.T) {
	if got := backpressureReason(errors.New("x")); got != "unspecified" {
		t.Fatalf("got %q", got)
	}
}
