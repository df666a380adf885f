package nodetracer

import (
	"errors"
	"strings"
	"testing"
)

func TestGraphConsistencyErrorMessage(t *testing.T) {
	err := consistencyErrorf("duplicate node id %q", "n1")
	if !strings.Contains(err.Error(), `duplicate node id "n1"`) {
		t.Errorf("Unexpected message %q", err.Error())
	}

	var gce *GraphConsistencyError
	if !errors.As(error(err), &gce) {
		t.Error("Expected errors.As to match GraphConsistencyError")
	}
}

func TestDeserializationErrorUnwrap(t *testing.T) {
	cause := consistencyErrorf("unknown status %q", "paused")
	err := deserializationErrorf(cause, "trace %q", "t1")

	if !strings.Contains(err.Error(), "deserialize") {
		t.Errorf("Unexpected message %q", err.Error())
	}
	var gce *GraphConsistencyError
	if !errors.As(error(err), &gce) {
		t.Error("Expected wrapped cause to be reachable via errors.As")
	}

	bare := deserializationErrorf(nil, "missing trace_id")
	if bare.Unwrap() != nil {
		t.Error("Expected nil unwrap without a cause")
	}
}
