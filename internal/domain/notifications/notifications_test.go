package notifications

import (
	"encoding/json"
	"testing"
)

func TestDefaultsAreAllOn(t *testing.T) {
	s := Codec{}.Defaults()
	if !s.Email || !s.SMS || !s.AppointmentReminders || !s.LabResults {
		t.Errorf("every toggle must default to true, got %+v", s)
	}
}

func TestDecodePartialRecordKeepsDefaults(t *testing.T) {
	s, err := Codec{}.Decode(json.RawMessage(`{"sms_notifications": false}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.SMS {
		t.Error("expected sms off")
	}
	if !s.Email || !s.AppointmentReminders || !s.LabResults {
		t.Errorf("absent toggles must stay at their true default, got %+v", s)
	}
}

func TestRoundTripWithDefaults(t *testing.T) {
	off := false
	patch := Patch{LabResults: &off}

	wire, err := json.Marshal(Codec{}.EncodePatch(patch))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(wire) != `{"lab_results_notifications":false}` {
		t.Errorf("expected sparse snake_case patch, got %s", wire)
	}

	s, err := Codec{}.Decode(wire)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Codec{}.Merge(Codec{}.Defaults(), patch)
	if s != want {
		t.Errorf("round trip mismatch: got %+v want %+v", s, want)
	}
}
