package envelope

import (
	"errors"
	"testing"
)

func validEnvelope() *Envelope {
	return &Envelope{
		DeviceKey: "dev-1",
		Topic:     "t",
		Payload: Payload{
			Version: "1.0",
			Metrics: map[string]any{"temperature": 20.0},
		},
	}
}

func TestValidate_OK(t *testing.T) {
	if err := Validate(validEnvelope()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_NilEventTimeIsValid(t *testing.T) {
	env := validEnvelope()
	env.EventTime = nil
	if err := Validate(env); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Envelope)
		field  string
	}{
		{"empty device_key", func(e *Envelope) { e.DeviceKey = "" }, "device_key"},
		{"empty topic", func(e *Envelope) { e.Topic = "" }, "topic"},
		{"empty version", func(e *Envelope) { e.Payload.Version = "" }, "payload.version"},
		{"nil metrics", func(e *Envelope) { e.Payload.Metrics = nil }, "payload.metrics"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := validEnvelope()
			tc.mutate(env)

			err := Validate(env)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err: got %v, want *ValidationError", err)
			}
			if ve.Field != tc.field {
				t.Errorf("field: got %q, want %q", ve.Field, tc.field)
			}
		})
	}
}

func TestValidate_DoesNotJudgeRanges(t *testing.T) {
	env := validEnvelope()
	env.Payload.Metrics["temperature"] = 9999.0
	if err := Validate(env); err != nil {
		t.Fatalf("out-of-range value must pass shape validation, got %v", err)
	}
}
