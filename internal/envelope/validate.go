package envelope

// Validate checks env against the canonical contract shape: required fields
// present with the right primitive types. It does not judge domain ranges;
// out-of-range sensor values are a classification concern, not a schema one.
//
// A non-nil return aborts the pipeline for this message. The caller decides
// whether to surface, log, or drop; validation failures are never retried.
func Validate(env *Envelope) error {
	if env == nil {
		return &ValidationError{Field: "envelope", Detail: "must not be nil"}
	}
	if env.DeviceKey == "" {
		return &ValidationError{Field: "device_key", Detail: "must be a non-empty string"}
	}
	if env.Topic == "" {
		return &ValidationError{Field: "topic", Detail: "must be a non-empty string"}
	}
	if env.Payload.Version == "" {
		return &ValidationError{Field: "payload.version", Detail: "must be a non-empty string"}
	}
	if env.Payload.Metrics == nil {
		return &ValidationError{Field: "payload.metrics", Detail: "must be a mapping"}
	}
	return nil
}
