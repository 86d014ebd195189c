package dedup

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/edgepulse/edgepulse/internal/envelope"
)

// Fingerprint returns the hex SHA-256 digest identifying this envelope's
// content: device_key, topic, event_time and the canonical payload bytes,
// joined with "|".
func Fingerprint(env *envelope.Envelope) (string, error) {
	payload, err := CanonicalPayload(env.Payload)
	if err != nil {
		return "", err
	}

	ts := ""
	if env.EventTime != nil {
		ts = env.EventTime.UTC().Format(time.RFC3339Nano)
	}

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|", env.DeviceKey, env.Topic, ts)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CanonicalPayload serializes the payload as JSON with keys sorted at every
// nesting level and shortest round-trip float formatting. Two payloads that
// are equal as values always serialize to identical bytes.
func CanonicalPayload(p envelope.Payload) ([]byte, error) {
	var buf bytes.Buffer
	err := writeCanonical(&buf, map[string]any{
		"version": p.Version,
		"metrics": p.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("canonicalize payload: %w", err)
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		enc, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(enc)
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return fmt.Errorf("value %v is not representable in JSON", val)
		}
		if val == math.Trunc(val) && math.Abs(val) < 1e15 {
			buf.WriteString(strconv.FormatInt(int64(val), 10))
		} else {
			buf.WriteString(strconv.FormatFloat(val, 'g', -1, 64))
		}
	case int:
		buf.WriteString(strconv.Itoa(val))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case json.Number:
		buf.WriteString(val.String())
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			enc, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(enc)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("cannot canonicalize value of type %T", v)
	}
	return nil
}
