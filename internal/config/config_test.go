package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	p := writeConfig(t, `server: {}
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", cfg.Server.HTTPPort, DefaultHTTPPort)
	}
	if cfg.Server.StreamInterval != DefaultStreamInterval {
		t.Errorf("stream_interval: got %v, want %v", cfg.Server.StreamInterval, DefaultStreamInterval)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("storage.driver: got %q, want memory", cfg.Storage.Driver)
	}
	if cfg.Redis.Enabled() || cfg.MQTT.Enabled() || cfg.Scrape.Enabled() {
		t.Errorf("optional subsystems must default to disabled")
	}
	want := []string{"used_memory", "used_storage", "cpuusage", "temperature"}
	if len(cfg.Classifier.FeatureKeys) != len(want) {
		t.Fatalf("feature_keys: got %v, want %v", cfg.Classifier.FeatureKeys, want)
	}
	for i, k := range want {
		if cfg.Classifier.FeatureKeys[i] != k {
			t.Errorf("feature_keys[%d]: got %q, want %q", i, cfg.Classifier.FeatureKeys[i], k)
		}
	}
}

func TestLoad_Full(t *testing.T) {
	p := writeConfig(t, `server:
  http_port: 9090
  stream_interval: 2s
  auth:
    mode: apikey
    key_env: EP_API_KEY
    header: x-ep-key
storage:
  driver: postgres
  dsn_env: EP_DB_DSN
redis:
  addr: "localhost:6379"
  state_ttl: 90s
mqtt:
  broker: "tcp://localhost:1883"
  client_id: ep-1
  qos: 1
  topics: ["factory/+/telemetry"]
classifier:
  artifact_path: model/artifact.json
  watch: true
scrape:
  interval: 15s
  targets:
    - device_key: gw-1
      endpoint: http://gw-1:9100/metrics
      metrics:
        node_cpu_percent: cpuusage
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != 9090 {
		t.Errorf("http_port: got %d, want 9090", cfg.Server.HTTPPort)
	}
	if cfg.Server.Auth.EffectiveHeader() != "x-ep-key" {
		t.Errorf("auth header: got %q, want x-ep-key", cfg.Server.Auth.EffectiveHeader())
	}
	if !cfg.Redis.Enabled() || cfg.Redis.StateTTL != 90*time.Second {
		t.Errorf("redis: got %+v", cfg.Redis)
	}
	if !cfg.MQTT.Enabled() || cfg.MQTT.Topics[0] != "factory/+/telemetry" {
		t.Errorf("mqtt: got %+v", cfg.MQTT)
	}
	if !cfg.Scrape.Enabled() || cfg.Scrape.Targets[0].Metrics["node_cpu_percent"] != "cpuusage" {
		t.Errorf("scrape: got %+v", cfg.Scrape)
	}
}

func TestLoad_EnvResolution(t *testing.T) {
	t.Setenv("EP_TEST_KEY", "s3cret")
	t.Setenv("EP_TEST_DSN", "postgres://localhost/ep")

	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: EP_TEST_KEY
storage:
  driver: postgres
  dsn_env: EP_TEST_DSN
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Auth.Key() != "s3cret" {
		t.Errorf("auth key: got %q, want s3cret", cfg.Server.Auth.Key())
	}
	if cfg.Storage.DSN() != "postgres://localhost/ep" {
		t.Errorf("dsn: got %q", cfg.Storage.DSN())
	}
	if cfg.Server.Auth.EffectiveHeader() != "x-api-key" {
		t.Errorf("default header: got %q, want x-api-key", cfg.Server.Auth.EffectiveHeader())
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad port", "server:\n  http_port: 99999\n", "http_port"},
		{"bad auth mode", "server:\n  auth:\n    mode: oauth\n", "auth.mode"},
		{"bad driver", "storage:\n  driver: sqlite\n", "storage.driver"},
		{"postgres without dsn", "storage:\n  driver: postgres\n", "dsn_env"},
		{"bad qos", "mqtt:\n  broker: tcp://x\n  qos: 7\n  topics: [a]\n", "qos"},
		{"broker without topics", "mqtt:\n  broker: tcp://x\n", "topics"},
		{"watch without artifact", "classifier:\n  watch: true\n", "artifact_path"},
		{"target without endpoint", "scrape:\n  targets:\n    - device_key: a\n", "endpoint"},
		{"not yaml", "{{{", "parse yaml"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			if err == nil {
				t.Fatalf("Load: expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("err: got %q, want it to mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("Load: expected error for missing file")
	}
}
