package workload

import (
	"testing"
	"time"
)

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.APIBaseURL != "http://localhost:8080" {
		t.Fatalf("api base url = %q", cfg.APIBaseURL)
	}
	if cfg.Dataset != "sales" {
		t.Fatalf("dataset = %q", cfg.Dataset)
	}
	if cfg.Interval != 2*time.Second {
		t.Fatalf("interval = %v", cfg.Interval)
	}
}

func TestLoadConfigOverridesAndTrimsBaseURL(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapLookup(map[string]string{
		"CUBEGATE_DEMO_API_URL":  " http://gateway:9090/ ",
		"CUBEGATE_DEMO_DATASET":  "Finance",
		"CUBEGATE_DEMO_INTERVAL": "500ms",
		"CUBEGATE_DEMO_SEED":     "42",
	}))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.APIBaseURL != "http://gateway:9090" {
		t.Fatalf("api base url = %q", cfg.APIBaseURL)
	}
	if cfg.Dataset != "Finance" {
		t.Fatalf("dataset = %q", cfg.Dataset)
	}
	if cfg.Interval != 500*time.Millisecond {
		t.Fatalf("interval = %v", cfg.Interval)
	}
	if cfg.Seed != 42 {
		t.Fatalf("seed = %d", cfg.Seed)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"bad interval":  {"CUBEGATE_DEMO_INTERVAL": "soon"},
		"zero interval": {"CUBEGATE_DEMO_INTERVAL": "0s"},
		"bad seed":      {"CUBEGATE_DEMO_SEED": "not-a-number"},
		"empty dataset": {"CUBEGATE_DEMO_DATASET": "  "},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfigFromEnv(mapLookup(env)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
