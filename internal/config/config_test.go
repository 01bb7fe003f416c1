package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() Config {
	cfg := Config{}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected Port=8080, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if len(cfg.Embedding.Models) != 1 || cfg.Embedding.Models[0].Provider != LocalProvider {
		t.Errorf("expected a single local model by default, got %+v", cfg.Embedding.Models)
	}
	if cfg.Embedding.MaxBatchSize != 256 {
		t.Errorf("expected MaxBatchSize=256, got %d", cfg.Embedding.MaxBatchSize)
	}
	if cfg.Cache.Driver != "none" {
		t.Errorf("expected cache driver none, got %q", cfg.Cache.Driver)
	}
	if cfg.Index.Storage != "file" {
		t.Errorf("expected index storage file, got %q", cfg.Index.Storage)
	}
	if cfg.Matching.Threshold != 0.75 {
		t.Errorf("expected Threshold=0.75, got %v", cfg.Matching.Threshold)
	}
	if cfg.Matching.MinThreshold != 0.5 || cfg.Matching.MaxThreshold != 0.99 {
		t.Errorf("expected range [0.5, 0.99], got [%v, %v]", cfg.Matching.MinThreshold, cfg.Matching.MaxThreshold)
	}
	if cfg.Matching.ColumnSuffix != "_NORMALIZED" {
		t.Errorf("expected ColumnSuffix=_NORMALIZED, got %q", cfg.Matching.ColumnSuffix)
	}
	if cfg.Matching.ColumnFallback {
		t.Error("column fallback must be off by default")
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 9000, ReadTimeoutSec: 5},
		Matching: MatchingConfig{Threshold: 0.9, ColumnSuffix: "_STD"},
		Index:    IndexConfig{Storage: "sqlite", Path: "/tmp/idx.db"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 9000 {
		t.Errorf("expected Port=9000, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.ReadTimeoutSec != 5 {
		t.Errorf("expected ReadTimeoutSec=5, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Matching.Threshold != 0.9 {
		t.Errorf("expected Threshold=0.9, got %v", cfg.Matching.Threshold)
	}
	if cfg.Matching.ColumnSuffix != "_STD" {
		t.Errorf("expected ColumnSuffix=_STD, got %q", cfg.Matching.ColumnSuffix)
	}
	if cfg.Index.Path != "/tmp/idx.db" {
		t.Errorf("expected custom index path, got %q", cfg.Index.Path)
	}
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidate_UnknownProvider(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Models = []ModelConfig{{Provider: "nebius", Model: "e5"}}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for undefined provider")
	}
	expected := `embedding.models[0].provider "nebius" is not defined in embedding.providers`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_RemoteModelRequiresName(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Providers = map[string]ProviderConfig{"openai": {APIKey: "k"}}
	cfg.Embedding.Models = []ModelConfig{{Provider: "openai"}}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing model name")
	}
}

func TestValidate_CacheDrivers(t *testing.T) {
	tests := []struct {
		driver  string
		addrs   []string
		wantErr bool
	}{
		{"none", nil, false},
		{"memory", nil, false},
		{"redis", []string{"localhost:6379"}, false},
		{"valkey", nil, true},
		{"memcached", nil, true},
	}
	for _, tc := range tests {
		t.Run(tc.driver, func(t *testing.T) {
			cfg := validConfig()
			cfg.Cache.Driver = tc.driver
			cfg.Cache.Addrs = tc.addrs
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("driver %q: err=%v, wantErr=%v", tc.driver, err, tc.wantErr)
			}
		})
	}
}

func TestValidate_IndexStorage(t *testing.T) {
	cfg := validConfig()
	cfg.Index.Storage = "pickle"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown index storage")
	}
}

func TestValidate_ThresholdOutsideRange(t *testing.T) {
	cfg := validConfig()
	cfg.Matching.Threshold = 0.3
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for threshold below min")
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestModelConfig_ID(t *testing.T) {
	tests := []struct {
		m    ModelConfig
		want string
	}{
		{ModelConfig{Name: "primary", Provider: "openai", Model: "x"}, "primary"},
		{ModelConfig{Provider: "openai", Model: "text-embedding-3-small"}, "openai/text-embedding-3-small"},
		{ModelConfig{Provider: LocalProvider}, LocalProvider},
	}
	for _, tc := range tests {
		if got := tc.m.ID(); got != tc.want {
			t.Errorf("ID() = %q, want %q", got, tc.want)
		}
	}
}

func TestLoadFile_ExpandsEnv(t *testing.T) {
	t.Setenv("CANONIC_TEST_KEY", "sk-test")

	path := filepath.Join(t.TempDir(), "test.yaml")
	yml := `
embedding:
  providers:
    openai:
      api_key: ${CANONIC_TEST_KEY}
      base_url: ${CANONIC_TEST_URL:-https://api.openai.com/v1}
  models:
    - provider: openai
      model: text-embedding-3-small
    - provider: local
matching:
  threshold: 0.8
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := cfg.Embedding.Providers["openai"]
	if p.APIKey != "sk-test" {
		t.Errorf("expected api key from env, got %q", p.APIKey)
	}
	if p.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("expected default base url, got %q", p.BaseURL)
	}
	if len(cfg.Embedding.Models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(cfg.Embedding.Models))
	}
	if cfg.Matching.Threshold != 0.8 {
		t.Errorf("expected threshold 0.8, got %v", cfg.Matching.Threshold)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
