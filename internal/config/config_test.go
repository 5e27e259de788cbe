package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Port:                "8082",
		DataBackend:         "memory",
		SQLiteDBPath:        "./data/jarvis.db",
		GeminiModel:         "gemini-2.0-flash",
		ConfidenceThreshold: 0.6,
		HistoryLimit:        5,
		RecurringBatch:      50,
		HistoryCacheSize:    1000,
		HistoryCacheTTL:     30 * time.Minute,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantErr  bool
		errPart  string
	}{
		{
			name:    "valid memory backend config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "valid sqlite backend config",
			mutate: func(c *Config) {
				c.DataBackend = "sqlite"
			},
			wantErr: false,
		},
		{
			name: "invalid port - non-numeric",
			mutate: func(c *Config) {
				c.Port = "abc"
			},
			wantErr: true,
			errPart: "invalid port 'abc'",
		},
		{
			name: "invalid port - out of range",
			mutate: func(c *Config) {
				c.Port = "70000"
			},
			wantErr: true,
			errPart: "must be between 1 and 65535",
		},
		{
			name: "unknown backend",
			mutate: func(c *Config) {
				c.DataBackend = "postgres"
			},
			wantErr: true,
			errPart: "invalid data backend",
		},
		{
			name: "sqlite backend without path",
			mutate: func(c *Config) {
				c.DataBackend = "sqlite"
				c.SQLiteDBPath = "  "
			},
			wantErr: true,
			errPart: "requires SQLITE_DB_PATH",
		},
		{
			name: "empty model",
			mutate: func(c *Config) {
				c.GeminiModel = ""
			},
			wantErr: true,
			errPart: "gemini model",
		},
		{
			name: "threshold above one",
			mutate: func(c *Config) {
				c.ConfidenceThreshold = 1.5
			},
			wantErr: true,
			errPart: "confidence threshold",
		},
		{
			name: "multiple errors are joined",
			mutate: func(c *Config) {
				c.Port = "abc"
				c.ConfidenceThreshold = -1
			},
			wantErr: true,
			errPart: "; ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && tt.errPart != "" && !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("Validate() error = %q, want it to contain %q", err.Error(), tt.errPart)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8082" {
		t.Errorf("Port = %q, want 8082", cfg.Port)
	}
	if cfg.DataBackend != "memory" {
		t.Errorf("DataBackend = %q, want memory", cfg.DataBackend)
	}
	if cfg.ConfidenceThreshold != 0.6 {
		t.Errorf("ConfidenceThreshold = %v, want 0.6", cfg.ConfidenceThreshold)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}
