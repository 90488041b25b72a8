package backend

import (
	"testing"

	"finanz/internal/config"
)

func TestBackendType_IsValid(t *testing.T) {
	tests := []struct {
		bt    BackendType
		valid bool
	}{
		{PostgresBackend, true},
		{SQLiteBackend, true},
		{BackendType("mysql"), false},
		{BackendType(""), false},
	}

	for _, tt := range tests {
		if got := tt.bt.IsValid(); got != tt.valid {
			t.Errorf("IsValid(%q) = %v, want %v", tt.bt, got, tt.valid)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "postgres with DSN",
			cfg:     Config{Type: PostgresBackend, PostgresDSN: "postgres://localhost/finanz"},
			wantErr: false,
		},
		{
			name:    "postgres without DSN",
			cfg:     Config{Type: PostgresBackend},
			wantErr: true,
		},
		{
			name:    "sqlite with path",
			cfg:     Config{Type: SQLiteBackend, SQLiteDBPath: "./test.db"},
			wantErr: false,
		},
		{
			name:    "sqlite without path",
			cfg:     Config{Type: SQLiteBackend},
			wantErr: true,
		},
		{
			name:    "unknown type",
			cfg:     Config{Type: BackendType("memory")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	appCfg := &config.Config{
		DataBackend:  "sqlite",
		SQLiteDBPath: "./data/finanz.db",
		PostgresDSN:  "postgres://localhost/finanz",
	}

	cfg, err := FromAppConfig(appCfg)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != SQLiteBackend {
		t.Errorf("Type = %v, want sqlite", cfg.Type)
	}
	if cfg.SQLiteDBPath != "./data/finanz.db" {
		t.Errorf("SQLiteDBPath = %q", cfg.SQLiteDBPath)
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Error("FromAppConfig(nil) should fail")
	}

	appCfg.DataBackend = "sheets"
	if _, err := FromAppConfig(appCfg); err == nil {
		t.Error("FromAppConfig with unknown backend should fail")
	}
}
