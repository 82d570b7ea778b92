package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "autotidal.db" {
			t.Errorf("expected database path autotidal.db, got %s", config.Database.Path)
		}

		if config.Library.LedgerPath != "not_found.csv" {
			t.Errorf("expected ledger path not_found.csv, got %s", config.Library.LedgerPath)
		}

		if config.Credentials.Tidal.CountryCode != "US" {
			t.Errorf("expected country code US, got %s", config.Credentials.Tidal.CountryCode)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"
max_open_conns = 20
max_idle_conns = 10

[library]
export_path = "exports/playlist_tracks.csv"
ledger_path = "exports/not_found.csv"

[credentials.tidal]
client_id = "test_client_id"
client_secret = "test_secret"
token_path = "/tmp/token.json"
country_code = "AU"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Library.ExportPath != "exports/playlist_tracks.csv" {
			t.Errorf("expected export path exports/playlist_tracks.csv, got %s", config.Library.ExportPath)
		}

		if config.Credentials.Tidal.ClientID != "test_client_id" {
			t.Errorf("expected tidal client_id test_client_id, got %s", config.Credentials.Tidal.ClientID)
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing config file")
		}
	})
}
