package main

import "testing"

func TestLoadDatabaseConfigPrefersFlags(t *testing.T) {
	t.Setenv("DATABASE_HOST", "env-host")
	t.Setenv("DATABASE_PORT", "6543")
	t.Setenv("POSTGRES_DB", "env-db")
	t.Setenv("POSTGRES_USER", "env-user")
	t.Setenv("POSTGRES_PASSWORD", "env-pass")
	t.Setenv("DATABASE_SSLMODE", "")

	cfg, err := loadDatabaseConfig("flag-host", 0, "", "", "", "")
	if err != nil {
		t.Fatalf("loadDatabaseConfig: %v", err)
	}
	if cfg.Host != "flag-host" || cfg.Port != 6543 || cfg.Name != "env-db" || cfg.SSLMode != "disable" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadDatabaseConfigRequiresCredentials(t *testing.T) {
	t.Setenv("POSTGRES_DB", "db")
	t.Setenv("POSTGRES_USER", "")
	t.Setenv("POSTGRES_PASSWORD", "")
	if _, err := loadDatabaseConfig("", 0, "", "", "", ""); err == nil {
		t.Fatal("expected missing user to fail")
	}
}
