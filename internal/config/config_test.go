package config

import (
	"testing"

	"evdealer/backend/internal/domain"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "0")
	t.Setenv("INSTALLMENT_RATE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("expected :8080, got %s", cfg.Address())
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected ttl fallback 480, got %d", cfg.AccessTokenTTLMinutes)
	}
	if cfg.InstallmentRate != 6.0 {
		t.Fatalf("expected default rate 6.0, got %v", cfg.InstallmentRate)
	}
}

func TestLoadRejectsNegativeRate(t *testing.T) {
	t.Setenv("INSTALLMENT_RATE", "-1")
	if _, err := Load(); err == nil {
		t.Fatalf("expected negative rate to be rejected")
	}
}

func TestSeeds(t *testing.T) {
	cfg := Config{SeedUsers: "rina:secret:dealer_staff, budi:pa:ss:DEALER_MANAGER"}
	seeds, err := cfg.Seeds()
	if err != nil {
		t.Fatalf("seeds with ':' in password: %v", err)
	}
	if seeds[1].Username != "budi" || seeds[1].Password != "pa:ss" || seeds[1].Role != domain.RoleDealerManager {
		t.Fatalf("unexpected seed %+v", seeds[1])
	}

	if _, err := (Config{SeedUsers: "budi:pa:ss:CASHIER"}).Seeds(); err == nil {
		t.Fatalf("expected unknown role to fail")
	}
	if _, err := (Config{SeedUsers: "budi::DEALER_STAFF"}).Seeds(); err == nil {
		t.Fatalf("expected empty password to fail")
	}

	cfg = Config{SeedUsers: "rina:secret:dealer_staff,evm:pw:EVM_STAFF"}
	seeds, err = cfg.Seeds()
	if err != nil {
		t.Fatalf("seeds: %v", err)
	}
	if len(seeds) != 2 {
		t.Fatalf("expected 2 seeds, got %d", len(seeds))
	}
	if seeds[0].Role != domain.RoleDealerStaff || seeds[1].Role != domain.RoleEVMStaff {
		t.Fatalf("unexpected roles: %+v", seeds)
	}

	if _, err := (Config{SeedUsers: "nobody:pw"}).Seeds(); err == nil {
		t.Fatalf("expected malformed entry to fail")
	}
}
