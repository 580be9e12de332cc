package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var portalVariables = []string{
	"PORTAL_HTTP_PORT",
	"PORTAL_SQLITE_DSN",
	"PORTAL_TIMEZONE",
	"PORTAL_WEBHOOK_SECRET",
	"PORTAL_STAFF_EMAILS",
	"PORTAL_PAYMENT_SWEEP",
	"PORTAL_REMINDER_SWEEP",
	"PORTAL_REMINDER_WINDOW_DAYS",
	"PORTAL_MAX_OCCURRENCES",
	"PORTAL_INSTITUTION_NAME",
	"PORTAL_REGISTRAR_NAME",
}

// clearEnvironment unsets the portal variables for the duration of the test
// and points the loader at an empty directory so no stray .env is read.
func clearEnvironment(t *testing.T) {
	t.Helper()
	for _, key := range append(portalVariables, EnvFileVariable) {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
	t.Chdir(t.TempDir())
}

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnvironment(t)
		t.Setenv("PORTAL_WEBHOOK_SECRET", "whsec-test")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file:portal.db?_pragma=foreign_keys(1)" {
			t.Fatalf("unexpected default DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.Location == nil || cfg.Location.String() != "Asia/Manila" {
			t.Fatalf("expected Asia/Manila, got %v", cfg.Location)
		}
		if cfg.PaymentSweep != "@every 15m" || cfg.ReminderSweep != "0 8 * * *" {
			t.Fatalf("unexpected sweep defaults %q %q", cfg.PaymentSweep, cfg.ReminderSweep)
		}
		if cfg.ReminderWindowDays != 30 || cfg.MaxOccurrences != 100 {
			t.Fatalf("unexpected numeric defaults %d %d", cfg.ReminderWindowDays, cfg.MaxOccurrences)
		}
		if len(cfg.StaffEmails) != 0 {
			t.Fatalf("expected no staff emails, got %v", cfg.StaffEmails)
		}
	})

	t.Run("errors when required values are missing", func(t *testing.T) {
		clearEnvironment(t)

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error when required values are missing")
		}
		expected := "missing required environment variables: PORTAL_WEBHOOK_SECRET"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("parses explicit values", func(t *testing.T) {
		clearEnvironment(t)
		t.Setenv("PORTAL_WEBHOOK_SECRET", "whsec-test")
		t.Setenv("PORTAL_HTTP_PORT", "9090")
		t.Setenv("PORTAL_SQLITE_DSN", "file:/tmp/portal.db")
		t.Setenv("PORTAL_TIMEZONE", "UTC")
		t.Setenv("PORTAL_STAFF_EMAILS", "registrar@campus.test, cashier@campus.test,")
		t.Setenv("PORTAL_PAYMENT_SWEEP", "*/5 * * * *")
		t.Setenv("PORTAL_REMINDER_WINDOW_DAYS", "14")
		t.Setenv("PORTAL_MAX_OCCURRENCES", "52")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 || cfg.SQLiteDSN != "file:/tmp/portal.db" {
			t.Fatalf("unexpected port or DSN: %d %q", cfg.HTTPPort, cfg.SQLiteDSN)
		}
		if cfg.Location.String() != "UTC" {
			t.Fatalf("expected UTC, got %v", cfg.Location)
		}
		if len(cfg.StaffEmails) != 2 || cfg.StaffEmails[1] != "cashier@campus.test" {
			t.Fatalf("unexpected staff emails %v", cfg.StaffEmails)
		}
		if cfg.PaymentSweep != "*/5 * * * *" || cfg.ReminderWindowDays != 14 || cfg.MaxOccurrences != 52 {
			t.Fatalf("unexpected parsed config %+v", cfg)
		}
	})

	t.Run("reports every invalid value", func(t *testing.T) {
		clearEnvironment(t)
		t.Setenv("PORTAL_WEBHOOK_SECRET", "whsec-test")
		t.Setenv("PORTAL_HTTP_PORT", "not-a-port")
		t.Setenv("PORTAL_TIMEZONE", "Mars/Olympus_Mons")
		t.Setenv("PORTAL_STAFF_EMAILS", "registrar")
		t.Setenv("PORTAL_REMINDER_SWEEP", "daily at eight")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error for invalid values")
		}
		for _, key := range []string{"PORTAL_HTTP_PORT", "PORTAL_TIMEZONE", "PORTAL_STAFF_EMAILS", "PORTAL_REMINDER_SWEEP"} {
			if !strings.Contains(err.Error(), key) {
				t.Fatalf("expected %s in error %q", key, err.Error())
			}
		}
	})

	t.Run("reads a dotenv file without overriding the environment", func(t *testing.T) {
		clearEnvironment(t)
		path := filepath.Join(t.TempDir(), "portal.env")
		contents := "PORTAL_WEBHOOK_SECRET=from-file\nPORTAL_HTTP_PORT=7070\nPORTAL_REGISTRAR_NAME=\"Records Office\"\n"
		if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Setenv(EnvFileVariable, path)
		t.Setenv("PORTAL_HTTP_PORT", "6060")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.WebhookSecret != "from-file" || cfg.RegistrarName != "Records Office" {
			t.Fatalf("expected values from file, got %+v", cfg)
		}
		if cfg.HTTPPort != 6060 {
			t.Fatalf("expected environment to win, got port %d", cfg.HTTPPort)
		}
	})

	t.Run("requires an explicitly named env file", func(t *testing.T) {
		clearEnvironment(t)
		t.Setenv(EnvFileVariable, filepath.Join(t.TempDir(), "missing.env"))

		if _, err := Load(); err == nil || !strings.Contains(err.Error(), "missing.env") {
			t.Fatalf("expected error naming the missing file, got %v", err)
		}
	})
}
