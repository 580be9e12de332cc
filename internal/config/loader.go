package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/mail"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// EnvFileVariable names the variable that points at an optional dotenv file.
const EnvFileVariable = "PORTAL_ENV_FILE"

const defaultEnvFile = ".env"

// Config captures environment driven configuration values for the portal.
type Config struct {
	HTTPPort           int
	SQLiteDSN          string
	Location           *time.Location
	WebhookSecret      string
	StaffEmails        []string
	PaymentSweep       string
	ReminderSweep      string
	ReminderWindowDays int
	MaxOccurrences     int
	InstitutionName    string
	RegistrarName      string
}

// Load parses configuration values from the process environment, falling
// back to a dotenv file. Variables already set in the environment win over
// the file. The file named by PORTAL_ENV_FILE must exist; the default .env
// is optional.
//
// The loader applies defaults for optional fields and reports every missing
// or invalid variable in a single error.
func Load() (Config, error) {
	file, err := readEnvFile()
	if err != nil {
		return Config{}, err
	}
	lookup := func(key string) string {
		if value, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(value)
		}
		return strings.TrimSpace(file[key])
	}

	cfg := Config{
		HTTPPort:           8080,
		SQLiteDSN:          "file:portal.db?_pragma=foreign_keys(1)",
		PaymentSweep:       "@every 15m",
		ReminderSweep:      "0 8 * * *",
		ReminderWindowDays: 30,
		MaxOccurrences:     100,
		InstitutionName:    "Campus University",
		RegistrarName:      "Office of the University Registrar",
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 4)

	if portValue := lookup("PORTAL_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "PORTAL_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := lookup("PORTAL_SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	zone := lookup("PORTAL_TIMEZONE")
	if zone == "" {
		zone = "Asia/Manila"
	}
	if loc, err := time.LoadLocation(zone); err != nil {
		invalid = append(invalid, "PORTAL_TIMEZONE")
	} else {
		cfg.Location = loc
	}

	if secret := lookup("PORTAL_WEBHOOK_SECRET"); secret == "" {
		missing = append(missing, "PORTAL_WEBHOOK_SECRET")
	} else {
		cfg.WebhookSecret = secret
	}

	if emails := lookup("PORTAL_STAFF_EMAILS"); emails != "" {
		for _, raw := range strings.Split(emails, ",") {
			address := strings.TrimSpace(raw)
			if address == "" {
				continue
			}
			if _, err := mail.ParseAddress(address); err != nil {
				invalid = append(invalid, "PORTAL_STAFF_EMAILS")
				break
			}
			cfg.StaffEmails = append(cfg.StaffEmails, address)
		}
	}

	if spec := lookup("PORTAL_PAYMENT_SWEEP"); spec != "" {
		cfg.PaymentSweep = spec
	}
	if _, err := cron.ParseStandard(cfg.PaymentSweep); err != nil {
		invalid = append(invalid, "PORTAL_PAYMENT_SWEEP")
	}

	if spec := lookup("PORTAL_REMINDER_SWEEP"); spec != "" {
		cfg.ReminderSweep = spec
	}
	if _, err := cron.ParseStandard(cfg.ReminderSweep); err != nil {
		invalid = append(invalid, "PORTAL_REMINDER_SWEEP")
	}

	if daysValue := lookup("PORTAL_REMINDER_WINDOW_DAYS"); daysValue != "" {
		days, err := strconv.Atoi(daysValue)
		if err != nil || days <= 0 {
			invalid = append(invalid, "PORTAL_REMINDER_WINDOW_DAYS")
		} else {
			cfg.ReminderWindowDays = days
		}
	}

	if maxValue := lookup("PORTAL_MAX_OCCURRENCES"); maxValue != "" {
		max, err := strconv.Atoi(maxValue)
		if err != nil || max <= 0 {
			invalid = append(invalid, "PORTAL_MAX_OCCURRENCES")
		} else {
			cfg.MaxOccurrences = max
		}
	}

	if name := lookup("PORTAL_INSTITUTION_NAME"); name != "" {
		cfg.InstitutionName = name
	}
	if name := lookup("PORTAL_REGISTRAR_NAME"); name != "" {
		cfg.RegistrarName = name
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", ")))
	}
	if len(invalid) > 0 {
		errs = append(errs, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", ")))
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	return cfg, nil
}

func readEnvFile() (map[string]string, error) {
	path, explicit := os.LookupEnv(EnvFileVariable)
	if !explicit || strings.TrimSpace(path) == "" {
		path = defaultEnvFile
		explicit = false
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return values, nil
}
