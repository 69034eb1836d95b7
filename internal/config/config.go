package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// DefaultPath is the credentials file consulted when --config is not given.
const DefaultPath = "aws_details.json"

// Settings holds everything dwctl needs at startup: AWS credentials and
// region, plus the master credentials for the warehouse database. The values
// are never written anywhere; they only feed the SDK client and the
// connection secret.
type Settings struct {
	AccessKeyID     string `json:"aws_access_key_id"`
	SecretAccessKey string `json:"aws_secret_access_key"`
	Region          string `json:"region"`
	DBUsername      string `json:"DB_username"`
	DBPassword      string `json:"DB_password"`

	// NameSuffix is appended to bucket names to keep them globally unique.
	NameSuffix string `json:"name_suffix,omitempty"`
}

// Load reads the settings JSON file, applies environment overrides and
// validates the result. A missing or malformed file is fatal to the caller:
// no provisioning may be attempted with incomplete credentials.
func Load(path string) (*Settings, error) {
	// A .env file next to the working directory may override individual
	// fields; absence is not an error.
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var s Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(&s)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func applyEnvOverrides(s *Settings) {
	if v := os.Getenv("DWCTL_ACCESS_KEY_ID"); v != "" {
		s.AccessKeyID = v
	}
	if v := os.Getenv("DWCTL_SECRET_ACCESS_KEY"); v != "" {
		s.SecretAccessKey = v
	}
	if v := os.Getenv("DWCTL_REGION"); v != "" {
		s.Region = v
	}
	if v := os.Getenv("DWCTL_DB_USERNAME"); v != "" {
		s.DBUsername = v
	}
	if v := os.Getenv("DWCTL_DB_PASSWORD"); v != "" {
		s.DBPassword = v
	}
	if v := os.Getenv("DWCTL_NAME_SUFFIX"); v != "" {
		s.NameSuffix = v
	}
}

// Validate checks that every required field is present.
func (s *Settings) Validate() error {
	missing := func(field string) error {
		return fmt.Errorf("config field %s is required", field)
	}
	switch {
	case s.AccessKeyID == "":
		return missing("aws_access_key_id")
	case s.SecretAccessKey == "":
		return missing("aws_secret_access_key")
	case s.Region == "":
		return missing("region")
	case s.DBUsername == "":
		return missing("DB_username")
	case s.DBPassword == "":
		return missing("DB_password")
	}
	return nil
}
