package datastore

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Property names recognized by ConfigFromMap and LoadConfig. Each may also
// be given with PropertyPrefix, e.g. "grid.dynamodb.host".
const (
	PropDatabase = "database"
	PropHost     = "host"
	PropPort     = "port"
	PropUser     = "user"
	PropPassword = "password"
	PropRegion   = "region"

	PropertyPrefix = "grid.dynamodb."
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "us-east-1"

var (
	// ErrIncompleteConfig is returned when a required property is missing.
	ErrIncompleteConfig = errors.New("datastore: incomplete configuration")

	// ErrInvalidConfig is returned when a property cannot be parsed.
	ErrInvalidConfig = errors.New("datastore: invalid configuration")
)

// Config describes how to reach the backend. It is a value; copies are
// independent.
type Config struct {
	// Database namespaces every table: grid table "Account" in database
	// "shop" is stored as "shop.Account".
	Database string
	Host     string
	Port     int
	User     string
	Password string

	// Region defaults to DefaultRegion.
	Region string
}

// Endpoint returns the base URL of the backend.
func (c Config) Endpoint() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.Port)
}

// Validate reports ErrIncompleteConfig when a required field is empty.
func (c Config) Validate() error {
	var missing []string
	if c.Database == "" {
		missing = append(missing, PropDatabase)
	}
	if c.Host == "" {
		missing = append(missing, PropHost)
	}
	if c.Port == 0 {
		missing = append(missing, PropPort)
	}
	if c.User == "" {
		missing = append(missing, PropUser)
	}
	if c.Password == "" {
		missing = append(missing, PropPassword)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteConfig, strings.Join(missing, ", "))
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	return nil
}

// ConfigFromMap builds a Config from flat properties. All of database, host,
// port, user and password are required; a partial set is rejected whole.
func ConfigFromMap(props map[string]string) (Config, error) {
	get := func(name string) string {
		if v, ok := props[PropertyPrefix+name]; ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(props[name])
	}

	cfg := Config{
		Database: get(PropDatabase),
		Host:     get(PropHost),
		User:     get(PropUser),
		Password: get(PropPassword),
		Region:   get(PropRegion),
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}

	if port := get(PropPort); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return Config{}, fmt.Errorf("%w: port %q is not a number", ErrInvalidConfig, port)
		}
		cfg.Port = n
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads flat properties from a YAML file and passes them to
// ConfigFromMap.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var props map[string]string
	if err := yaml.Unmarshal(data, &props); err != nil {
		return Config{}, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
	}
	return ConfigFromMap(props)
}
