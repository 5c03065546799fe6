package config

import (
	"fmt"
	"net/url"
	"strings"
)

func (c *Config) normalize() error {
	defaults := Default()

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaults.Paths.DataDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaults.Paths.LogDir
	}
	for _, field := range []*string{&c.Paths.DataDir, &c.Paths.LogDir} {
		expanded, err := ExpandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}

	if c.Workshop.SearchMaxPages <= 0 {
		c.Workshop.SearchMaxPages = defaults.Workshop.SearchMaxPages
	}
	if c.Workshop.CatalogMaxPages <= 0 {
		c.Workshop.CatalogMaxPages = defaults.Workshop.CatalogMaxPages
	}
	c.Workshop.BaseURL = strings.TrimRight(strings.TrimSpace(c.Workshop.BaseURL), "/")

	if c.Scheduler.RequestFloorMS <= 0 {
		c.Scheduler.RequestFloorMS = defaults.Scheduler.RequestFloorMS
	}
	if c.Scheduler.InitialRetryMS <= 0 {
		c.Scheduler.InitialRetryMS = defaults.Scheduler.InitialRetryMS
	}
	if c.Scheduler.RetryMS <= 0 {
		c.Scheduler.RetryMS = defaults.Scheduler.RetryMS
	}
	if c.Scheduler.MaxRetries < 0 {
		c.Scheduler.MaxRetries = defaults.Scheduler.MaxRetries
	}

	if c.Verify.PollIntervalMS <= 0 {
		c.Verify.PollIntervalMS = defaults.Verify.PollIntervalMS
	}
	c.Verify.BaseURL = strings.TrimRight(strings.TrimSpace(c.Verify.BaseURL), "/")

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaults.Logging.Format
	}

	return nil
}

// Validate reports configuration values that cannot be used.
func (c *Config) Validate() error {
	if c.Workshop.BaseURL != "" {
		if err := validateURL("workshop.base_url", c.Workshop.BaseURL); err != nil {
			return err
		}
	}
	if c.Verify.BaseURL != "" {
		if err := validateURL("verify.base_url", c.Verify.BaseURL); err != nil {
			return err
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}

	return nil
}

func validateURL(field, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s: scheme must be http or https", field)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s: missing host", field)
	}
	return nil
}
