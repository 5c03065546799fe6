package config

import (
	"os"
	"path/filepath"
)

// Default returns a configuration populated with standard values.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".local", "share", "modwatch")

	return &Config{
		Paths: Paths{
			DataDir: base,
			LogDir:  filepath.Join(base, "logs"),
		},
		Workshop: Workshop{
			BaseURL:         "",
			SearchMaxPages:  50,
			CatalogMaxPages: 20,
		},
		Scheduler: Scheduler{
			RequestFloorMS: 3500,
			InitialRetryMS: 6000,
			RetryMS:        15000,
			MaxRetries:     5,
		},
		Verify: Verify{
			BaseURL:        "http://127.0.0.1:8422",
			PollIntervalMS: 500,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}
