package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"modwatch/internal/config"
	"modwatch/internal/dmca"
	"modwatch/internal/logging"
	"modwatch/internal/profile"
	"modwatch/internal/scheduler"
	"modwatch/internal/services"
	"modwatch/internal/services/verify"
	"modwatch/internal/services/workshop"
	"modwatch/internal/tracker"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// session bundles the store, active profile, and service clients a
// command needs, all built from one config load.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *profile.Store
	profile *profile.Profile
	sched   *scheduler.Scheduler
	manager *dmca.Manager
}

// withSession opens the store, loads the active profile, runs fn, and
// closes the store afterwards.
func (c *commandContext) withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	store, err := profile.Open(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	active, err := store.Active(ctx)
	if err != nil {
		return err
	}

	s := &session{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		profile: active,
		sched:   newSchedulerFromConfig(cfg),
	}

	// A typed nil client must not reach the Prober interface.
	if prober, err := s.workshopClient(); err == nil {
		s.manager = dmca.NewManager(store, prober, logger, dmca.WithPacer(s.sched))
	} else {
		s.manager = dmca.NewManager(store, nil, logger)
	}

	return fn(ctx, s)
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		OutputPaths: []string{
			filepath.Join(cfg.Paths.LogDir, "modwatch.log"),
		},
	})
}

func newSchedulerFromConfig(cfg *config.Config) *scheduler.Scheduler {
	return scheduler.New(
		time.Duration(cfg.Scheduler.RequestFloorMS)*time.Millisecond,
		time.Duration(cfg.Scheduler.InitialRetryMS)*time.Millisecond,
		time.Duration(cfg.Scheduler.RetryMS)*time.Millisecond,
		cfg.Scheduler.MaxRetries,
	)
}

// workshopClient builds the marketplace client, or reports that the
// base URL is not configured.
func (s *session) workshopClient() (*workshop.Client, error) {
	if strings.TrimSpace(s.cfg.Workshop.BaseURL) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "workshop", "client",
			"set workshop.base_url in the configuration file", nil)
	}
	return workshop.New(s.cfg.Workshop.BaseURL, s.sched)
}

func (s *session) trackerService() (*tracker.Service, error) {
	client, err := s.workshopClient()
	if err != nil {
		return nil, err
	}
	return tracker.New(s.store, client, s.sched, s.logger,
		s.cfg.Workshop.SearchMaxPages, s.cfg.Workshop.CatalogMaxPages), nil
}

func (s *session) verifyClient() (*verify.Client, error) {
	return verify.New(s.cfg.Verify.BaseURL,
		verify.WithPollInterval(time.Duration(s.cfg.Verify.PollIntervalMS)*time.Millisecond))
}

// resolveItem matches a tracked item by id, exact name, or unique name
// prefix.
func (s *session) resolveItem(ref string) (*profile.TrackedItem, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, services.Wrap(services.ErrValidation, "cli", "resolve item", "item name or id required", nil)
	}
	if item := s.profile.Item(ref); item != nil {
		return item, nil
	}
	for i := range s.profile.Items {
		if strings.EqualFold(s.profile.Items[i].Name, ref) {
			return &s.profile.Items[i], nil
		}
	}

	var matches []*profile.TrackedItem
	lowered := strings.ToLower(ref)
	for i := range s.profile.Items {
		if strings.HasPrefix(strings.ToLower(s.profile.Items[i].Name), lowered) {
			matches = append(matches, &s.profile.Items[i])
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nil, services.Wrap(services.ErrNotFound, "cli", "resolve item", fmt.Sprintf("no item matches %q", ref), nil)
	default:
		names := make([]string, 0, len(matches))
		for _, m := range matches {
			names = append(names, m.Name)
		}
		return nil, services.Wrap(services.ErrValidation, "cli", "resolve item",
			fmt.Sprintf("%q is ambiguous: %s", ref, strings.Join(names, ", ")), nil)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
