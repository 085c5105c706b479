package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"mediacheck/internal/config"
	"mediacheck/internal/inventory"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
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
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

// openInventory opens the existing inventory for read-only commands. It never
// creates a fresh database.
func (c *commandContext) openInventory() (*inventory.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfg.Paths.InventoryDB); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no inventory at %s; run `mediacheck scan` first", cfg.Paths.InventoryDB)
		}
		return nil, fmt.Errorf("inspect inventory: %w", err)
	}
	store, err := inventory.Open(cfg.Paths.InventoryDB)
	if err != nil {
		if errors.Is(err, inventory.ErrLocked) {
			return nil, fmt.Errorf("inventory %s is in use by a running scan", cfg.Paths.InventoryDB)
		}
		return nil, err
	}
	return store, nil
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
