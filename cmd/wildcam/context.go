package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"wildcam/internal/config"
)

// annotationNoConfig marks commands that run without a loaded configuration.
const annotationNoConfig = "wildcam/no-config"

// commandContext lazily loads the configuration shared by every subcommand.
type commandContext struct {
	configFlag *string

	once       sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.once.Do(func() {
		var requested string
		if c.configFlag != nil {
			requested = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configPath, c.configSeen, c.configErr = config.Load(requested)
	})
	return c.config, c.configErr
}

func withoutConfig(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[annotationNoConfig] = "1"
	return cmd
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for ; cmd != nil; cmd = cmd.Parent() {
		if _, ok := cmd.Annotations[annotationNoConfig]; ok {
			return true
		}
	}
	return false
}
