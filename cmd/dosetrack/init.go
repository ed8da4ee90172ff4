package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mementolabs/dosetrack/internal/pathutil"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Initialize config.yaml and the state directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "~/.dosetrack/"
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				dir = args[0]
			}
			dir = pathutil.ExpandHomePath(dir)
			if strings.TrimSpace(dir) == "" {
				return fmt.Errorf("invalid dir")
			}
			dir = filepath.Clean(dir)

			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}

			cfgPath := filepath.Join(dir, "config.yaml")
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists: %s", cfgPath)
			}

			cfgBody, err := defaultConfigYAML(dir)
			if err != nil {
				return err
			}
			if err := os.WriteFile(cfgPath, cfgBody, 0o644); err != nil {
				return err
			}

			fmt.Printf("initialized %s\n", dir)
			return nil
		},
	}
}

func defaultConfigYAML(dir string) ([]byte, error) {
	cfg := map[string]any{
		"server": map[string]any{
			"bind": "127.0.0.1",
			"port": 8980,
		},
		"db": map[string]any{
			"dsn":          filepath.Join(dir, "dosetrack.sqlite"),
			"auto_migrate": true,
		},
		"media": map[string]any{
			"dir":              filepath.Join(dir, "media"),
			"max_bytes":        20 * 1024 * 1024,
			"download_timeout": "60s",
		},
		"time": map[string]any{
			"location": "",
		},
		"logging": map[string]any{
			"level":  "info",
			"format": "text",
		},
	}
	body, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("render default config: %w", err)
	}
	return body, nil
}
