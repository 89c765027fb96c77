package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mattsolo1/grove-outline/pkg/watcher"
)

var (
	cfgFile string
	verbose bool
)

// Config is the resolved configuration of a command run.
type Config struct {
	NotebookDir        string
	DataDir            string
	CollapsedByDefault bool
	ShowHidden         bool
	WatchDebounce      time.Duration
	CollapsedGroups    []string
}

func InitConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		configDir := filepath.Join(home, ".config", "outline")
		viper.AddConfigPath(configDir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("OUTLINE")
	viper.AutomaticEnv()

	// Set defaults
	home := os.Getenv("HOME")
	viper.SetDefault("notebook_dir", filepath.Join(home, "notebooks"))
	viper.SetDefault("data_dir", filepath.Join(home, ".local", "share", "outline"))
	viper.SetDefault("collapsed_by_default", false)
	viper.SetDefault("show_hidden", false)
	viper.SetDefault("watch_debounce", watcher.DefaultDebounceDuration)

	// A missing config file is fine, the defaults apply.
	_ = viper.ReadInConfig()
}

// Load reads the configuration after InitConfig.
func Load() (*Config, error) {
	notebookDir, err := expandHome(viper.GetString("notebook_dir"))
	if err != nil {
		return nil, fmt.Errorf("resolve notebook_dir: %w", err)
	}
	dataDir, err := expandHome(viper.GetString("data_dir"))
	if err != nil {
		return nil, fmt.Errorf("resolve data_dir: %w", err)
	}

	return &Config{
		NotebookDir:        notebookDir,
		DataDir:            dataDir,
		CollapsedByDefault: viper.GetBool("collapsed_by_default"),
		ShowHidden:         viper.GetBool("show_hidden"),
		WatchDebounce:      viper.GetDuration("watch_debounce"),
		CollapsedGroups:    viper.GetStringSlice("collapsed_groups"),
	}, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// NewLogger builds the command logger: warnings to stderr, everything
// with --verbose.
func NewLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel) // Keep it quiet unless there are issues.
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logrus.NewEntry(logger).WithField("component", "outline")
}

func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/outline/config.yaml)")
	cmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log debug output to stderr")
}
