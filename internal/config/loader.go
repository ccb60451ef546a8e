package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "ldquad.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/ldquad"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *log.Logger
	// homeDir and workDir default to the user's home and the working
	// directory.
	homeDir string
	workDir string
}

// NewLoader creates a new configuration loader
func NewLoader(logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.Default()
	}
	return &Loader{logger: logger}
}

// Load loads configuration with layered precedence:
//  1. Default config
//  2. User config (~/.config/ldquad/config.yaml)
//  3. Project config (ldquad.yaml in the current or a parent directory),
//     or the file at explicit when it is not empty
//
// Later layers override the keys they set. A missing user or project file is
// skipped; a missing explicit file is an error.
func (l *Loader) Load(explicit string) (*Config, error) {
	config := DefaultConfig()

	if userConfigPath := l.userConfigPath(); userConfigPath != "" {
		if err := config.apply(userConfigPath); err == nil {
			l.logger.Debug("Loaded user config", "path", userConfigPath)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	switch projectConfigPath := l.findProjectConfig(); {
	case explicit != "":
		if err := config.apply(explicit); err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded config", "path", explicit)
	case projectConfigPath != "":
		if err := config.apply(projectConfigPath); err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded project config", "path", projectConfigPath)
	default:
		l.logger.Debug("No project config found")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	home := l.homeDir
	if home == "" {
		var err error
		if home, err = os.UserHomeDir(); err != nil {
			return ""
		}
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for ldquad.yaml in current and parent directories
func (l *Loader) findProjectConfig() string {
	dir := l.workDir
	if dir == "" {
		var err error
		if dir, err = os.Getwd(); err != nil {
			return ""
		}
	}

	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}
	return ""
}
