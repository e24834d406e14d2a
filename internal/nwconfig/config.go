// Package nwconfig loads and validates the main night-watch
// configuration file (spec.md §6), grounded on original_source's
// NwConfiguration.read for field shape and on the teacher's yaml.v3
// decode idiom (cmd/warren/apply.go) for how to parse it in Go.
package nwconfig

import (
	"os"

	"github.com/OpenTouch/night-watch/internal/nwerrors"
	"github.com/OpenTouch/night-watch/internal/nwlog"
	"gopkg.in/yaml.v3"
)

// Logging mirrors the `logging` block of the configuration file,
// consumed directly by nwlog.Init.
type Logging struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Webserver mirrors the `config.webserver_*` settings controlling the
// Control API listener.
type Webserver struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
	Debug   bool `yaml:"debug"`
}

// Paths mirrors the `config` block's three plugin-config directories.
type Paths struct {
	TasksLocation     string `yaml:"tasks_location"`
	ProvidersLocation string `yaml:"providers_location"`
	ActionsLocation   string `yaml:"actions_location"`
}

// Config is the fully parsed main configuration file.
type Config struct {
	Logging   Logging   `yaml:"logging"`
	Paths     Paths     `yaml:"config"`
	Webserver Webserver `yaml:"webserver"`
}

type rawConfig struct {
	Logging Logging `yaml:"logging"`
	Config  struct {
		TasksLocation     string `yaml:"tasks_location"`
		ProvidersLocation string `yaml:"providers_location"`
		ActionsLocation   string `yaml:"actions_location"`
		WebserverEnabled  bool   `yaml:"webserver_enabled"`
		WebserverPort     int    `yaml:"webserver_port"`
		WebserverDebug    bool   `yaml:"webserver_debug"`
	} `yaml:"config"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, nwerrors.Wrap(nwerrors.KindConfigurationInvalid, err, "could not read config file from %q", path)
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, nwerrors.Wrap(nwerrors.KindConfigurationInvalid, err, "config file %q is not valid YAML", path)
	}

	cfg := Config{
		Logging: raw.Logging,
		Paths: Paths{
			TasksLocation:     raw.Config.TasksLocation,
			ProvidersLocation: raw.Config.ProvidersLocation,
			ActionsLocation:   raw.Config.ActionsLocation,
		},
		Webserver: Webserver{
			Enabled: raw.Config.WebserverEnabled,
			Port:    raw.Config.WebserverPort,
			Debug:   raw.Config.WebserverDebug,
		},
	}

	if cfg.Paths.TasksLocation == "" {
		return Config{}, nwerrors.New(nwerrors.KindConfigurationInvalid, "configuration section \"config.tasks_location\" is missing in %q", path)
	}
	if cfg.Paths.ProvidersLocation == "" {
		return Config{}, nwerrors.New(nwerrors.KindConfigurationInvalid, "configuration section \"config.providers_location\" is missing in %q", path)
	}
	if cfg.Paths.ActionsLocation == "" {
		return Config{}, nwerrors.New(nwerrors.KindConfigurationInvalid, "configuration section \"config.actions_location\" is missing in %q", path)
	}
	if cfg.Webserver.Enabled && cfg.Webserver.Port == 0 {
		cfg.Webserver.Port = 8888
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	nwlog.WithComponent("nwconfig").Info().Str("path", path).Msg("configuration parsed")
	return cfg, nil
}
