package config

import (
	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigtoml"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// DefaultFile is looked up in the working directory if no other file was passed
const DefaultFile = "match.toml"

// Config describes all configuration options
type Config struct {
	Jobs       int      `toml:"jobs" default:"0" usage:"Maximum number of targets building at once (0 means no limit)"`
	FailFast   bool     `toml:"fail_fast" default:"true" usage:"Stop all targets once one of them failed"`
	Quiet      bool     `toml:"quiet" default:"false" usage:"Only print errors"`
	Progress   bool     `toml:"progress" default:"false" usage:"Show a progress bar while building"`
	ResultsDir string   `toml:"results_dir" default:"./out/results" usage:"Where test reports are written"`
	Libraries  []string `toml:"libraries" default:"junit,hamcrest,mockito" usage:"Properties added to every test classpath"`
	StateFile  string   `toml:"state_file" default:"out/.match-state" usage:"Where the outcome of the last run is stored, relative to the root"`
	Log        struct {
		Level string `toml:"level" default:"info"`
		JSON  bool   `toml:"json" default:"false" usage:"Output JSONND instead of pretty console messages"`
	} `toml:"log"`
}

var logLevels = map[string]zerolog.Level{
	"trace":   zerolog.TraceLevel,
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
}

// Loader initializes an empty config object and returns a new Loader for this object
func Loader(files ...string) (*Config, *aconfig.Loader) {
	if len(files) == 0 {
		files = []string{DefaultFile}
	}

	cfg := Config{}
	return &cfg, aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags:        true,
		AllowUnknownEnvs: true,
		EnvPrefix:        "MATCH",
		Files:            files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".toml": aconfigtoml.New(),
		},
	})
}

// Load reads the configuration from the given files and the environment
func Load(files ...string) (*Config, error) {
	cfg, loader := Loader(files...)
	if err := loader.Load(); err != nil {
		return nil, eris.Wrap(err, "failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate verifies that all config fields have valid values
func (cfg *Config) Validate() error {
	_, ok := logLevels[cfg.Log.Level]
	if !ok {
		return eris.Errorf(`Invalid value for log.level: %s`, cfg.Log.Level)
	}

	if cfg.Jobs < 0 {
		return eris.Errorf(`Invalid value for jobs: %d (must be 0 or more)`, cfg.Jobs)
	}

	if cfg.ResultsDir == "" {
		return eris.New(`results_dir can't be empty`)
	}

	return nil
}

// LogLevel converts the .Log.Level field to a zerolog.Level
func (cfg *Config) LogLevel() zerolog.Level {
	return logLevels[cfg.Log.Level]
}
