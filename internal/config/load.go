package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load parses a YAML file into a Config, starting from Default() so that any
// section the file omits keeps its compiled-in default. Uses strict field
// checking so a typo'd key is a load error rather than a silently ignored
// override, matching the teacher's defaults.yaml loader.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Workload.Profiles == nil {
		cfg.Workload.Profiles = Default().Workload.Profiles
	}
	return cfg, nil
}
