package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/talgya/fishery/internal/fish"
)

//go:embed schema.json
var schemaJSON string

const schemaURL = "fishery://config.schema.json"

// Load reads a scenario file over the reference defaults and validates it.
func Load(path string) (Config, error) {
	return LoadOver(path, Default())
}

// LoadOver reads a scenario file over the given base. Keys missing from
// the file keep the base values. The format follows the file extension:
// .toml for TOML, anything else for YAML.
func LoadOver(path string, base Config) (Config, error) {
	cfg := base
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the scenario against the JSON schema and then the
// cross-field constraints the schema cannot express.
func (c Config) Validate() error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("schema: %w", err)
	}

	if c.Fish.SpawnSeason >= c.Fish.YearLength {
		return fmt.Errorf("fish.spawn_season (%d) must be shorter than fish.year_length (%d)",
			c.Fish.SpawnSeason, c.Fish.YearLength)
	}
	if c.Fish.MatureAge > c.Fish.Longevity {
		return fmt.Errorf("fish.mature_age (%d) exceeds fish.longevity (%d)",
			c.Fish.MatureAge, c.Fish.Longevity)
	}
	if c.Fish.SpawnModel == fish.SpawnMaleRatio && c.Fish.SeasonConception <= 0 {
		return fmt.Errorf("fish.season_conception must be positive for the %s model", fish.SpawnMaleRatio)
	}
	if c.Fleet.Boats > 0 && c.Fleet.HoldCapacity <= 0 {
		return fmt.Errorf("fleet.hold_capacity must be positive when boats are configured")
	}
	return nil
}

func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}
