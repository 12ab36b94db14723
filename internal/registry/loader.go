package registry

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/aegis-analytics/tacticalfit-service/internal/models"
)

// registryFile is the on-disk shape of the declarative metric table
type registryFile struct {
	Version string   `mapstructure:"version"`
	Metrics []Metric `mapstructure:"metrics"`
}

// Load reads and validates a registry definition file. Changing metric
// definitions requires a new version tag; a running registry is never
// mutated in place.
func Load(path string) (*Registry, error) {
	if path == "" {
		return nil, models.NewConfigurationError("registry path is required")
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}

	var file registryFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal registry file: %w", err)
	}

	return New(file.Version, file.Metrics)
}
