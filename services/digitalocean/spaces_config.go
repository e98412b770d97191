package digitalocean

import (
	"fmt"

	"github.com/SirCraft007/grade-api/config"
)

// SpacesConfig holds configuration for Spaces client
type SpacesConfig struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Endpoint  string
}

// SpacesConfigFromEnv reads the DO_SPACES_* variables. The endpoint defaults to the
// regional Spaces host.
func SpacesConfigFromEnv(env *config.EnviornmentVariable) SpacesConfig {
	cfg := SpacesConfig{
		AccessKey: env.DO_SPACES_ACCESS_KEY,
		SecretKey: env.DO_SPACES_SECRET_KEY,
		Bucket:    env.DO_SPACES_BUCKET,
		Region:    env.DO_SPACES_REGION,
		Endpoint:  env.DO_SPACES_ENDPOINT,
	}
	if cfg.Endpoint == "" && cfg.Region != "" {
		cfg.Endpoint = fmt.Sprintf("%s.digitaloceanspaces.com", cfg.Region)
	}
	return cfg
}

// Validate reports which required settings are missing
func (c SpacesConfig) Validate() error {
	if c.Bucket == "" || c.Region == "" {
		return fmt.Errorf("DO_SPACES_BUCKET and DO_SPACES_REGION must be configured")
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return fmt.Errorf("DO_SPACES_ACCESS_KEY and DO_SPACES_SECRET_KEY must be configured")
	}
	return nil
}
