package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fortunestack/capacity-planner/internal/model"
)

type Config struct {
	Server         ServerConfig           `yaml:"server"`
	Cache          CacheConfig            `yaml:"cache"`
	MaxConcurrency int                    `yaml:"max_concurrency"`
	FetchTimeout   int                    `yaml:"fetch_timeout_seconds"`
	Regions        []string               `yaml:"regions"`
	Requirements   map[string]Requirement `yaml:"requirements"`
	Database       DatabaseConfig         `yaml:"database"`
	Deployment     DeploymentConfig       `yaml:"deployment"`
}

// Requirement is the config-file shape of one resource requirement.
type Requirement struct {
	ServiceCode string `yaml:"service_code"`
	QuotaCode   string `yaml:"quota_code"`
	Required    int64  `yaml:"required"`
	Unit        string `yaml:"unit"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type CacheConfig struct {
	TTLMinutes int `yaml:"ttl_minutes"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

// DeploymentConfig feeds the deployment-parameters generator.
type DeploymentConfig struct {
	DatabaseAdminUser string            `yaml:"database_admin_user"`
	DatabaseName      string            `yaml:"database_name"`
	DatabaseSKU       string            `yaml:"database_sku"`
	DatabaseStorageGB int               `yaml:"database_storage_gb"`
	AppCPU            string            `yaml:"app_cpu"`
	AppMemory         string            `yaml:"app_memory"`
	Tags              map[string]string `yaml:"tags"`
}

// Default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
		},
		Cache: CacheConfig{
			TTLMinutes: 5,
		},
		MaxConcurrency: 10,
		FetchTimeout:   30,
		Regions:        []string{},
		Requirements:   map[string]Requirement{},
		Database: DatabaseConfig{
			Port:    5432,
			SSLMode: "disable",
		},
		Deployment: DeploymentConfig{
			DatabaseName:      "app",
			DatabaseStorageGB: 32,
		},
	}
}

// Load configuration from file, starting from defaults. A missing file
// is not an error; the defaults are returned.
func Load(filename string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// RequirementSet converts the config requirements into the model form
// consumed by the selector.
func (c *Config) RequirementSet() model.RequirementSet {
	set := make(model.RequirementSet, len(c.Requirements))
	for name, req := range c.Requirements {
		set[name] = model.ResourceRequirement{
			Service:     name,
			ServiceCode: req.ServiceCode,
			QuotaCode:   req.QuotaCode,
			Required:    req.Required,
			Unit:        req.Unit,
		}
	}
	return set
}

// GetCacheTTL returns the cache TTL as a duration
func (c *Config) GetCacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

// GetFetchTimeout returns the per-fetch timeout as a duration
func (c *Config) GetFetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeout) * time.Second
}

// GetPort returns the server port, checking environment variable first
func (c *Config) GetPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return c.Server.Port
}

// DSN builds the Postgres connection string for the fortune store.
// Empty when no database host is configured.
func (c *Config) DSN() string {
	if c.Database.Host == "" {
		return ""
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.Name, c.Database.SSLMode)
}
