package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10, cfg.MaxConcurrency)
	assert.Equal(t, 30, cfg.FetchTimeout)
	assert.Equal(t, 5*time.Minute, cfg.GetCacheTTL())
	assert.Empty(t, cfg.Regions)
	assert.Empty(t, cfg.Requirements)
	assert.Empty(t, cfg.DSN())
}

func TestLoadFullConfig(t *testing.T) {
	yaml := `
server:
  port: "9090"
cache:
  ttl_minutes: 1
max_concurrency: 5
fetch_timeout_seconds: 10
regions:
  - us-east-1
  - us-west-2
requirements:
  cpu:
    service_code: ec2
    quota_code: L-1216C47A
    required: 4
    unit: instances
  memory_gb:
    service_code: rds
    quota_code: L-7B6409FD
    required: 8
    unit: GB
database:
  host: localhost
  port: 5433
  user: app
  password: secret
  name: fortunes
  ssl_mode: require
deployment:
  database_admin_user: admin
  database_name: app
  database_sku: Standard_B1ms
  database_storage_gb: 64
  app_cpu: "0.5"
  app_memory: 1Gi
  tags:
    env: dev
`
	path := filepath.Join(t.TempDir(), "planner.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 5, cfg.MaxConcurrency)
	assert.Equal(t, 10*time.Second, cfg.GetFetchTimeout())
	assert.Equal(t, []string{"us-east-1", "us-west-2"}, cfg.Regions)

	set := cfg.RequirementSet()
	require.Len(t, set, 2)
	cpu := set["cpu"]
	assert.Equal(t, "cpu", cpu.Service)
	assert.Equal(t, "ec2", cpu.ServiceCode)
	assert.Equal(t, "L-1216C47A", cpu.QuotaCode)
	assert.Equal(t, int64(4), cpu.Required)

	assert.Equal(t,
		"host=localhost port=5433 user=app password=secret dbname=fortunes sslmode=require",
		cfg.DSN())

	assert.Equal(t, "Standard_B1ms", cfg.Deployment.DatabaseSKU)
	assert.Equal(t, 64, cfg.Deployment.DatabaseStorageGB)
	assert.Equal(t, "dev", cfg.Deployment.Tags["env"])
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.yaml")
	require.NoError(t, os.WriteFile(path, []byte("regions: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestGetPortEnvOverride(t *testing.T) {
	t.Setenv("PORT", "3000")

	cfg := Default()
	assert.Equal(t, "3000", cfg.GetPort())
}
