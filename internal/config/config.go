// Package config provides gateway configuration loaded from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/morezero/openstack-gateway/pkg/gateway"
	"github.com/morezero/openstack-gateway/pkg/microversion"
	"github.com/morezero/openstack-gateway/pkg/openstack"
)

const logPrefix = "config:LoadConfig"

// Config holds openstack-gateway configuration.
type Config struct {
	// OpenStack endpoints and credentials
	IdentityBaseURL     string `envconfig:"OPENSTACK_IDENTITY_BASE_URL"`
	ComputeBaseURL      string `envconfig:"OPENSTACK_COMPUTE_BASE_URL"`
	NetworkBaseURL      string `envconfig:"OPENSTACK_NETWORK_BASE_URL"`
	ImageBaseURL        string `envconfig:"OPENSTACK_IMAGE_BASE_URL"`
	VolumeBaseURL       string `envconfig:"OPENSTACK_VOLUME_BASE_URL"`
	UserID              string `envconfig:"OPENSTACK_USER_ID"`
	Password            string `envconfig:"OPENSTACK_PASSWORD"`
	TenantID            string `envconfig:"OPENSTACK_TENANT_ID"`
	ComputeMicroversion string `envconfig:"OPENSTACK_COMPUTE_MICROVERSION"`
	VolumeMicroversion  string `envconfig:"OPENSTACK_VOLUME_MICROVERSION"`

	// Gateway behaviour
	SlimResponses bool   `envconfig:"GATEWAY_SLIM_RESPONSES" default:"true"`
	CatalogFile   string `envconfig:"GATEWAY_CATALOG_FILE"`
	PublishEvents bool   `envconfig:"GATEWAY_PUBLISH_EVENTS" default:"false"`

	// COMMS: connect to standalone NATS at COMMSURL.
	COMMSURL  string `envconfig:"COMMS_URL" default:"nats://127.0.0.1:4222"`
	COMMSName string `envconfig:"SERVICE_NAME" default:"openstack-gateway"`

	// Subject overrides (empty = commsutil defaults)
	GatewaySubject     string `envconfig:"GATEWAY_SUBJECT"`
	ChangeEventSubject string `envconfig:"GATEWAY_CHANGE_EVENT_SUBJECT"`

	// Timeouts
	RequestTimeout time.Duration `envconfig:"GATEWAY_REQUEST_TIMEOUT" default:"25s"`

	// Upper bound on gateway requests dispatched at once; further messages wait for a slot.
	MaxConcurrentRequests int `envconfig:"GATEWAY_MAX_CONCURRENT_REQUESTS" default:"64"`

	// Audit database (empty = audit disabled)
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	RunMigrations bool   `envconfig:"RUN_MIGRATIONS" default:"false"`
	MigrationPath string `envconfig:"MIGRATION_PATH"`

	// HTTP health endpoint (GATEWAY_HTTP_ADDR preferred, e.g. "0.0.0.0:8080")
	HTTPAddr           string        `envconfig:"GATEWAY_HTTP_ADDR"`
	HTTPPort           int           `envconfig:"HTTP_PORT" default:"8080"`
	HealthCheckTimeout time.Duration `envconfig:"HEALTH_CHECK_TIMEOUT" default:"5s"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Credentials returns the identity credentials. Missing fields are reported by
// the token provider on first use, not here.
func (c *Config) Credentials() openstack.Credentials {
	return openstack.Credentials{
		IdentityBaseURL: c.IdentityBaseURL,
		UserID:          c.UserID,
		Password:        c.Password,
		TenantID:        c.TenantID,
	}
}

// Endpoints returns the per-family base URLs and microversion headers.
func (c *Config) Endpoints() gateway.Endpoints {
	e := gateway.Endpoints{
		Compute:  c.ComputeBaseURL,
		Network:  c.NetworkBaseURL,
		Image:    c.ImageBaseURL,
		Volume:   c.VolumeBaseURL,
		TenantID: c.TenantID,
	}
	headers := map[gateway.Family]map[string]string{}
	if h := microversion.Headers(microversion.FamilyCompute, c.ComputeMicroversion); h != nil {
		headers[gateway.FamilyCompute] = h
	}
	if h := microversion.Headers(microversion.FamilyVolume, c.VolumeMicroversion); h != nil {
		headers[gateway.FamilyVolume] = h
	}
	if len(headers) > 0 {
		e.Headers = headers
	}
	return e
}

// HTTPListenAddr returns GATEWAY_HTTP_ADDR, or ":HTTP_PORT" when unset.
func (c *Config) HTTPListenAddr() string {
	if c.HTTPAddr != "" {
		return c.HTTPAddr
	}
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// AuditEnabled reports whether invocations are written to the database.
func (c *Config) AuditEnabled() bool {
	return c.DatabaseURL != ""
}

// ValidateMicroversions checks the optional microversion settings.
func (c *Config) ValidateMicroversions() error {
	if err := microversion.Validate(microversion.FamilyCompute, c.ComputeMicroversion); err != nil {
		return fmt.Errorf("%s - OPENSTACK_COMPUTE_MICROVERSION: %w", logPrefix, err)
	}
	if err := microversion.Validate(microversion.FamilyVolume, c.VolumeMicroversion); err != nil {
		return fmt.Errorf("%s - OPENSTACK_VOLUME_MICROVERSION: %w", logPrefix, err)
	}
	return nil
}

// ValidateForServe checks required config when running the NATS/HTTP server.
func (c *Config) ValidateForServe() error {
	if c.COMMSURL == "" {
		return fmt.Errorf("%s - COMMS_URL is required for serve", logPrefix)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s - GATEWAY_REQUEST_TIMEOUT must be positive", logPrefix)
	}
	if c.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("%s - GATEWAY_MAX_CONCURRENT_REQUESTS must be positive", logPrefix)
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("%s - HEALTH_CHECK_TIMEOUT must be positive", logPrefix)
	}
	return c.ValidateMicroversions()
}

// ValidateForDB checks required config when running DB-dependent commands (migrate, clear, ensure-db).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	return nil
}
