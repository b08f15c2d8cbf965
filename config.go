package sessionx

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultCookieName      = "auth_token"
	DefaultCookieTTL       = 7 * 24 * time.Hour
	DefaultRefreshInterval = 5 * time.Minute
)

var (
	// DefaultStorageKeys are the legacy aliases probed in local and session storage.
	DefaultStorageKeys = []string{"auth_token", "token", "access_token"}
	// DefaultQueryParams are the legacy query parameter aliases.
	DefaultQueryParams = []string{"token", "access_token", "auth_token"}
)

var validate = newConfigValidator()

// Config describes where tokens live and how often the session is re-checked.
type Config struct {
	CookieName     string        `yaml:"cookie_name" validate:"cookiename"`
	CookieTTL      time.Duration `yaml:"cookie_ttl" validate:"gte=0"`
	CookiePath     string        `yaml:"cookie_path" validate:"omitempty,startswith=/"`
	CookieDomain   string        `yaml:"cookie_domain"`
	CookieSecure   bool          `yaml:"cookie_secure"`
	CookieSameSite string        `yaml:"cookie_same_site" validate:"omitempty,oneof=lax strict none"`

	StorageKeys []string `yaml:"storage_keys" validate:"max=8,dive,required"`
	QueryParams []string `yaml:"query_params" validate:"max=8,dive,required"`

	RefreshInterval       time.Duration `yaml:"refresh_interval" validate:"gte=0"`
	ExpiringSoonThreshold time.Duration `yaml:"expiring_soon_threshold" validate:"gte=0"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.normalize()
	return cfg
}

// normalize sets default values for optional fields.
func (c *Config) normalize() {
	if c.CookieName == "" {
		c.CookieName = DefaultCookieName
	}
	if c.CookieTTL <= 0 {
		c.CookieTTL = DefaultCookieTTL
	}
	if c.CookiePath == "" {
		c.CookiePath = "/"
	}
	if c.CookieSameSite == "" {
		c.CookieSameSite = "lax"
	}
	c.CookieSameSite = strings.ToLower(c.CookieSameSite)
	if len(c.StorageKeys) == 0 {
		c.StorageKeys = append([]string(nil), DefaultStorageKeys...)
	}
	if len(c.QueryParams) == 0 {
		c.QueryParams = append([]string(nil), DefaultQueryParams...)
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}
	if c.ExpiringSoonThreshold <= 0 {
		c.ExpiringSoonThreshold = DefaultExpiringSoonThreshold
	}
}

// Validate applies defaults to a copy and checks the result.
func (c Config) Validate() error {
	c.normalize()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid session config: %w", err)
	}
	return nil
}

// CookieOptions returns the cookie attributes described by the config.
func (c Config) CookieOptions() CookieOptions {
	opts := CookieOptions{
		Path:   c.CookiePath,
		Domain: c.CookieDomain,
		Secure: c.CookieSecure,
	}
	switch strings.ToLower(c.CookieSameSite) {
	case "strict":
		opts.SameSite = http.SameSiteStrictMode
	case "none":
		opts.SameSite = http.SameSiteNoneMode
	default:
		opts.SameSite = http.SameSiteLaxMode
	}
	return opts.normalize()
}

// LoadConfig reads a YAML config file. Missing fields keep their defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newConfigValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("cookiename", validateCookieName); err != nil {
		panic(fmt.Sprintf("failed to register cookiename validator: %v", err))
	}
	return v
}

// validateCookieName accepts RFC 6265 token characters only.
func validateCookieName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" {
		return false
	}
	for _, r := range name {
		if r <= ' ' || r >= 0x7f || strings.ContainsRune(`()<>@,;:\"/[]?={}`, r) {
			return false
		}
	}
	return true
}
