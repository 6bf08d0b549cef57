package shared

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Rules struct {
		BuiltinEnabled    *bool             `yaml:"builtin_enabled"`    // default true
		CustomDirs        []string          `yaml:"custom_dirs"`        // extra rule pack directories
		Disabled          []string          `yaml:"disabled"`           // rule IDs to disable after load
		SeverityOverrides map[string]string `yaml:"severity_overrides"` // rule ID -> severity
	} `yaml:"rules"`

	Output struct {
		DefaultFormat string `yaml:"default_format"` // "json"|"markdown"|"sarif"
		OutDir        string `yaml:"out_dir"`        // "./reports"
	} `yaml:"output"`

	CI struct {
		FailOn       string `yaml:"fail_on"`        // "critical"|"high"|"medium"|"none"
		MinSeverity  string `yaml:"min_severity"`   // lowest severity to report
		MaxRiskScore int    `yaml:"max_risk_score"` // 0 = unlimited
	} `yaml:"ci"`

	Whitelist struct {
		ApprovedHashes []string `yaml:"approved_hashes"` // skill file hashes already reviewed
	} `yaml:"whitelist"`

	Database struct {
		DSN string `yaml:"dsn"` // "./skill-audits.db"; empty disables persistence
	} `yaml:"database"`

	Server struct {
		Addr           string        `yaml:"addr"`
		SessionTTL     time.Duration `yaml:"session_ttl"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"server"`

	Logging struct {
		Format string `yaml:"format"` // "json"|"text"
		Level  string `yaml:"level"`  // "info"|"debug"|"warn"|"error"
	} `yaml:"logging"`
}

func DefaultConfig() Config {
	var c Config
	c.Output.DefaultFormat = "markdown"
	c.Output.OutDir = "./reports"
	c.CI.FailOn = "high"
	c.CI.MinSeverity = "low"
	c.Server.Addr = "127.0.0.1:8780"
	c.Server.SessionTTL = 12 * time.Hour
	c.Logging.Format = "text"
	c.Logging.Level = "info"
	return c
}

// BuiltinEnabled resolves the tri-state flag (nil means enabled).
func (c *Config) BuiltinEnabled() bool {
	return c.Rules.BuiltinEnabled == nil || *c.Rules.BuiltinEnabled
}

// IsApprovedHash reports whether the file hash is whitelisted.
func (c *Config) IsApprovedHash(hash string) bool {
	for _, h := range c.Whitelist.ApprovedHashes {
		if strings.EqualFold(strings.TrimSpace(h), hash) {
			return true
		}
	}
	return false
}

// DefaultConfigFile is the config looked up in the working directory
// when no explicit path is given.
const DefaultConfigFile = ".skill-auditor.yaml"

// LoadConfig reads the YAML config at path (empty path falls back to
// DefaultConfigFile, missing files keep defaults) and applies explicit
// env overrides. A present but malformed file is an error.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	explicit := path != ""
	if path == "" {
		path = DefaultConfigFile
	}
	if b, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, err
		}
	} else if explicit {
		return c, err
	}
	// Env overrides (simple, explicit)
	if v := os.Getenv("SKILL_AUDITOR_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("SKILL_AUDITOR_OUT_DIR"); v != "" {
		c.Output.OutDir = v
	}
	if v := os.Getenv("SKILL_AUDITOR_FORMAT"); v != "" {
		c.Output.DefaultFormat = v
	}
	if v := os.Getenv("SKILL_AUDITOR_FAIL_ON"); v != "" {
		c.CI.FailOn = v
	}
	if v := os.Getenv("SKILL_AUDITOR_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("SKILL_AUDITOR_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SKILL_AUDITOR_ADDR"); v != "" {
		c.Server.Addr = v
	}
	return c, nil
}
