package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Security SecurityConfig `mapstructure:"security"`
	Schema   SchemaConfig   `mapstructure:"schema"`
	Audit    AuditConfig    `mapstructure:"audit"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Name           string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	Password PasswordConfig `mapstructure:"password"`
}

// PasswordConfig holds the password policy and hashing configuration
type PasswordConfig struct {
	MinLength         int    `mapstructure:"min_length"`
	Argon2Memory      uint32 `mapstructure:"argon2_memory"`
	Argon2Iterations  uint32 `mapstructure:"argon2_iterations"`
	Argon2Parallelism uint8  `mapstructure:"argon2_parallelism"`
	// PreferredAlgo and LegacyAlgo are the identifiers stored in the
	// credential store's algorithm column.
	PreferredAlgo string `mapstructure:"preferred_algo"`
	LegacyAlgo    string `mapstructure:"legacy_algo"`
}

// SchemaConfig holds table/column name overrides for the credential store,
// allowing the tool to point at an existing users table with different
// column naming.
type SchemaConfig struct {
	UsersTable     string `mapstructure:"users_table"`
	ColUsername    string `mapstructure:"col_username"`
	ColDisplayName string `mapstructure:"col_display_name"`
	ColEmail       string `mapstructure:"col_email"`
	ColPassword    string `mapstructure:"col_password_hash"`
	ColAlgo        string `mapstructure:"col_password_algo"`
	ColRole        string `mapstructure:"col_role_code"`
	ColActive      string `mapstructure:"col_is_active"`
	ColMustChange  string `mapstructure:"col_must_change"`
}

// AuditConfig holds audit log settings
type AuditConfig struct {
	// SourceHost overrides the machine hostname recorded on audit entries.
	SourceHost string `mapstructure:"source_host"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set config file name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/ctlmanager")

	// Set defaults
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Bind environment variables
	v.SetEnvPrefix("CTLMANAGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "ctlmanager")
	v.SetDefault("database.user", "ctlmanager")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 5)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Security defaults
	v.SetDefault("security.password.min_length", 8)
	v.SetDefault("security.password.argon2_memory", 65536)
	v.SetDefault("security.password.argon2_iterations", 3)
	v.SetDefault("security.password.argon2_parallelism", 4)
	v.SetDefault("security.password.preferred_algo", "argon2id")
	v.SetDefault("security.password.legacy_algo", "bcrypt")

	// Schema mapping defaults match the migration in this repository;
	// override them to point at a pre-existing users table.
	v.SetDefault("schema.users_table", "users")
	v.SetDefault("schema.col_username", "username")
	v.SetDefault("schema.col_display_name", "display_name")
	v.SetDefault("schema.col_email", "email")
	v.SetDefault("schema.col_password_hash", "password_hash")
	v.SetDefault("schema.col_password_algo", "password_algo")
	v.SetDefault("schema.col_role_code", "role_code")
	v.SetDefault("schema.col_is_active", "is_active")
	v.SetDefault("schema.col_must_change", "must_change_password")

	// Audit defaults
	v.SetDefault("audit.source_host", "")
}
