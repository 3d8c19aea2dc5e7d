package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr  string
	PublicURL string

	DBDriver string
	DBDSN    string

	AuthSecret string

	MaterialsPath string

	CORSOrigins []string

	AdminUser     string
	AdminPassword string

	LogLevel  string
	LogFormat string
}

// FromViper assembles the effective configuration from a viper instance
// that already has flags, SKILLCOURSE_* env vars and any config file
// bound to it.
func FromViper(v *viper.Viper) Config {
	return Config{
		HTTPAddr:      v.GetString("addr"),
		PublicURL:     v.GetString("public-url"),
		DBDriver:      v.GetString("db-driver"),
		DBDSN:         v.GetString("db-dsn"),
		AuthSecret:    v.GetString("auth-secret"),
		MaterialsPath: v.GetString("materials-path"),
		CORSOrigins:   v.GetStringSlice("cors-origins"),
		AdminUser:     v.GetString("admin-user"),
		AdminPassword: v.GetString("admin-password"),
		LogLevel:      v.GetString("log-level"),
		LogFormat:     v.GetString("log-format"),
	}
}
