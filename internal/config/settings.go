package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// SalesforceSettings holds the CRM connection credentials
type SalesforceSettings struct {
	InstanceURL   string
	Username      string
	Password      string
	SecurityToken string
}

// Configured reports whether every required credential is present.
func (s SalesforceSettings) Configured() bool {
	return s.InstanceURL != "" && s.Username != "" && s.Password != "" && s.SecurityToken != ""
}

// ServiceNowSettings holds the ITSM connection credentials
type ServiceNowSettings struct {
	InstanceURL string
	Username    string
	Password    string
}

// Configured reports whether every required credential is present.
func (s ServiceNowSettings) Configured() bool {
	return s.InstanceURL != "" && s.Username != "" && s.Password != ""
}

// Settings holds the platform credentials read from the environment. The
// env var names match what the downstream tool servers expect, so a single
// .env file drives both this CLI and the servers it spawns.
type Settings struct {
	GitHubClientID     string
	GitHubClientSecret string
	Salesforce         SalesforceSettings
	ServiceNow         ServiceNowSettings
}

// LoadSettings reads platform credentials from the process environment,
// after best-effort loading a .env file from the working directory.
func LoadSettings() *Settings {
	if wd, err := os.Getwd(); err == nil {
		_ = godotenv.Load(filepath.Join(wd, ".env"))
	}

	v := viper.New()
	v.AutomaticEnv()
	for _, key := range []string{
		"GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET",
		"SALESFORCE_INSTANCE_URL", "SALESFORCE_USERNAME",
		"SALESFORCE_PASSWORD", "SALESFORCE_SECURITY_TOKEN",
		"SERVICENOW_INSTANCE_URL", "SERVICENOW_USERNAME", "SERVICENOW_PASSWORD",
	} {
		_ = v.BindEnv(key)
	}

	return &Settings{
		GitHubClientID:     v.GetString("GITHUB_CLIENT_ID"),
		GitHubClientSecret: v.GetString("GITHUB_CLIENT_SECRET"),
		Salesforce: SalesforceSettings{
			InstanceURL:   v.GetString("SALESFORCE_INSTANCE_URL"),
			Username:      v.GetString("SALESFORCE_USERNAME"),
			Password:      v.GetString("SALESFORCE_PASSWORD"),
			SecurityToken: v.GetString("SALESFORCE_SECURITY_TOKEN"),
		},
		ServiceNow: ServiceNowSettings{
			InstanceURL: v.GetString("SERVICENOW_INSTANCE_URL"),
			Username:    v.GetString("SERVICENOW_USERNAME"),
			Password:    v.GetString("SERVICENOW_PASSWORD"),
		},
	}
}
