package config

import (
	"encoding/json"
	"os"

	"github.com/cloudchat-app/cloudchat/internal/flagx"
	"github.com/cloudchat-app/cloudchat/internal/timex"
)

// JsonConfig mirrors Config for JSON unmarshalling. Duration fields use
// timex.Duration, which accepts either strings such as "2s" or integer
// nanoseconds.
type JsonConfig struct {
	StoreBackend    string         `json:"store_backend"`
	DatabaseDSN     string         `json:"database_dsn"`
	SecretKey       string         `json:"secret_key"`
	SessionTTL      timex.Duration `json:"session_ttl"`
	EnforceInterval timex.Duration `json:"enforce_interval"`
	RootAccountID   string         `json:"root_account_id"`
	RootUsername    string         `json:"root_username"`
	RootSecret      string         `json:"root_secret"`
	S3RootUser      string         `json:"s3_root_user"`
	S3RootPassword  string         `json:"s3_root_password"`
	S3Bucket        string         `json:"s3_bucket"`
	S3Region        string         `json:"s3_region"`
	S3BaseEndpoint  string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config flags; when
// neither is set, no JSON file is loaded. An unreadable or invalid file
// panics: a requested but broken config should stop the process.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.StoreBackend = c.StoreBackend
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.SessionTTL = c.SessionTTL.Duration
	config.EnforceInterval = c.EnforceInterval.Duration
	config.RootAccountID = c.RootAccountID
	config.RootUsername = c.RootUsername
	config.RootSecret = c.RootSecret
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}
