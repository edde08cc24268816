package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/blobvault/internal/flagx"
	"github.com/dmitrijs2005/blobvault/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "1s" and integer nanoseconds. Booleans are pointers
// so that an absent key keeps the current value.
type JsonConfig struct {
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	Backend                     string         `json:"backend"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	BufferSize                  int            `json:"buffer_size"`
	UseBufferingForBigFiles     *bool          `json:"use_buffering_for_big_files"`
	UseBufferingForSmallFiles   *bool          `json:"use_buffering_for_small_files"`
	MaxInlineSize               int64          `json:"max_inline_size"`
	SpoolDir                    string         `json:"spool_dir"`
	MetricsAddr                 *string        `json:"metrics_addr"`
	LogLevel                    string         `json:"log_level"`
	ShutdownTimeout             timex.Duration `json:"shutdown_timeout"`
	S3RootUser                  string         `json:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket"`
	S3Region                    string         `json:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c/-config flags or the BLOBVAULT_CONFIG
// environment variable; without one nothing is loaded. Only keys present in
// the file override the current values. If the file cannot be read or
// contains invalid JSON, the function panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.ConfigFile()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.Backend, c.Backend)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.BufferSize > 0 {
		config.BufferSize = c.BufferSize
	}
	if c.UseBufferingForBigFiles != nil {
		config.UseBufferingForBigFiles = *c.UseBufferingForBigFiles
	}
	if c.UseBufferingForSmallFiles != nil {
		config.UseBufferingForSmallFiles = *c.UseBufferingForSmallFiles
	}
	if c.MaxInlineSize > 0 {
		config.MaxInlineSize = c.MaxInlineSize
	}
	setString(&config.SpoolDir, c.SpoolDir)
	if c.MetricsAddr != nil {
		config.MetricsAddr = *c.MetricsAddr
	}
	setString(&config.LogLevel, c.LogLevel)
	if c.ShutdownTimeout.Duration > 0 {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
