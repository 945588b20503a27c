package config

import (
	"fmt"
	"os"
	"time"

	"crudgomodule/internal/person"
	"crudgomodule/internal/runner"
	"crudgomodule/shared/docstore"
	"crudgomodule/shared/logging"
	"crudgomodule/shared/utils"

	"gopkg.in/yaml.v3"
)

// RawConfig holds the application configuration
type RawConfig struct {
	Store   RawStoreConfig   `yaml:"store"`
	Logging RawLoggingConfig `yaml:"logging"`
	Run     RawRunConfig     `yaml:"run"`
}

// RawStoreConfig holds document store configuration
type RawStoreConfig struct {
	Backend            string `yaml:"backend"`  // mongo or local
	URI                string `yaml:"uri"`      // MongoDB connection string
	Database           string `yaml:"database"` // overrides the database named in the URI
	Collection         string `yaml:"collection"`
	LocalFile          string `yaml:"localFile"` // local backend persistence file; empty keeps data in memory
	ConnectTimeoutMs   int    `yaml:"connectTimeoutMs"`
	OperationTimeoutMs int    `yaml:"operationTimeoutMs"`
}

// RawLoggingConfig holds logging-related configuration
type RawLoggingConfig struct {
	Level       string `yaml:"level"`       // Log level: debug, info, warn, error
	FileName    string `yaml:"fileName"`    // JSON log file; empty logs to stdout
	LoggerName  string `yaml:"loggerName"`  // Name identifier for the logger
	ServiceName string `yaml:"serviceName"` // Service name for structured logging
}

// RawRunConfig holds the ids of existing records the run script targets
type RawRunConfig struct {
	PersonID1 string `yaml:"personId1"`
	PersonID2 string `yaml:"personId2"`
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() *RawConfig {
	return &RawConfig{
		Store: RawStoreConfig{
			Backend:            utils.GetEnv("STORE_BACKEND", docstore.BackendMongo),
			URI:                utils.GetEnv("MONGO_URI", ""),
			Database:           utils.GetEnv("STORE_DATABASE", ""),
			Collection:         utils.GetEnv("STORE_COLLECTION", person.DefaultCollection),
			LocalFile:          utils.GetEnv("STORE_LOCAL_FILE", ""),
			ConnectTimeoutMs:   utils.GetEnvInt("STORE_CONNECT_TIMEOUT_MS", 10000),
			OperationTimeoutMs: utils.GetEnvInt("STORE_OPERATION_TIMEOUT_MS", 10000),
		},
		Logging: RawLoggingConfig{
			Level:       utils.GetEnv("LOG_LEVEL", "info"),
			FileName:    utils.GetEnv("LOG_FILE_NAME", ""),
			LoggerName:  utils.GetEnv("LOG_LOGGER_NAME", "main"),
			ServiceName: utils.GetEnv("LOG_SERVICE_NAME", "personcrud"),
		},
		Run: RawRunConfig{
			PersonID1: utils.GetEnv("RUN_PERSON_ID_1", runner.DefaultPersonID1),
			PersonID2: utils.GetEnv("RUN_PERSON_ID_2", runner.DefaultPersonID2),
		},
	}
}

// LoadConfigFromFile loads configuration from a YAML file with optional environment variable overrides
func LoadConfigFromFile(configPath string) (*RawConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
	}

	// start from the defaults so keys missing from the file keep them
	config := LoadConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing YAML config file %s: %w", configPath, err)
	}

	overrideWithEnvVars(config)

	return config, nil
}

// LoadConfigWithDefaults loads configuration from file if it exists, falling back to environment variables and defaults
func LoadConfigWithDefaults(configPath string) *RawConfig {
	if config, err := LoadConfigFromFile(configPath); err == nil {
		return config
	}
	return LoadConfig()
}

// overrideWithEnvVars overrides config values with environment variables if they are set
func overrideWithEnvVars(config *RawConfig) {
	overrideStoreConfig(&config.Store)
	overrideLoggingConfig(&config.Logging)
	overrideRunConfig(&config.Run)
}

func overrideStoreConfig(store *RawStoreConfig) {
	if backend := utils.GetEnv("STORE_BACKEND", ""); backend != "" {
		store.Backend = backend
	}
	if uri := utils.GetEnv("MONGO_URI", ""); uri != "" {
		store.URI = uri
	}
	if database := utils.GetEnv("STORE_DATABASE", ""); database != "" {
		store.Database = database
	}
	if collection := utils.GetEnv("STORE_COLLECTION", ""); collection != "" {
		store.Collection = collection
	}
	if localFile := utils.GetEnv("STORE_LOCAL_FILE", ""); localFile != "" {
		store.LocalFile = localFile
	}
	if connectTimeout := utils.GetEnvInt("STORE_CONNECT_TIMEOUT_MS", -1); connectTimeout != -1 {
		store.ConnectTimeoutMs = connectTimeout
	}
	if opTimeout := utils.GetEnvInt("STORE_OPERATION_TIMEOUT_MS", -1); opTimeout != -1 {
		store.OperationTimeoutMs = opTimeout
	}
}

func overrideLoggingConfig(logging *RawLoggingConfig) {
	if level := utils.GetEnv("LOG_LEVEL", ""); level != "" {
		logging.Level = level
	}
	if fileName := utils.GetEnv("LOG_FILE_NAME", ""); fileName != "" {
		logging.FileName = fileName
	}
	if loggerName := utils.GetEnv("LOG_LOGGER_NAME", ""); loggerName != "" {
		logging.LoggerName = loggerName
	}
	if serviceName := utils.GetEnv("LOG_SERVICE_NAME", ""); serviceName != "" {
		logging.ServiceName = serviceName
	}
}

func overrideRunConfig(run *RawRunConfig) {
	if id := utils.GetEnv("RUN_PERSON_ID_1", ""); id != "" {
		run.PersonID1 = id
	}
	if id := utils.GetEnv("RUN_PERSON_ID_2", ""); id != "" {
		run.PersonID2 = id
	}
}

// ConvertToLoggerConfig converts RawLoggingConfig to logging.LoggerConfig
func (cfg RawLoggingConfig) ConvertToLoggerConfig() logging.LoggerConfig {
	return logging.LoggerConfig{
		Level:       logging.ParseLevel(cfg.Level),
		FilePath:    cfg.FileName,
		LoggerName:  cfg.LoggerName,
		ServiceName: cfg.ServiceName,
	}
}

// ConvertToStoreConfig converts RawStoreConfig to docstore.Config
func (cfg RawStoreConfig) ConvertToStoreConfig() docstore.Config {
	return docstore.Config{
		Backend:        cfg.Backend,
		URI:            cfg.URI,
		Database:       cfg.Database,
		LocalFile:      cfg.LocalFile,
		ConnectTimeout: millis(cfg.ConnectTimeoutMs),
	}
}

// ConvertToRepositoryConfig converts RawStoreConfig to person.RepositoryConfig
func (cfg RawStoreConfig) ConvertToRepositoryConfig() person.RepositoryConfig {
	return person.RepositoryConfig{
		Collection:       cfg.Collection,
		OperationTimeout: millis(cfg.OperationTimeoutMs),
	}
}

// ConvertToScriptIDs converts RawRunConfig to runner.ScriptIDs
func (cfg RawRunConfig) ConvertToScriptIDs() runner.ScriptIDs {
	return runner.ScriptIDs{PersonID1: cfg.PersonID1, PersonID2: cfg.PersonID2}
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
