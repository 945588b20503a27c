package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"crudgomodule/internal/app"
	"crudgomodule/internal/config"
	"crudgomodule/shared/logging"
	"crudgomodule/shared/utils"

	"github.com/joho/godotenv"
)

const (
	exitOK              = 0
	exitConnectionError = 1
	exitSetupError      = 2
)

func main() {
	// Load .env file for local development (ignored in containers)
	loadEnvFile()

	logEnvironmentInfo()
	os.Exit(run(context.Background(), loadConfig()))
}

// run connects, executes every step and closes the connection. Failed steps
// are logged and do not change the exit code; only a failed connection does.
func run(ctx context.Context, cfg *config.RawConfig) int {
	logger, err := initLoggerSettings(cfg)
	if err != nil {
		log.Printf("Failed to create logger: %v", err)
		return exitSetupError
	}
	defer logger.Close()

	application, err := app.NewApplication(ctx, cfg, logger)
	if err != nil {
		logger.Errorf("Cannot continue without a store connection: %v", err)
		return exitConnectionError
	}

	report := application.Run(ctx)
	if failed := len(report.Failures()); failed > 0 {
		logger.Warnf("%d of %d steps failed", failed, len(report.Outcomes))
	}

	if err := application.Shutdown(); err != nil {
		logger.Errorf("Application shutdown error: %v", err)
	}
	return exitOK
}

func loadConfig() *config.RawConfig {
	return config.LoadConfigWithDefaults(utils.ResolveConfFilePath("config.yaml"))
}

func initLoggerSettings(cfg *config.RawConfig) (logging.Logger, error) {
	// relative log files go under SERVICE_LOG_DIR when it is set
	logDir := utils.GetEnv("SERVICE_LOG_DIR", "")
	if logDir != "" && cfg.Logging.FileName != "" && !filepath.IsAbs(cfg.Logging.FileName) {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, err
		}
		cfg.Logging.FileName = filepath.Join(logDir, cfg.Logging.FileName)
	}

	loggerConfig := cfg.Logging.ConvertToLoggerConfig()
	return logging.NewLogger(&loggerConfig)
}

// loadEnvFile loads MONGO_URI and friends from a .env file for local development.
// In containers the environment is set directly.
func loadEnvFile() {
	if isRunningInContainer() {
		log.Println("Running in container - using system environment variables")
		return
	}

	envPaths := []string{".env"}
	if home := os.Getenv("SERVICE_HOME"); home != "" {
		envPaths = append(envPaths, filepath.Join(home, ".env"))
	}

	for _, envPath := range envPaths {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		// existing variables win over the file
		if err := godotenv.Load(envPath); err != nil {
			log.Printf("Failed to load .env from %s: %v", envPath, err)
			continue
		}
		log.Printf("Loaded environment from: %s", envPath)
		return
	}

	log.Println("No .env file found - using system environment variables")
}

// isRunningInContainer detects if the application is running in a container
func isRunningInContainer() bool {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true
	}
	if os.Getenv("CONTAINER") == "true" {
		return true
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}

func logEnvironmentInfo() {
	appEnv := utils.GetEnv("APP_ENV", "development")
	appName := utils.GetEnv("APP_NAME", "personcrud")
	appVersion := utils.GetEnv("APP_VERSION", "unknown")

	log.Printf("Starting %s v%s in %s environment", appName, appVersion, appEnv)
}
