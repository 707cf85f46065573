package config

import (
	"os"
	"strings"
)

const (
	portEnvVar       = "PORT"
	appNameVar       = "APP_NAME"
	backendURLEnvVar = "BACKEND_URL"
)

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBackendURL() string
	GetProtectedRoutes() string
	GetEnv() string
}

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Authgate")
}

// GetBackendURL returns the base URL of the course platform REST backend
// (e.g., "https://api.example.com"). All login/refresh/logout calls go there.
func (EnvVars) GetBackendURL() string {
	return GetEnv(backendURLEnvVar, "http://localhost:4000")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetProtectedRoutes returns the guard's prefix list as a comma-separated
// set of prefix=role pairs, e.g. "/admin=admin,/account=learner".
func (EnvVars) GetProtectedRoutes() string {
	return GetEnv("PROTECTED_ROUTES", "/admin=admin")
}
