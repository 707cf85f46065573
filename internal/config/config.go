package config

type Config interface {
	EnvConfig
	SecurityConfig
	SessionConfig
}

type mainConfig struct {
	EnvVars
	Security
	Session
}

func New() Config {
	return mainConfig{}
}
