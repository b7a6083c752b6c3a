package config

import (
	"fmt"
	"strings"
)

const devEnv = "DEV"

type EnvVars struct {
	Port    string `env:"PORT" envDefault:"8000"`
	AppName string `env:"APP_NAME" envDefault:"VidTube"`
	Env     string `env:"ENV" envDefault:"DEV"`
}

var _ EnvConfig = EnvVars{}

// GetPort returns the listen address, e.g. ":8000".
func (e EnvVars) GetPort() string {
	if strings.HasPrefix(e.Port, ":") {
		return e.Port
	}
	return fmt.Sprintf(":%s", e.Port)
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	return e.Env
}

func (e EnvVars) IsDev() bool {
	return strings.EqualFold(e.Env, devEnv)
}
