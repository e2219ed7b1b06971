package config

import (
	"time"

	allocConfig "github.com/Borislavv/transfer-cache/pkg/config"
	serverConfig "github.com/Borislavv/transfer-cache/pkg/server/config"
)

type Config struct {
	serverConfig.HttpServer `mapstructure:",squash"`
	allocConfig.Config      `mapstructure:",squash"`

	// LivenessProbeInterval is how often app health is re-evaluated for /k8s/probe.
	LivenessProbeInterval time.Duration `mapstructure:"LIVENESS_PROBE_INTERVAL"`
}
