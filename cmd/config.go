package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"myinstanceserver/domain"
	"myinstanceserver/service"

	"gopkg.in/yaml.v3"
)

// Env variable names.
const (
	envHTTPPort           = "SERVICE_PORT_HTTP"
	envGRPCPort           = "SERVICE_PORT_GRPC"
	envRedisAddr          = "REDIS_ADDR"
	envJWTSecret          = "JWT_SECRET"
	envKubernetesEnabled  = "KUBERNETES_ENABLED"
	envAgonesSDKURL       = "AGONES_SDK_HTTP_URL"
	envInstanceServerPort = "INSTANCESERVER_PORT"
	envShutdownDelayMs    = "SHUTDOWN_DELAY_MS"
	envRecordServiceURL   = "RECORD_SERVICE_URL"
	envConfigPath         = "CONFIG_PATH"
)

const (
	defaultHTTPPort        = 3031
	defaultGRPCPort        = 3032
	defaultShutdownDelayMs = 3000
)

// RedisConfig is the Redis connection used for records and record events.
type RedisConfig struct {
	Addr string
}

// MyInstanceServerConfig is the process configuration.
type MyInstanceServerConfig struct {
	Redis              RedisConfig
	HTTPPort           int
	GRPCPort           int
	JWTSecret          []byte
	Mode               domain.DeploymentMode
	AgonesSDKURL       string
	InstanceServerPort int
	ShutdownDelay      time.Duration
	RecordServiceURL   string

	SceneLoadTimeout   time.Duration
	ReadyWaitTimeout   time.Duration
	DisconnectInitWait time.Duration
}

// yamlTuning is the optional file at CONFIG_PATH. Zero values keep the service defaults.
type yamlTuning struct {
	SceneLoadTimeoutMs   int `yaml:"scene_load_timeout_ms"`
	ReadyWaitTimeoutMs   int `yaml:"ready_wait_timeout_ms"`
	DisconnectInitWaitMs int `yaml:"disconnect_init_wait_ms"`
}

func loadYAMLTuning(path string) (*yamlTuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out yamlTuning
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoadConfig loads configuration from environment variables and the optional YAML file at
// CONFIG_PATH. REDIS_ADDR and JWT_SECRET are required; AGONES_SDK_HTTP_URL is required when
// KUBERNETES_ENABLED is true.
func LoadConfig() (*MyInstanceServerConfig, error) {
	redisAddr := strings.TrimSpace(os.Getenv(envRedisAddr))
	if redisAddr == "" {
		return nil, fmt.Errorf("%s is required", envRedisAddr)
	}
	jwtSecret := strings.TrimSpace(os.Getenv(envJWTSecret))
	if jwtSecret == "" {
		return nil, fmt.Errorf("%s is required", envJWTSecret)
	}

	httpPort, err := portFromEnv(envHTTPPort, defaultHTTPPort)
	if err != nil {
		return nil, err
	}
	grpcPort, err := portFromEnv(envGRPCPort, defaultGRPCPort)
	if err != nil {
		return nil, err
	}
	instanceServerPort, err := portFromEnv(envInstanceServerPort, httpPort)
	if err != nil {
		return nil, err
	}

	mode := domain.DeploymentLocal
	if raw := strings.TrimSpace(os.Getenv(envKubernetesEnabled)); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", envKubernetesEnabled, err)
		}
		if enabled {
			mode = domain.DeploymentClustered
		}
	}
	agonesURL := strings.TrimSpace(os.Getenv(envAgonesSDKURL))
	if mode == domain.DeploymentClustered && agonesURL == "" {
		return nil, fmt.Errorf("%s is required when %s is true", envAgonesSDKURL, envKubernetesEnabled)
	}

	shutdownDelayMs := defaultShutdownDelayMs
	if raw := strings.TrimSpace(os.Getenv(envShutdownDelayMs)); raw != "" {
		shutdownDelayMs, err = strconv.Atoi(raw)
		if err != nil || shutdownDelayMs < 0 {
			return nil, fmt.Errorf("%s must be a non-negative integer (ms), got %q", envShutdownDelayMs, raw)
		}
	}

	cfg := &MyInstanceServerConfig{
		Redis:              RedisConfig{Addr: redisAddr},
		HTTPPort:           httpPort,
		GRPCPort:           grpcPort,
		JWTSecret:          []byte(jwtSecret),
		Mode:               mode,
		AgonesSDKURL:       agonesURL,
		InstanceServerPort: instanceServerPort,
		ShutdownDelay:      time.Duration(shutdownDelayMs) * time.Millisecond,
		RecordServiceURL:   strings.TrimSpace(os.Getenv(envRecordServiceURL)),
		SceneLoadTimeout:   service.DefaultSceneLoadTimeout,
		ReadyWaitTimeout:   service.DefaultReadyWaitTimeout,
		DisconnectInitWait: service.DefaultDisconnectInitWait,
	}

	configPath := strings.TrimSpace(os.Getenv(envConfigPath))
	if configPath == "" {
		return cfg, nil
	}
	if !filepath.IsAbs(configPath) {
		abs, absErr := filepath.Abs(configPath)
		if absErr != nil {
			return nil, absErr
		}
		configPath = abs
	}
	tuning, err := loadYAMLTuning(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	for _, d := range []struct {
		name string
		ms   int
		dst  *time.Duration
	}{
		{"scene_load_timeout_ms", tuning.SceneLoadTimeoutMs, &cfg.SceneLoadTimeout},
		{"ready_wait_timeout_ms", tuning.ReadyWaitTimeoutMs, &cfg.ReadyWaitTimeout},
		{"disconnect_init_wait_ms", tuning.DisconnectInitWaitMs, &cfg.DisconnectInitWait},
	} {
		if d.ms < 0 {
			return nil, fmt.Errorf("%s must not be negative, got %d", d.name, d.ms)
		}
		if d.ms > 0 {
			*d.dst = time.Duration(d.ms) * time.Millisecond
		}
	}
	return cfg, nil
}

// portFromEnv reads a port from name, falling back to def when unset.
func portFromEnv(name string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def, nil
	}
	port, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("%s must be 0-65535, got %d", name, port)
	}
	return port, nil
}
