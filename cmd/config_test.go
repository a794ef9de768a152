package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"myinstanceserver/domain"
	"myinstanceserver/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv(envRedisAddr, "redis://localhost:6379")
	t.Setenv(envJWTSecret, "secret")
	for _, name := range []string{
		envHTTPPort, envGRPCPort, envKubernetesEnabled, envAgonesSDKURL,
		envInstanceServerPort, envShutdownDelayMs, envRecordServiceURL, envConfigPath,
	} {
		t.Setenv(name, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "redis://localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, []byte("secret"), cfg.JWTSecret)
	assert.Equal(t, 3031, cfg.HTTPPort)
	assert.Equal(t, 3032, cfg.GRPCPort)
	assert.Equal(t, 3031, cfg.InstanceServerPort)
	assert.Equal(t, domain.DeploymentLocal, cfg.Mode)
	assert.Equal(t, 3*time.Second, cfg.ShutdownDelay)
	assert.Empty(t, cfg.RecordServiceURL)
	assert.Equal(t, service.DefaultSceneLoadTimeout, cfg.SceneLoadTimeout)
	assert.Equal(t, service.DefaultReadyWaitTimeout, cfg.ReadyWaitTimeout)
	assert.Equal(t, service.DefaultDisconnectInitWait, cfg.DisconnectInitWait)
}

func TestLoadConfig_Required(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"redis addr", map[string]string{envRedisAddr: ""}, "REDIS_ADDR is required"},
		{"jwt secret", map[string]string{envJWTSecret: " "}, "JWT_SECRET is required"},
		{"agones url when clustered", map[string]string{envKubernetesEnabled: "true"}, "AGONES_SDK_HTTP_URL is required"},
		{"invalid http port", map[string]string{envHTTPPort: "not-a-number"}, "SERVICE_PORT_HTTP"},
		{"grpc port out of range", map[string]string{envGRPCPort: "70000"}, "SERVICE_PORT_GRPC"},
		{"invalid kubernetes flag", map[string]string{envKubernetesEnabled: "maybe"}, "KUBERNETES_ENABLED"},
		{"negative shutdown delay", map[string]string{envShutdownDelayMs: "-1"}, "SHUTDOWN_DELAY_MS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := LoadConfig()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_Clustered(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(envKubernetesEnabled, "true")
	t.Setenv(envAgonesSDKURL, "http://localhost:9358")
	t.Setenv(envHTTPPort, "7000")
	t.Setenv(envInstanceServerPort, "7100")
	t.Setenv(envShutdownDelayMs, "0")
	t.Setenv(envRecordServiceURL, "http://records:3030")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, domain.DeploymentClustered, cfg.Mode)
	assert.Equal(t, "http://localhost:9358", cfg.AgonesSDKURL)
	assert.Equal(t, 7000, cfg.HTTPPort)
	assert.Equal(t, 7100, cfg.InstanceServerPort)
	assert.Equal(t, time.Duration(0), cfg.ShutdownDelay)
	assert.Equal(t, "http://records:3030", cfg.RecordServiceURL)
}

func TestLoadConfig_YAML(t *testing.T) {
	setRequiredEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "instanceserver.yaml")
	content := `
scene_load_timeout_ms: 30000
disconnect_init_wait_ms: 250
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))
	t.Setenv(envConfigPath, cfgPath)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.SceneLoadTimeout)
	assert.Equal(t, service.DefaultReadyWaitTimeout, cfg.ReadyWaitTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.DisconnectInitWait)
}

func TestLoadConfig_YAMLErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"malformed", "scene_load_timeout_ms: [", "load config"},
		{"negative", "ready_wait_timeout_ms: -5", "ready_wait_timeout_ms"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			cfgPath := filepath.Join(t.TempDir(), "instanceserver.yaml")
			require.NoError(t, os.WriteFile(cfgPath, []byte(tt.content), 0o644))
			t.Setenv(envConfigPath, cfgPath)

			cfg, err := LoadConfig()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv(envConfigPath, filepath.Join(t.TempDir(), "absent.yaml"))
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "load config")
	})
}
