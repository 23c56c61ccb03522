package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"input": "/data/frames.log",
		"log": { "level": "debug" },
		"server": { "host": "127.0.0.1", "port": 8080 }
	}`)

	require.NoError(t, Load(dir))

	assert.Equal(t, "/data/frames.log", GetInput())
	assert.Equal(t, "debug", GetLogConfig().Level)
	assert.Equal(t, ServerConfig{Host: "127.0.0.1", Port: 8080, WebRoot: "."}, GetServerConfig())
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "", GetInput())
	assert.Equal(t, "info", viper.GetString("log.level"))
	assert.Equal(t, "./logs", viper.GetString("log.dir"))
	assert.Equal(t, "0.0.0.0", viper.GetString("server.host"))
	assert.Equal(t, 3527, viper.GetInt("server.port"))
	assert.Equal(t, false, viper.GetBool("reader.strict"))
	assert.Equal(t, false, viper.GetBool("serializer.metadata"))
	assert.Equal(t, "memory", viper.GetString("storage.type"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, "dataviewer", viper.GetString("otel.serviceName"))
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(t.TempDir()))
	assert.Equal(t, "0.0.0.0:3527", GetServerConfig().Addr())
}

func TestLoad_InvalidJSON(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load(writeConfig(t, `{ not json`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("DATAVIEWER_SERVER_PORT", "9000")
	t.Setenv("DATAVIEWER_STORAGE_TYPE", "sqlite")

	require.NoError(t, Load(t.TempDir()))

	assert.Equal(t, 9000, GetServerConfig().Port)
	assert.Equal(t, "sqlite", GetStorageConfig().Type)
}

func TestLoadFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "custom.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"reader": {"strict": true}}`), 0644))

	require.NoError(t, LoadFile(path))
	assert.True(t, GetReaderConfig().Strict)
}

func TestLoadFile_Missing(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetStorageConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetStorageConfig()
	assert.Equal(t, "memory", cfg.Type)
	assert.Equal(t, "./exports", cfg.Memory.OutputDir)
	assert.Equal(t, true, cfg.Memory.CompressOutput)
	assert.Equal(t, "./export.log", cfg.LogFile.Path)
	assert.Equal(t, "", cfg.SQLite.Path)
	assert.Equal(t, 3*time.Minute, cfg.SQLite.DumpInterval)
	assert.Equal(t, 2000, cfg.SQLite.BatchSize)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=dataviewer sslmode=disable", cfg.Postgres.DSN())
	assert.Equal(t, "", cfg.WebSocket.URL)
	assert.Equal(t, 10*time.Second, cfg.WebSocket.AckTimeout)
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"storage": {
			"type": "sqlite",
			"memory": { "outputDir": "/tmp/out", "compressOutput": false },
			"sqlite": { "path": "/tmp/frames.db", "dumpInterval": "10m" },
			"websocket": { "url": "ws://viewer:3528/ingest", "secret": "s3cret" }
		}
	}`)))

	sc := GetStorageConfig()
	assert.Equal(t, "sqlite", sc.Type)
	assert.Equal(t, "/tmp/out", sc.Memory.OutputDir)
	assert.Equal(t, false, sc.Memory.CompressOutput)
	assert.Equal(t, "/tmp/frames.db", sc.SQLite.Path)
	assert.Equal(t, 10*time.Minute, sc.SQLite.DumpInterval)
	assert.Equal(t, "ws://viewer:3528/ingest", sc.WebSocket.URL)
	assert.Equal(t, "s3cret", sc.WebSocket.Secret)
}

func TestGetOTelConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"otel": {
			"enabled": true,
			"serviceName": "my-service",
			"batchTimeout": "30s",
			"endpoint": "localhost:4318",
			"insecure": false
		}
	}`)))

	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "my-service", oc.ServiceName)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, "localhost:4318", oc.Endpoint)
	assert.Equal(t, false, oc.Insecure)
}

func TestGetInfluxAndGraylogConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{"influx": {"enabled": true, "host": "influx"}}`)))

	ic := GetInfluxConfig()
	assert.True(t, ic.Enabled)
	assert.Equal(t, "http://influx:8086", ic.URL())
	assert.Equal(t, "frames", ic.Bucket)

	gc := GetGraylogConfig()
	assert.False(t, gc.Enabled)
	assert.Equal(t, "dataviewer", gc.Facility)
}

func TestGetSerializerConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{"serializer": {"metadata": true}}`)))
	assert.True(t, GetSerializerConfig().Metadata)
}
