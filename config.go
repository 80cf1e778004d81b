package kestrel

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// IdleTimeoutConfiguration bounds how long a connection may sit idle
// before its read or write side times out, per `spec.md` §6.
type IdleTimeoutConfiguration struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Config is the CLI/configuration surface described in `spec.md` §6,
// plus the ambient fields (TLS, debug mode, app name, log sink) a real
// deployment needs, per `SPEC_FULL.md` §2.3.
type Config struct {
	// AppName names this instance in log lines and, if ServerName is
	// unset, nowhere else -- it is purely a logging label.
	AppName string

	// Address is a "host:port" or a unix-socket path ("unix:/path").
	// Default "127.0.0.1:8080".
	Address string

	// ServerName, if set, is sent as the Server response header on
	// every response the handler itself didn't set one for.
	ServerName string

	// Backlog is the listen(2) backlog size. Default 256. The listener
	// records it but does not pass it to the socket.
	Backlog int

	// ReuseAddress sets SO_REUSEADDR on the listening socket. Default
	// true.
	ReuseAddress bool

	IdleTimeoutConfiguration IdleTimeoutConfiguration

	// LogLevel is one of "trace", "debug", "info", "warn", "error".
	// Default "info". The LOG_LEVEL environment variable, when set,
	// overrides this value, including a level given in a loaded file.
	LogLevel string

	// GracefulShutdownSignals are the OS signals that trigger service
	// group shutdown. Default {SIGTERM, SIGINT}.
	GracefulShutdownSignals []os.Signal

	// DebugMode enables verbose trace-level diagnostics in a few
	// call sites that would otherwise be too noisy for production.
	DebugMode bool

	TLSCertFile string
	TLSKeyFile  string

	// LogOutputPath, if set, points the application Logger at a
	// `gopkg.in/natefinch/lumberjack.v2` rotating file sink instead of
	// stdout.
	LogOutputPath  string
	LogMaxSizeMB   int
	LogMaxBackups  int
	LogMaxAgeDays  int
	LogCompressOld bool
}

// DefaultConfig returns the Config with every field at its `spec.md`
// §6 documented default.
func DefaultConfig(appName string) *Config {
	return &Config{
		AppName:                  appName,
		Address:                  "127.0.0.1:8080",
		Backlog:                 256,
		ReuseAddress:            true,
		LogLevel:                "info",
		GracefulShutdownSignals: []os.Signal{syscall.SIGTERM, os.Interrupt},
		LogMaxSizeMB:            100,
		LogMaxBackups:           7,
		LogMaxAgeDays:           28,
	}
}

// Load reads the file at path and decodes it into a new Config seeded
// with DefaultConfig(appName), dispatching the parser on path's
// extension: `.toml` via `github.com/BurntSushi/toml`, `.yaml`/`.yml`
// via `gopkg.in/yaml.v3`, `.ini` via `gopkg.in/ini.v1`, `.json` via the
// standard library (see DESIGN.md -- no third-party JSON decoder is
// available in the examples pack this module is grounded on). The
// decoded generic map is applied onto the Config with
// `github.com/mitchellh/mapstructure`, mirroring the way the teacher's
// `air.go` `Serve` method loads its own `ConfigFile`.
func Load(path, appName string) (*Config, error) {
	cfg := DefaultConfig(appName)

	raw, err := parseConfigFile(path)
	if err != nil {
		return nil, err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		TagName:          "config",
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("kestrel: decoding config %s: %w", path, err)
	}

	cfg.applyLogLevelEnv()

	return cfg, nil
}

func parseConfigFile(path string) (map[string]interface{}, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".toml":
		var m map[string]interface{}
		if _, err := toml.DecodeFile(path, &m); err != nil {
			return nil, err
		}
		return m, nil
	case ".yaml", ".yml":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var m map[string]interface{}
		if err := yaml.Unmarshal(b, &m); err != nil {
			return nil, err
		}
		return m, nil
	case ".ini":
		f, err := ini.Load(path)
		if err != nil {
			return nil, err
		}
		m := map[string]interface{}{}
		for _, section := range f.Sections() {
			for _, key := range section.Keys() {
				m[key.Name()] = key.Value()
			}
		}
		return m, nil
	case ".json":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var m map[string]interface{}
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("kestrel: unrecognized config extension %q", ext)
	}
}

// applyLogLevelEnv overrides c.LogLevel from the LOG_LEVEL environment
// variable, looked up case-insensitively, when it is set.
func (c *Config) applyLogLevelEnv() {
	for _, kv := range os.Environ() {
		i := strings.IndexByte(kv, '=')
		if i < 0 {
			continue
		}

		if strings.EqualFold(kv[:i], "LOG_LEVEL") {
			c.LogLevel = kv[i+1:]
			return
		}
	}
}

// signals returns c's configured shutdown signals, falling back to
// {SIGTERM, SIGINT} if none were configured.
func (c *Config) signals() []os.Signal {
	if len(c.GracefulShutdownSignals) == 0 {
		return []os.Signal{syscall.SIGTERM, os.Interrupt}
	}

	return c.GracefulShutdownSignals
}
