package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vellumchat/vellum-go/pkg/log"
)

type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	Upload    UploadConfig
	Typing    TypingConfig
	Log       log.Config
}

type ServerConfig struct {
	// Endpoint is the websocket URL of the messaging service.
	Endpoint string
	// Origin is the https base used to absolutise relative avatar and
	// file paths the server hands out.
	Origin string
}

type WebSocketConfig struct {
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	PingInterval     time.Duration `mapstructure:"ping_interval"`
	PongWait         time.Duration `mapstructure:"pong_wait"`
	WriteWait        time.Duration `mapstructure:"write_wait"`
	MaxMessageSize   int64         `mapstructure:"max_message_size"`
}

type UploadConfig struct {
	// BaseURL is the multipart upload endpoint, without the trailing
	// kind segment ("file" or "avatar").
	BaseURL string `mapstructure:"base_url"`
	Timeout time.Duration
}

type TypingConfig struct {
	// TTL is how long a typing flag stays up without a refresh.
	TTL time.Duration
}

// Load reads configuration from an optional config.yaml plus environment
// variables and fills in defaults for everything else.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file: rely on defaults and env vars.
	}

	v.SetDefault("server.endpoint", "wss://api.vellum.chat/ws")
	v.SetDefault("server.origin", "https://api.vellum.chat")
	v.SetDefault("websocket.handshake_timeout", "10s")
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 1048576)
	v.SetDefault("upload.base_url", "https://api.vellum.chat/upload")
	v.SetDefault("upload.timeout", "120s")
	v.SetDefault("typing.ttl", "3s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service_name", "vellum-client")

	v.BindEnv("server.endpoint", "VELLUM_ENDPOINT")
	v.BindEnv("server.origin", "VELLUM_ORIGIN")
	v.BindEnv("upload.base_url", "VELLUM_UPLOAD_URL")
	v.BindEnv("log.level", "VELLUM_LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.WebSocket.HandshakeTimeout = parseDuration(v, "websocket.handshake_timeout", 10*time.Second)
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Upload.Timeout = parseDuration(v, "upload.timeout", 120*time.Second)
	cfg.Typing.TTL = parseDuration(v, "typing.ttl", 3*time.Second)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
