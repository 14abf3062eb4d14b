package config

import "time"

type Config struct {
	Server    ServerConfig
	Transport TransportConfig
}

type ServerConfig struct {
	Address         string                `validate:"required"`
	Auth            AuthConfig            `mapstructure:"auth"`
	ConnectionLimit ConnectionLimitConfig `mapstructure:"connectionLimit"`
	RateLimit       RateLimitConfig       `mapstructure:"rateLimit"`
}

type AuthConfig struct {
	// JWTSecret signs handshake tokens. An empty secret disables token
	// verification and the gateway trusts query-parameter claims only.
	JWTSecret string `mapstructure:"jwtSecret"`
}

type ConnectionLimitConfig struct {
	MaxPerUser int    `mapstructure:"maxPerUser" validate:"gte=0"`
	Mode       string `mapstructure:"mode" validate:"oneof=reject cycle"`
}

type RateLimitConfig struct {
	// HandshakesPerMinute caps websocket upgrades per client IP.
	// Zero disables the limiter.
	HandshakesPerMinute int `mapstructure:"handshakesPerMinute" validate:"gte=0"`
}

type TransportConfig struct {
	ReadTimeout  time.Duration `mapstructure:"readTimeout" validate:"gte=0"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout" validate:"gte=0"`
}
