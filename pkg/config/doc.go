// Package config loads application configuration from environment variables
// into tagged Go structs.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11: the
// default .env file is loaded once per process (missing files are ignored),
// then env.Parse fills the struct based on `env` and `envDefault` field tags.
//
// # Usage
//
//	type HTTPConfig struct {
//		Addr string `env:"HTTP_ADDR" envDefault:":8080"`
//	}
//
//	var cfg HTTPConfig
//	config.MustLoad(&cfg)
//
// Errors can be inspected with errors.Is against ErrParsingConfig and
// ErrNilPointer.
package config
