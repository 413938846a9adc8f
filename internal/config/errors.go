package config

import "errors"

var (
	// ErrInvalidConfig marks a setting that failed Validate.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig marks a failure reading the YAML file or the environment.
	ErrLoadConfig = errors.New("load config failed")
)
