// Package config loads worker configuration. Default() is the baseline,
// Load reads a JSON or YAML file over it and FromEnv overlays INFERQ_*
// variables. Command-line flags are applied last by the caller.
//
// Example:
//
//	cfg, err := config.Load("/etc/inferq.yaml")
//	if err != nil {
//	    return err
//	}
//	if err := config.FromEnv(&cfg); err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
