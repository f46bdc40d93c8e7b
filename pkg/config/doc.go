// Package config provides configuration management for trafficwatch.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// The second form first loads a .env file next to the configuration file,
// if one exists. Variables already present in the environment win over the
// .env file.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention TRAFFICWATCH_SECTION_FIELD.
// For example:
//
//   - TRAFFICWATCH_CAPTURE_INTERFACE overrides capture.interface
//   - TRAFFICWATCH_LIMITS_DSN overrides limits.dsn
//   - TRAFFICWATCH_ALERT_KAFKA_BROKERS overrides alert.kafka.brokers (comma separated)
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. .env file
//  4. Environment variable overrides
//  5. Validation (fails fast if invalid)
//
// # Periods
//
// Validation and refresh periods are Go durations:
//
//	monitor:
//	  validation_period: 1h
//	  refresh_period: 15m
//
// A value and time unit pair is accepted as well; the unit takes the names
// NANOSECONDS through DAYS, in any case:
//
//	monitor:
//	  validation_value: 1
//	  validation_unit: HOURS
//
// # Singleton Pattern
//
//	if err := config.Initialize("config.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
package config
