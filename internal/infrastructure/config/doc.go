// Package config handles loading and validating cast bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Loading credentials from an optional .env file
//   - Overriding with environment variables
//   - Validation of required fields
//
// Security Considerations:
//   - MQTT passwords and InfluxDB tokens should come from the environment or .env
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Cast.URL)
package config
