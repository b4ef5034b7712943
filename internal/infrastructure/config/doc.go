// Package config handles loading and validating worker configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (SENTINEL_* names)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (broker passwords, InfluxDB tokens) should be set via
//     environment variables, not committed to the config file
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.MQTT.Broker.Host)
package config
