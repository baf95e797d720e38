// Package config loads and validates pmdesk configuration.
//
// Values come from three layers, each overriding the previous one:
// built-in defaults, a YAML file, then PMDESK_* environment variables.
// Secrets (JWT secret, MQTT and InfluxDB credentials) should be supplied
// through the environment rather than committed to the YAML file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Organisation.Name)
package config
