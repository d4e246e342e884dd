// Package config loads the settings that size the governance layer.
//
// Settings are read from built-in defaults, an optional YAML file, an
// optional .env file and REPORTOPS_* environment variables, in increasing
// order of precedence:
//
//	s, err := config.Load(config.LoaderOptions{ConfigFile: "reportops.yml"})
//	if err != nil {
//		return err
//	}
//	coord, err := coordinator.NewFromSettings(s)
//
// A .env file never overrides a variable already present in the process
// environment.
//
// Write renders settings back to YAML in the same shape Load reads, which
// is useful for dumping the effective configuration.
package config
