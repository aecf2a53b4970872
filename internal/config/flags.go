package config

import "github.com/spf13/pflag"

var (
	flagConfig    = pflag.String("config", "", "Path to config file")
	flagDebug     = pflag.Bool("debug", false, "Enable debug logging")
	flagAngle     = pflag.Float64("angle", 60, "Edge threshold in degrees (0 keeps every edge)")
	flagFormat    = pflag.String("format", "glb", "Output encoding: glb or cbor")
	flagWorkers   = pflag.Int("workers", 0, "Worker goroutines (0 = one per CPU)")
	flagEncrypted = pflag.Bool("encrypted", false, "Input .osdz carries a 16-byte encryption header")
	flagLogFile   = pflag.String("log-file", "", "Write rotated logs to this file")
	flagVersion   = pflag.Bool("version", false, "Print version and exit")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	pflag.Parse()
}

// Args returns the positional arguments left after flag parsing.
func Args() []string {
	return pflag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// ShowVersion reports whether --version was given.
func ShowVersion() bool {
	return *flagVersion
}

// Usage prints flag help to stderr.
func Usage() {
	pflag.Usage()
}

// applyFlags applies CLI flag overrides to the config. Only flags set on the
// command line override file values.
func applyFlags(cfg *Config) {
	changed := pflag.CommandLine.Changed

	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if changed("angle") {
		cfg.Export.AngleThreshold = *flagAngle
	}
	if changed("format") {
		cfg.Export.Format = *flagFormat
	}
	if changed("workers") {
		cfg.Export.Workers = *flagWorkers
	}
	if *flagEncrypted {
		cfg.Input.Encrypted = true
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
}
