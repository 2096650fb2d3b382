// Package log builds the slog loggers used by reviewharvest.
//
// Every logger is wrapped in SecureHandler, which masks sensitive values
// before they reach any sink:
//   - Translation API keys (by key name and by the "sk-" value shape)
//   - Proxy credentials embedded in URLs
//   - VPN tunnel private and preshared keys
//   - Authorization and cookie headers
//
// NewLogger writes WARN and above to the console (DEBUG with verbose) and,
// when a log file is configured, an INFO level copy to that file through
// FanoutHandler.
//
//	logger, closeLog, err := log.NewLogger(log.Options{
//	    Console:  os.Stderr,
//	    FilePath: "app.log",
//	})
//	defer closeLog()
//	slog.SetDefault(logger)
package log
