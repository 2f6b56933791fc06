// Package log provides the leveled logging interface shared by the advisor packages.
//
// Two implementations are provided: DefaultLogger, built on the standard library
// logger, and GologLogger, a thin wrapper over github.com/kataras/golog used by the
// command line host. Components accept a Logger through a WithLogger option and fall
// back to the package-level logger returned by GetDefaultLogger.
//
//	glogger := golog.New()
//	glogger.SetPrefix("[advisor] ")
//	logger := log.NewGologLogger(glogger)
//	logger.SetLevel(log.LogLevelDebug)
//	log.SetDefaultLogger(logger)
//
// Levels, from most to least verbose: LogLevelDebug, LogLevelInfo, LogLevelWarn,
// LogLevelError and LogLevelNone. ParseLevel converts configuration strings.
package log
