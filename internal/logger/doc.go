// Package logger provides leveled logging for the sweep driver, backed by zap.
//
// The logger supports four levels: Debug, Info, Warn, and Error.
// Each console entry includes a timestamp, the bracketed level, an optional
// bracketed tag (usually the run project name), and the message.
//
// # Basic Usage
//
// Using the default logger:
//
//	logger.Info("", "Sweep started")
//	logger.Info("X_Degree_4_Mesh_Box_02", "Solver finished")
//	logger.Error("X_Degree_4_Mesh_Box_02", "Failed: %v", err)
//
// Creating a custom logger:
//
//	l := logger.NewWithFormat(os.Stderr, logger.LevelDebug, logger.FormatJSON)
//	l.Debug("", "Debug message")
//
// # Log Levels
//
// Messages below the configured level are filtered:
//   - LevelDebug: all messages
//   - LevelInfo: Info, Warn, Error
//   - LevelWarn: Warn, Error
//   - LevelError: Error only
//
// The level is held in a zap.AtomicLevel, so SetLevel is safe for concurrent use.
package logger
