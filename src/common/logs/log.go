// Package logs provides the logging facility shared by kbuild commands.
// Output goes to stderr by default, or to systemd journald when requested
// and available, so unattended CI builds keep their logs.
package logs

import (
	"io"
	"os"
	"os/exec"

	"github.com/charmbracelet/log"
)

// LogOutput defines the output destination for logs
type LogOutput string

const (
	// OutputStderr sends logs to standard error
	OutputStderr LogOutput = "stderr"
	// OutputJournald sends logs to systemd journald
	OutputJournald LogOutput = "journald"
	// OutputAuto selects journald if available, otherwise stderr
	OutputAuto LogOutput = "auto"
)

// Logger wraps the charm log.Logger with the resolved output destination
type Logger struct {
	*log.Logger
	output LogOutput
}

// Config holds the configuration for the logger
type Config struct {
	// Output specifies where logs should be sent (stderr, journald, auto)
	Output LogOutput
	// Level sets the minimum log level (debug, info, warn, error)
	Level string
	// Prefix sets a prefix for all log messages
	Prefix string
}

// DefaultConfig returns a default configuration
func DefaultConfig() Config {
	return Config{
		Output: OutputStderr,
		Level:  "info",
	}
}

// defaultLogger is the shared logger handed out by NewDefault. Packages
// grab it at init time, before flags are parsed; Configure mutates it in
// place so those loggers pick up the resolved settings.
var defaultLogger = New(DefaultConfig())

// journaldAvailable checks if systemd-journald is usable on this host
func journaldAvailable() bool {
	if _, err := exec.LookPath("systemd-cat"); err != nil {
		return false
	}
	if _, err := os.Stat("/run/systemd/journal/socket"); err != nil {
		return false
	}
	return true
}

// parseLevel converts a string level to log.Level
func parseLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// resolveWriter maps the requested output to a writer, falling back to
// stderr when journald was requested but is not usable.
func resolveWriter(out LogOutput) (io.Writer, LogOutput) {
	switch out {
	case OutputJournald, OutputAuto:
		if journaldAvailable() {
			return newJournaldWriter(), OutputJournald
		}
	}
	return os.Stderr, OutputStderr
}

// New creates a new Logger with the given configuration
func New(cfg Config) *Logger {
	writer, output := resolveWriter(cfg.Output)

	logger := log.NewWithOptions(writer, log.Options{
		Level:           parseLevel(cfg.Level),
		Prefix:          cfg.Prefix,
		ReportTimestamp: true,
	})

	return &Logger{
		Logger: logger,
		output: output,
	}
}

// NewDefault returns the shared default Logger
func NewDefault() *Logger {
	return defaultLogger
}

// Configure applies cfg to the shared default logger. Loggers obtained
// from NewDefault before configuration, including package-level ones,
// observe the new level, destination, and prefix.
func Configure(cfg Config) {
	writer, output := resolveWriter(cfg.Output)
	defaultLogger.SetOutput(writer)
	defaultLogger.SetLevel(parseLevel(cfg.Level))
	defaultLogger.SetPrefix(cfg.Prefix)
	defaultLogger.output = output
}

// Output returns the resolved output destination
func (l *Logger) Output() LogOutput {
	return l.output
}

// journaldWriter forwards log lines to journald through systemd-cat
type journaldWriter struct {
	identifier string
}

func newJournaldWriter() *journaldWriter {
	return &journaldWriter{identifier: "kbuild"}
}

// Write implements io.Writer. If the forwarding process cannot be
// started the line falls back to stderr rather than being dropped.
func (w *journaldWriter) Write(p []byte) (n int, err error) {
	cmd := exec.Command("systemd-cat", "-t", w.identifier)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return os.Stderr.Write(p)
	}
	if err := cmd.Start(); err != nil {
		return os.Stderr.Write(p)
	}

	n, err = stdin.Write(p)
	stdin.Close()
	_ = cmd.Wait()

	return n, err
}
