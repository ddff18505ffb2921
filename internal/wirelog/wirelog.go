// Package wirelog wraps standard log.Logger severities (Info/Warn/Error/
// Debug) into one set. The config.LogLevel setting gates Debug output
// only, toggleable at runtime instead of being fixed at boot; Info, Warn
// and Error always write.
package wirelog

import (
	"io"
	"log"
	"os"

	"github.com/mattn/go-isatty"

	"stellarcore/pkg/config"
)

// Loggers bundles the four severities together. Debug is silently
// discarded unless the configured level permits it.
type Loggers struct {
	Info  *log.Logger
	Warn  *log.Logger
	Error *log.Logger
	Debug *log.Logger

	level *config.LogLevel
}

var discard = log.New(io.Discard, "", 0)

// New builds loggers writing to w (typically os.Stdout/os.Stderr or a
// rotated file), tagging each line with a severity prefix. When w is a
// TTY, flags drop the date and file:line fields and keep only the time,
// matching interactive terminal conventions.
func New(w io.Writer, level config.LogLevel) *Loggers {
	flags := log.Ldate | log.Ltime | log.Lshortfile
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		flags = log.Ltime
	}

	l := &Loggers{
		Info:  log.New(w, "INFO  ", flags),
		Warn:  log.New(w, "WARN  ", flags),
		Error: log.New(w, "ERROR ", flags),
		Debug: discard,
	}
	lvl := level
	l.level = &lvl
	if level == config.LogDebug {
		l.Debug = log.New(w, "DEBUG ", flags)
	}
	return l
}

// SetLevel toggles Debug output at runtime, called when an admin
// mutation changes log_level.
func (l *Loggers) SetLevel(level config.LogLevel, w io.Writer) {
	*l.level = level
	if level == config.LogDebug {
		l.Debug = log.New(w, "DEBUG ", log.Ldate|log.Ltime|log.Lshortfile)
	} else {
		l.Debug = discard
	}
}
