package fautil

import (
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

const (
	logFlags                = os.O_CREATE | os.O_APPEND | os.O_WRONLY
	logFileMode fs.FileMode = 0644

	// RequestIDKey is the log field and context key used to tie log lines and recorded queries to one request
	RequestIDKey = "requestID"
)

var (
	logFile    *os.File
	accessFile *os.File

	logger       zerolog.Logger
	accessLogger zerolog.Logger
)

// LogStr logs a string to the given zerolog events.
func LogStr(key, val string, events ...*zerolog.Event) {
	for e := range events {
		if events[e] != nil {
			events[e] = events[e].Str(key, val)
		}
	}
}

// LogInt logs an integer to the given zerolog events.
func LogInt(key string, i int, events ...*zerolog.Event) {
	for e := range events {
		if events[e] != nil {
			events[e] = events[e].Int(key, i)
		}
	}
}

// LogBool logs a boolean value to the given zerolog events.
func LogBool(key string, b bool, events ...*zerolog.Event) {
	for e := range events {
		if events[e] != nil {
			events[e] = events[e].Bool(key, b)
		}
	}
}

// LogTime logs a time value to the given zerolog events.
func LogTime(key string, t time.Time, events ...*zerolog.Event) {
	for e := range events {
		if events[e] != nil {
			events[e] = events[e].Time(key, t)
		}
	}
}

// LogArray logs a slice of any type as an array in the zerolog events.
func LogArray[T any](key string, arr []T, events ...*zerolog.Event) {
	for e := range events {
		if events[e] == nil {
			continue
		}
		zlArr := zerolog.Arr()
		for _, v := range arr {
			zlArr.Interface(v)
		}
		events[e] = events[e].Array(key, zlArr)
	}
}

// LogDiscard disables the given events so that they are never written
func LogDiscard(events ...*zerolog.Event) {
	for e := range events {
		if events[e] == nil {
			continue
		}
		events[e] = events[e].Discard()
	}
}

// RunningInTerminal returns true if stdout is a terminal (including Cygwin/MSYS terminals)
// and not being piped to a file
func RunningInTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func consoleWriter() zerolog.ConsoleWriter {
	inTerminal := RunningInTerminal()
	return zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.NoColor = !inTerminal
		if inTerminal {
			w.Out = colorable.NewColorableStdout()
		}
	})
}

func init() {
	// the logger needs to be usable before the configuration is loaded
	logger = zerolog.New(consoleWriter()).With().Timestamp().Logger()
	accessLogger = zerolog.Nop()
}

func initLog(logPath string, level zerolog.Level, console bool) (err error) {
	if logFile != nil {
		if err = logFile.Close(); err != nil {
			logger.Err(err).Msg("Unable to close log file")
			return err
		}
	}
	logFile, err = os.OpenFile(logPath, logFlags, logFileMode) // skipcq: GSC-G302
	if err != nil {
		logger.Err(err).Msg("Unable to open log file")
		return err
	}

	var writer io.Writer = logFile
	if console {
		writer = zerolog.MultiLevelWriter(logFile, consoleWriter())
	}
	logger = zerolog.New(writer).With().Timestamp().Logger().Level(level)
	return nil
}

func initAccessLog(logPath string) (err error) {
	if accessFile != nil {
		if err = accessFile.Close(); err != nil {
			return err
		}
	}
	accessFile, err = os.OpenFile(logPath, logFlags, logFileMode) // skipcq: GSC-G302
	if err != nil {
		return err
	}
	accessLogger = zerolog.New(accessFile).With().Timestamp().Logger()
	return nil
}

// InitLogs opens (or creates) forumadmin.log and access.log in logDir. If verbose is true,
// debug level events are also written. Events are echoed to the console when running in a terminal
func InitLogs(logDir string, verbose bool) (err error) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	if err = initLog(filepath.Join(logDir, "forumadmin.log"), level, RunningInTerminal()); err != nil {
		return err
	}
	return initAccessLog(filepath.Join(logDir, "access.log"))
}

// SetLogger replaces the main logger, mainly so that tests can capture its output
func SetLogger(l zerolog.Logger) {
	logger = l
}

func Logger() *zerolog.Logger {
	return &logger
}

func LogInfo() *zerolog.Event {
	return logger.Info()
}

func LogWarning() *zerolog.Event {
	return logger.Warn()
}

// LogAccess starts an info level zerolog event in the access log, with the requester's
// path, IP, HTTP method, and user agent string
func LogAccess(request *http.Request) *zerolog.Event {
	ev := accessLogger.Info()
	if request != nil {
		ev.
			Str("path", request.URL.Path).
			Str("IP", GetRealIP(request)).
			Str("method", request.Method)
		if ua := request.UserAgent(); ua != "" {
			ev.Str("userAgent", ua)
		}
	}
	return ev
}

// LogRequest returns info, warning, and error level zerolog events with the requester's
// IP, the requested path and HTTP method, and the request ID if one was assigned
func LogRequest(request *http.Request) (*zerolog.Event, *zerolog.Event, *zerolog.Event) {
	infoEv := logger.Info()
	warnEv := logger.Warn()
	errEv := logger.Error()
	if request != nil {
		LogStr("IP", GetRealIP(request), infoEv, warnEv, errEv)
		LogStr("path", request.URL.Path, infoEv, warnEv, errEv)
		LogStr("method", request.Method, infoEv, warnEv, errEv)
		if ua := request.UserAgent(); ua != "" {
			LogStr("userAgent", ua, infoEv, warnEv, errEv)
		}
		if reqID := RequestID(request.Context()); reqID != "" {
			LogStr(RequestIDKey, reqID, infoEv, warnEv, errEv)
		}
	}
	return infoEv, warnEv, errEv
}

func LogError(err error) *zerolog.Event {
	if err != nil {
		return logger.Err(err)
	}
	return logger.Error()
}

func LogFatal() *zerolog.Event {
	return logger.Fatal()
}

func LogDebug() *zerolog.Event {
	return logger.Debug()
}

func CloseLog() error {
	if accessFile != nil {
		accessFile.Close()
	}
	if logFile == nil {
		return nil
	}
	return logFile.Close()
}
