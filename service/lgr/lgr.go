package lgr

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	goxerrors "github.com/mdobak/go-xerrors"
	"github.com/natefinch/lumberjack"
)

// Logger is shared by every package. It is usable before Configure is called.
var Logger = slog.New(newPrettyHandler(os.Stderr, &slog.HandlerOptions{
	Level:       slog.LevelInfo,
	ReplaceAttr: replaceAttr,
}))

type Options struct {
	Level  string // debug, info, warn, error
	Format string // pretty (default) or json
	// When set, logs are also written to this file with rotation
	File       string
	MaxSizeMB  int
	MaxBackups int
}

func OptionsFromEnv() Options {
	return Options{
		Level:      os.Getenv("LIVENESS_LOG_LEVEL"),
		Format:     os.Getenv("LIVENESS_LOG_FORMAT"),
		File:       os.Getenv("LIVENESS_LOG_FILE"),
		MaxSizeMB:  10,
		MaxBackups: 3,
	}
}

func Configure(opts Options) {
	handlerOpts := &slog.HandlerOptions{
		Level:       parseLevel(opts.Level),
		ReplaceAttr: replaceAttr,
	}

	var w io.Writer = os.Stderr
	if opts.File != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		})
	}

	var handler slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = newPrettyHandler(w, handlerOpts)
	}

	Logger = slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type stackFrame struct {
	Func   string `json:"func"`
	Source string `json:"source"`
	Line   int    `json:"line"`
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindAny {
		return a
	}
	if err, ok := a.Value.Any().(error); ok {
		a.Value = fmtErr(err)
	}
	return a
}

// fmtErr expands an error into its message and, when it was created by
// go-xerrors, the captured stack.
func fmtErr(err error) slog.Value {
	values := []slog.Attr{slog.String("msg", err.Error())}

	if frames := marshalStack(err); frames != nil {
		values = append(values, slog.Any("trace", frames))
	}

	return slog.GroupValue(values...)
}

func marshalStack(err error) []stackFrame {
	trace := goxerrors.StackTrace(err)
	if len(trace) == 0 {
		return nil
	}

	frames := trace.Frames()
	s := make([]stackFrame, len(frames))
	for i, v := range frames {
		s[i] = stackFrame{
			Source: filepath.Join(filepath.Base(filepath.Dir(v.File)), filepath.Base(v.File)),
			Func:   filepath.Base(v.Function),
			Line:   v.Line,
		}
	}
	return s
}
