// Package logger builds the logrus loggers used by the gateway binaries.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Supported formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatLine = "line"
)

// Options configures New.
type Options struct {
	Level  string
	Format string
	// Output is where the entries are written, stderr when nil.
	Output io.Writer
	// File enables a rotated log file in addition to Output.
	File       string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// New returns a new well configured logger.
func New(opts Options) (*logrus.Logger, error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		var err error
		level, err = logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, errors.Wrap(err, "invalid log level")
		}
	}

	formatter, err := formatter(opts.Format)
	if err != nil {
		return nil, err
	}

	l := logrus.New()
	l.SetLevel(level)
	l.SetFormatter(formatter)
	l.SetOutput(os.Stderr)
	if opts.Output != nil {
		l.SetOutput(opts.Output)
	}

	if opts.File != "" {
		l.Hooks.Add(&fileHook{
			rotate: &lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    orDefault(opts.MaxSize, 20),
				MaxBackups: orDefault(opts.MaxBackups, 2),
				MaxAge:     orDefault(opts.MaxAge, 10),
			},
			formatter: formatter,
		})
	}

	return l, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func formatter(name string) (logrus.Formatter, error) {
	switch name {
	case "", FormatText:
		return &logrus.TextFormatter{FullTimestamp: true}, nil
	case FormatJSON:
		return &logrus.JSONFormatter{}, nil
	case FormatLine:
		return new(lineFormatter), nil
	default:
		return nil, errors.Errorf("unsupported log format: %s", name)
	}
}

func orDefault(v, d int) int {
	if v <= 0 {
		return d
	}
	return v
}

////////////////////
//                //
// File hook      //
//                //
////////////////////

type fileHook struct {
	sync.Mutex
	rotate    io.WriteCloser
	formatter logrus.Formatter
}

// Fire formats the entry and writes it to the rotated file.
func (hook *fileHook) Fire(entry *logrus.Entry) error {
	hook.Lock()
	defer hook.Unlock()

	// use our formatter instead of entry.String()
	msg, err := hook.formatter.Format(entry)
	if err != nil {
		log.Println("failed to generate string for entry:", err)
		return err
	}

	_, err = hook.rotate.Write(msg)
	return err
}

// Levels returns configured log levels.
func (hook *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

////////////////////
//                //
// Log formatter  //
//                //
////////////////////

type lineFormatter struct{}

// Format implements Logrus formatter.
func (f *lineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	fields := ""
	if len(entry.Data) > 0 {
		fs := []string{}
		for k, v := range entry.Data {
			fs = append(fs, fmt.Sprintf("%s=%v", k, v))
		}
		sort.Strings(fs)
		fields = fmt.Sprintf(" (%s)", strings.Join(fs, ", "))
	}

	data := fmt.Sprintf("[%s] %+5s: %s%s\n",
		entry.Time.Format(time.RFC3339),
		strings.ToUpper(entry.Level.String()),
		entry.Message,
		fields,
	)
	return []byte(data), nil
}
