package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide logrus instance used by every package.
var Logger = logrus.New()

var mu sync.Mutex

// Options controls where and how Logger writes.
type Options struct {
	SystemName string
	// File enables lumberjack rotation. Empty means stderr.
	File  string
	Level string
	// Output overrides both File and stderr. Used by tests.
	Output io.Writer
}

// CustomFormatter writes one comma separated line per entry.
type CustomFormatter struct {
	SystemName string
}

func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	b.WriteString(fmt.Sprintf("Date: %s, Time: %s, ", entry.Time.Format("2006-01-02"), entry.Time.Format("15:04:05")))
	b.WriteString(fmt.Sprintf("Event Source: %s, ", f.SystemName))
	b.WriteString(fmt.Sprintf("Event Type: %s, ", strings.ToUpper(entry.Level.String())))
	b.WriteString(fmt.Sprintf("Event ID: %s, ", uuid.New().String()))
	b.WriteString(fmt.Sprintf("Message: %s", entry.Message))

	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(fmt.Sprintf(", %s=%v", k, entry.Data[k]))
		}
	}

	if entry.HasCaller() {
		b.WriteString(fmt.Sprintf(", Location: %s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line))
	}

	b.WriteByte('\n')

	return b.Bytes(), nil
}

// InitLogger configures Logger. It can be called again to reconfigure,
// for example after the config file has been read.
func InitLogger(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	if opts.SystemName == "" {
		opts.SystemName = "taskmanager-client"
	}

	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return fmt.Errorf("parse log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	var out io.Writer = os.Stderr
	switch {
	case opts.Output != nil:
		out = opts.Output
	case opts.File != "":
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o700); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		out = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
	}

	Logger.SetOutput(out)
	Logger.SetFormatter(&CustomFormatter{SystemName: opts.SystemName})
	Logger.SetLevel(level)
	Logger.SetReportCaller(level >= logrus.DebugLevel)

	Logger.Debugf("Event ID: LOGGER_INITIALIZED, Description: Logger initialized for %s", opts.SystemName)
	return nil
}
