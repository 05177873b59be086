// Package auditlog records every JSON-RPC call the daemon handles as a
// structured audit trail, independent of the application's slog-based
// operational log.
//
// It adapts the teacher's legacy logrus Logger interface (see
// firestige-Otus/internal/log/log.go) into a single-purpose recorder: one
// entry per inbound request, carrying the caller's access level, the method,
// and the outcome.
package auditlog

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/msgctl/netaidkit-nakd/internal/config"
)

// AccessLevel mirrors jsonrpc.AccessLevel without importing it, so this
// package stays leaf-level and import-cycle free.
type AccessLevel int

const (
	AccessUser AccessLevel = iota
	AccessRoot
)

func (a AccessLevel) String() string {
	if a == AccessRoot {
		return "root"
	}
	return "user"
}

// Logger records JSON-RPC call audit entries.
type Logger struct {
	entry *logrus.Logger
}

var (
	once     sync.Once
	instance *Logger
)

// Init configures the package-level audit logger. Safe to call once at
// daemon startup; subsequent calls are no-ops.
func Init(cfg config.AuditConfig) error {
	var err error
	once.Do(func() {
		instance, err = newLogger(cfg)
	})
	return err
}

// Get returns the package-level audit logger, defaulting to a stderr-only
// logger if Init was never called (e.g. in unit tests).
func Get() *Logger {
	if instance == nil {
		l, _ := newLogger(config.AuditConfig{Enabled: true, Level: "info"})
		return l
	}
	return instance
}

func newLogger(cfg config.AuditConfig) (*Logger, error) {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	var out io.Writer = os.Stderr
	if cfg.Enabled && cfg.Path != "" {
		f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
		if err != nil {
			return nil, err
		}
		out = f
	} else if !cfg.Enabled {
		out = io.Discard
	}
	l.SetOutput(out)

	return &Logger{entry: l}, nil
}

// Call records the outcome of a single JSON-RPC method invocation.
func (l *Logger) Call(connID, method string, access AccessLevel, errCode int, durationMS int64) {
	fields := logrus.Fields{
		"conn":        connID,
		"method":      method,
		"access":      access.String(),
		"duration_ms": durationMS,
	}
	if errCode != 0 {
		fields["error_code"] = errCode
		l.entry.WithFields(fields).Warn("rpc call failed")
		return
	}
	l.entry.WithFields(fields).Info("rpc call")
}

// Reject records a connection-level rejection (bad peer creds, over
// max_conns, malformed frame before a method could even be parsed).
func (l *Logger) Reject(connID, reason string) {
	l.entry.WithFields(logrus.Fields{"conn": connID, "reason": reason}).Warn("rpc connection rejected")
}
