package utils

import (
	"fmt"
	"log"
	"meetgate/internal/dataType"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogxManager struct {
	basePath string
	loggers  map[string]*zap.Logger
	mu       sync.RWMutex
}

func NewManager(base string) *LogxManager {
	m := &LogxManager{basePath: base, loggers: make(map[string]*zap.Logger)}

	if err := os.MkdirAll(m.basePath, 0744); err != nil {
		log.Printf("failed to create base log dir %s: %v", m.basePath, err)
	}
	return m
}

// getLogger returns the logger for one meeting id, creating its log
// directory on first use. Unknown meeting ids land in "_gate".
func (m *LogxManager) getLogger(meetingID string) *zap.Logger {
	if meetingID == "" {
		meetingID = "_gate"
	}
	m.mu.RLock()
	if lg, ok := m.loggers[meetingID]; ok {
		m.mu.RUnlock()
		return lg
	}
	m.mu.RUnlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	if lg, ok := m.loggers[meetingID]; ok {
		return lg
	}
	dir := filepath.Join(m.basePath, meetingID)
	if err := os.MkdirAll(dir, 0744); err != nil {
		log.Printf("failed to create log dir %s: %v", dir, err)
	}

	encCfg := zapcore.EncoderConfig{MessageKey: "msg", LineEnding: zapcore.DefaultLineEnding}
	encoder := zapcore.NewConsoleEncoder(encCfg)

	infoOut := zapcore.AddSync(m.openLogFile(filepath.Join(dir, "info.log")))
	errorOut := zapcore.AddSync(m.openLogFile(filepath.Join(dir, "error.log")))
	dbgOut := zapcore.AddSync(m.openLogFile(filepath.Join(dir, "debug.log")))

	infoLv := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l == zapcore.InfoLevel })
	errLv := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= zapcore.ErrorLevel })
	dbgLv := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l == zapcore.DebugLevel })

	tee := zapcore.NewTee(
		zapcore.NewCore(encoder, infoOut, infoLv),
		zapcore.NewCore(encoder, errorOut, errLv),
		zapcore.NewCore(encoder, dbgOut, dbgLv),
	)
	lg := zap.New(tee)
	m.loggers[meetingID] = lg
	return lg
}

func (m *LogxManager) openLogFile(path string) *os.File {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file %s: %v", path, err)
		return os.Stdout
	}
	return f
}

func (m *LogxManager) format(reqData dataType.JoinRequest, msg, caller string) string {
	return fmt.Sprintf("%s - - [%s] %s meeting=%s session=%s %s %s %s",
		reqData.RemoteIP,
		time.Now().Format("02/Jan/2006:15:04:05 -0700"),
		msg,
		reqData.MeetingID,
		reqData.SessionID,
		reqData.Uri,
		reqData.UserAgent,
		caller,
	)
}

func (m *LogxManager) LogInfo(reqData dataType.JoinRequest, msg, caller string) {
	m.getLogger(reqData.MeetingID).Info(m.format(reqData, msg, caller))
}

func (m *LogxManager) LogError(reqData dataType.JoinRequest, msg, caller string) {
	m.getLogger(reqData.MeetingID).Error(m.format(reqData, msg, caller))
}

func (m *LogxManager) LogDebug(reqData dataType.JoinRequest, msg, caller string) {
	m.getLogger(reqData.MeetingID).Debug(m.format(reqData, msg, caller))
}

var (
	defaultManager *LogxManager
	defaultOnce    sync.Once
)

// InitLogx sets the package-level manager used by the LogInfo/LogError
// helpers. Safe to call once at startup; later calls are ignored.
func InitLogx(base string) {
	defaultOnce.Do(func() {
		defaultManager = NewManager(base)
	})
}

func LogInfo(reqData dataType.JoinRequest, msg, caller string) {
	if defaultManager == nil {
		log.Printf("INFO %s %s", msg, caller)
		return
	}
	defaultManager.LogInfo(reqData, msg, caller)
}

func LogError(reqData dataType.JoinRequest, msg, caller string) {
	if defaultManager == nil {
		log.Printf("ERROR %s %s", msg, caller)
		return
	}
	defaultManager.LogError(reqData, msg, caller)
}

func LogDebug(reqData dataType.JoinRequest, msg, caller string) {
	if defaultManager == nil {
		return
	}
	defaultManager.LogDebug(reqData, msg, caller)
}
