package recipe

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"recipe-normalizer/internal/pkg/common"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NormalizeLogger 單次正規化執行的專屬檔案日誌
// 每次執行寫一個帶時間戳的獨立檔案，方便逐批追查解析與跳過記錄
// 為 nil 時所有方法退回全域日誌
type NormalizeLogger struct {
	logger *zap.Logger
	file   *os.File
	path   string
	start  time.Time
}

// NewNormalizeLogger 在 dir 下開啟新的執行日誌
func NewNormalizeLogger(dir string) (*NormalizeLogger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("normalization_%s.log", time.Now().Format("20060102_150405")))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(file),
		zapcore.DebugLevel,
	)

	return &NormalizeLogger{
		logger: zap.New(core),
		file:   file,
		path:   path,
		start:  time.Now(),
	}, nil
}

// Path 日誌檔路徑
func (l *NormalizeLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Info 記錄一般事件
func (l *NormalizeLogger) Info(msg string, fields ...zap.Field) {
	if l == nil {
		common.LogInfo(msg, fields...)
		return
	}
	l.logger.Info(msg, fields...)
}

// Warn 記錄警告（行級解析失敗等）
func (l *NormalizeLogger) Warn(msg string, fields ...zap.Field) {
	if l == nil {
		common.LogWarn(msg, fields...)
		return
	}
	l.logger.Warn(msg, fields...)
}

// Critical 記錄合約違反（快取缺失跳過）
// 非致命，但要醒目
func (l *NormalizeLogger) Critical(msg string, fields ...zap.Field) {
	common.LogError(msg, fields...)
	if l != nil {
		l.logger.Error(msg, fields...)
	}
}

// Summary 記錄批次統計
func (l *NormalizeLogger) Summary(processed, succeeded, skipped, failed int) {
	fields := []zap.Field{
		zap.Int("processed", processed),
		zap.Int("succeeded", succeeded),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(l.startTime())),
	}
	l.Info("批次正規化統計", fields...)
}

func (l *NormalizeLogger) startTime() time.Time {
	if l == nil {
		return time.Now()
	}
	return l.start
}

// Close 刷新並關閉日誌檔
func (l *NormalizeLogger) Close() error {
	if l == nil {
		return nil
	}
	_ = l.logger.Sync()
	return l.file.Close()
}
