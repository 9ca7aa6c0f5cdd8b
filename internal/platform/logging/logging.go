package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/ogurasousui/worklog-review/internal/platform/config"
	"github.com/sirupsen/logrus"
)

// New は設定に従って logrus のロガーを生成します。out が nil の場合は標準エラー出力を使います。
func New(cfg config.LoggingConfig, out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging: parse level %q: %w", cfg.Level, err)
	}

	if out == nil {
		out = os.Stderr
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)

	switch cfg.Format {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "", "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("logging: unsupported format %q", cfg.Format)
	}

	return logger, nil
}

// Nop は出力を破棄するロガーを返します。テストや任意依存の既定値に使います。
func Nop() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(logger)
}
