package utils

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const timestampFormat = "2006-01-02 15:04:05"

// logger はパッケージ全体で共有されるロガーです
var logger = newLogger(os.Stdout, logrus.InfoLevel, "text")

func newLogger(out io.Writer, level logrus.Level, format string) *logrus.Logger {
	l := logrus.New()
	l.Out = out
	l.Level = level
	if format == "json" {
		l.Formatter = &logrus.JSONFormatter{TimestampFormat: timestampFormat}
	} else {
		l.Formatter = &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: timestampFormat}
	}
	return l
}

// InitLogger はログレベルと出力形式 (text / json) を設定します
func InitLogger(level, format string) error {
	lv, err := logrus.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "ログレベルが不正です: %s", level)
	}
	if format != "text" && format != "json" {
		return errors.Errorf("ログ形式が不正です: %s", format)
	}
	logger = newLogger(os.Stdout, lv, format)
	return nil
}

// SetOutput はログの出力先を差し替えます (テスト用)
func SetOutput(out io.Writer) {
	logger.Out = out
}

// LogDebug はデバッグレベルのメッセージをログに記録します
func LogDebug(format string, v ...interface{}) {
	logger.Debugf(format, v...)
}

// LogInfo は情報レベルのメッセージをログに記録します
func LogInfo(format string, v ...interface{}) {
	logger.Infof(format, v...)
}

// LogWarn は警告レベルのメッセージをログに記録します
func LogWarn(format string, v ...interface{}) {
	logger.Warnf(format, v...)
}

// LogError はエラーレベルのメッセージをログに記録します
func LogError(format string, v ...interface{}) {
	logger.Errorf(format, v...)
}

// TrackTime は関数の実行時間を計測して出力するユーティリティです
func TrackTime(start time.Time, name string) {
	logger.WithField("elapsed", time.Since(start).String()).Infof("%s 完了", name)
}
