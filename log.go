package main

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/shiena/ansicolor"
)

var log = logrus.New()

// InitLog 初始化日志
func InitLog() {
	log = newLogger(conf, logLevel)
}

func newLogger(c *Conf, level string) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&nested.Formatter{
		HideKeys:        true,
		ShowFullLevel:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	// then wrap the log output with it
	logIO := make([]io.Writer, 0)
	if c.Output.LogDir != "" {
		os.MkdirAll(c.Output.LogDir, os.ModePerm)
		logIO = append(logIO, &lumberjack.Logger{
			Filename:   filepath.Join(c.Output.LogDir, time.Now().Format("2006-01-02.log")),
			MaxSize:    c.Output.LogMaxSize,
			MaxBackups: 7,
		})
	}
	if c.Output.OutputTerminal {
		logIO = append(logIO, os.Stdout)
	}

	// 融合日志输出
	l.SetOutput(ansicolor.NewAnsiColorWriter(io.MultiWriter(logIO...)))

	lv, err := logrus.ParseLevel(level)
	if err != nil {
		l.SetLevel(logrus.InfoLevel)
	} else {
		l.SetLevel(lv)
	}
	return l
}
