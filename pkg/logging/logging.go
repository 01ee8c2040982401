// Package logging builds the process logger and lets the terminal UI
// receive log lines.
package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// TimestampFormat is used by every text formatter this package creates.
const TimestampFormat = "2006-01-02 15:04:05"

// New returns a logger writing to out at the named level. "off" and "none"
// discard everything; an unknown level falls back to info.
func New(level string, out io.Writer) *logrus.Logger {
	logger := logrus.New()

	switch strings.ToLower(strings.TrimSpace(level)) {
	case "off", "none":
		logger.SetOutput(io.Discard)
	default:
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			lvl = logrus.InfoLevel
		}
		logger.SetLevel(lvl)
		logger.SetOutput(out)
	}

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: TimestampFormat,
	})
	return logger
}

// ChannelHook forwards formatted entries to a buffered channel. When the
// channel is full the entry is dropped; logging never blocks the control loop.
type ChannelHook struct {
	ch        chan string
	levels    []logrus.Level
	formatter logrus.Formatter
}

// NewChannelHook returns a hook with room for size pending lines, firing at
// level and above.
func NewChannelHook(size int, level logrus.Level) *ChannelHook {
	var levels []logrus.Level
	for _, l := range logrus.AllLevels {
		if l <= level {
			levels = append(levels, l)
		}
	}
	return &ChannelHook{
		ch:     make(chan string, size),
		levels: levels,
		formatter: &logrus.TextFormatter{
			DisableTimestamp: true,
			DisableColors:    true,
		},
	}
}

// Lines returns the receive side of the hook.
func (h *ChannelHook) Lines() <-chan string { return h.ch }

func (h *ChannelHook) Levels() []logrus.Level { return h.levels }

func (h *ChannelHook) Fire(e *logrus.Entry) error {
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	select {
	case h.ch <- strings.TrimRight(string(b), "\n"):
	default:
	}
	return nil
}
