package ripext

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var logger *logrus.Logger = logrus.New()
var ProcessId string = uuid.New().String()

// DefaultFieldHook adds the host name to every entry
type DefaultFieldHook struct {
}

func (hook *DefaultFieldHook) Fire(entry *logrus.Entry) error {
	name, _ := os.Hostname()
	entry.Data["hostname"] = name
	return nil
}

func (hook *DefaultFieldHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// GetLogger returns a logger entry tagged with the module name
func GetLogger(Name string) *logrus.Entry {
	log := logger.WithFields(logrus.Fields{
		"logName": Name,
	})
	return log
}

// parseLogLevel resolves the configured level, empty means info
func parseLogLevel(logLevel string) (logrus.Level, error) {
	logLevel = strings.TrimSpace(logLevel)
	if logLevel == "" {
		logLevel = "info"
	}
	return logrus.ParseLevel(logLevel)
}

func initLog() {
	logger.SetOutput(os.Stdout)
	_, ex := os.LookupEnv("UNITTEST")
	logLevel := Config.GetString("log.level")
	if ex {
		logLevel = "error"
	}
	level, err := parseLogLevel(logLevel)
	if err != nil {
		panic(fmt.Errorf("fatal error parse level: %s", err))
	}
	logger.SetFormatter(&logrus.TextFormatter{
		ForceQuote:      true,
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	})
	logger.SetLevel(level)
	logger.Hooks.Add(&DefaultFieldHook{})
}
