package ripext

import (
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Settings read only access to the runtime configuration
type Settings interface {
	// GetValue 获取指定的参数值
	GetValue(key string) (interface{}, error)
}

// Configuration runtime settings loaded from settings.yaml
type Configuration struct {
	*viper.Viper
}

const (
	// DataDirKey root directory the trust bundle path is resolved against
	DataDirKey string = "ripext.data_dir"
	// CABundleKey trust bundle path relative to the data directory
	CABundleKey string = "ripext.ca_bundle"
	// WorkersKey maximum number of transfers running at the same time
	WorkersKey string = "ripext.workers"
	// PendingKey capacity of the submitted task buffer
	PendingKey string = "ripext.pending"
	// MaxBodySizeKey response body limit in bytes, 0 means unlimited
	MaxBodySizeKey string = "ripext.max_body_size"
	// UserAgentKey user agent sent with every request
	UserAgentKey string = "ripext.user_agent"
	// LogLevelKey logrus level name
	LogLevelKey string = "log.level"
)

var onceConfig sync.Once
var Config *Configuration = nil

func newConfiguration() *Configuration {
	c := &Configuration{viper.New()}
	c.SetDefault(DataDirKey, ".")
	c.SetDefault(CABundleKey, DefaultCABundlePath)
	c.SetDefault(WorkersKey, 16)
	c.SetDefault(PendingKey, 1024)
	c.SetDefault(MaxBodySizeKey, 0)
	c.SetDefault(UserAgentKey, DefaultUserAgent)
	c.SetDefault(LogLevelKey, "info")
	return c
}

func newRipextConfig() {
	onceConfig.Do(func() {
		Config = newConfiguration()
	})
}

func (c *Configuration) GetValue(key string) (interface{}, error) {
	value := c.Get(key)
	return value, nil
}

func (c *Configuration) load(dir string) bool {
	c.AddConfigPath(dir)
	c.SetConfigName("settings")
	c.SetConfigType("yaml")
	return c.ReadInConfig() == nil
}

// watch reloads the log level whenever settings.yaml changes
func (c *Configuration) watch() {
	c.OnConfigChange(func(e fsnotify.Event) {
		level, err := parseLogLevel(c.GetString(LogLevelKey))
		if err != nil {
			GetLogger("settings").Warnf("ignore log level from %s: %s", e.Name, err.Error())
			return
		}
		logger.SetLevel(level)
	})
	c.WatchConfig()
}

func initSettings() {
	newRipextConfig()
	wd, _ := os.Getwd()
	if Config.load(wd) {
		Config.watch()
	}
}
