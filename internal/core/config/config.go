package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const DefaultPath = "./configs/config.local.yaml"

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
	CORSOrigins     []string `mapstructure:"corsOrigins"` // 为空则放行所有来源
}

type App struct {
	Name string
	Env  string // local / staging / production
	HTTP HTTP
}

type Rotate struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level  string
	JSON   bool
	Rotate Rotate
}

type Mongo struct {
	URI         string
	Database    string
	TimeoutSec  int
	MaxPoolSize uint64
}

type DB struct {
	Driver string // mongo / postgres / mysql / memory
	Mongo  Mongo

	// postgres / mysql
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type Firebase struct {
	ProjectID string `mapstructure:"projectId"`
	CertsURL  string `mapstructure:"certsUrl"`
}

type LocalAuth struct {
	Secret string
	Issuer string
	TTLMin int `mapstructure:"ttlMin"`
}

type Auth struct {
	Provider string // firebase / local
	Firebase Firebase
	Local    LocalAuth
}

type Limits struct {
	RPS         float64 `mapstructure:"rps"`
	Burst       int
	PerIP       bool `mapstructure:"perIp"`
	Concurrency int64
	MaxBodyMB   int64 `mapstructure:"maxBodyMb"`
	TimeoutSec  int
}

type Upload struct {
	MaxFiles  int
	MaxFileMB int64 `mapstructure:"maxFileMb"`
}

type Config struct {
	App    App
	Log    Log
	DB     DB
	Auth   Auth
	Limits Limits
	Upload Upload
}

func (c *Config) IsProduction() bool { return strings.EqualFold(c.App.Env, "production") }

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "greenhome")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 5000)
	v.SetDefault("app.http.readTimeoutSec", 15)
	v.SetDefault("app.http.writeTimeoutSec", 30)
	v.SetDefault("app.http.idleTimeoutSec", 60)
	v.SetDefault("app.http.corsOrigins", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.rotate.enable", false)
	v.SetDefault("log.rotate.filename", "logs/greenhome.log")
	v.SetDefault("log.rotate.maxSizeMB", 100)
	v.SetDefault("log.rotate.maxBackups", 7)
	v.SetDefault("log.rotate.maxAgeDays", 30)
	v.SetDefault("log.rotate.compress", true)

	v.SetDefault("db.driver", "mongo")
	v.SetDefault("db.mongo.uri", "mongodb://127.0.0.1:27017")
	v.SetDefault("db.mongo.database", "GreenHome")
	v.SetDefault("db.mongo.timeoutSec", 10)
	v.SetDefault("db.mongo.maxPoolSize", 100)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.username", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.maxOpenConns", 50)
	v.SetDefault("db.maxIdleConns", 10)
	v.SetDefault("db.connMaxLifetimeMin", 30)
	v.SetDefault("db.autoMigrate", true)
	v.SetDefault("db.logLevel", "warn")

	v.SetDefault("auth.provider", "firebase")
	v.SetDefault("auth.firebase.projectId", "")
	v.SetDefault("auth.firebase.certsUrl", "")
	v.SetDefault("auth.local.secret", "")
	v.SetDefault("auth.local.issuer", "greenhome")
	v.SetDefault("auth.local.ttlMin", 60)

	v.SetDefault("limits.rps", 200)
	v.SetDefault("limits.burst", 400)
	v.SetDefault("limits.perIp", false)
	v.SetDefault("limits.concurrency", 300)
	v.SetDefault("limits.maxBodyMb", 16)
	v.SetDefault("limits.timeoutSec", 10)

	v.SetDefault("upload.maxFiles", 10)
	v.SetDefault("upload.maxFileMb", 5)
}

// Load 读取 yaml 配置，APP_ 前缀环境变量可覆盖任意键（db.mongo.uri → APP_DB_MONGO_URI）。
// path 为空时依次尝试 CONFIG_PATH 与默认路径；默认路径不存在时只用默认值 + 环境变量。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	explicit := path != ""
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultPath
	}

	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.App.HTTP.Port <= 0 || c.App.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("app.http.port out of range: %d", c.App.HTTP.Port))
	}
	switch c.DB.Driver {
	case "mongo":
		if c.DB.Mongo.URI == "" || c.DB.Mongo.Database == "" {
			errs = append(errs, errors.New("db.mongo.uri and db.mongo.database are required"))
		}
	case "postgres", "mysql":
		if c.DB.DSN == "" {
			errs = append(errs, errors.New("db.dsn is required for sql drivers"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unsupported db.driver %q", c.DB.Driver))
	}
	switch c.Auth.Provider {
	case "firebase":
		if c.Auth.Firebase.ProjectID == "" {
			errs = append(errs, errors.New("auth.firebase.projectId is required"))
		}
	case "local":
		if len(c.Auth.Local.Secret) < 16 {
			errs = append(errs, errors.New("auth.local.secret must be at least 16 bytes"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported auth.provider %q", c.Auth.Provider))
	}
	if c.Upload.MaxFiles <= 0 {
		errs = append(errs, errors.New("upload.maxFiles must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
