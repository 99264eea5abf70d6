// Package cacheopts provides answer cache configuration options.
package cacheopts

import (
	"fmt"
	"time"

	"github.com/kart-io/librarian/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options 回答缓存配置。
type Options struct {
	// Enabled 是否启用缓存。核心流水线本身无状态，缓存是可选扩展，默认关闭。
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// TTL 缓存过期时间。
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`

	// KeyPrefix 缓存键前缀。
	KeyPrefix string `json:"key-prefix" mapstructure:"key-prefix"`

	// Redis Redis 连接配置。
	Redis *RedisOptions `json:"redis" mapstructure:"redis"`
}

// RedisOptions Redis 配置。
type RedisOptions struct {
	// Host Redis 主机地址。
	Host string `json:"host" mapstructure:"host"`

	// Port Redis 端口。
	Port int `json:"port" mapstructure:"port"`

	// Password Redis 密码。
	Password string `json:"password" mapstructure:"password"`

	// Database Redis 数据库编号。
	Database int `json:"database" mapstructure:"database"`

	// MaxRetries 最大重试次数。
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`

	// PoolSize 连接池大小。
	PoolSize int `json:"pool-size" mapstructure:"pool-size"`

	// MinIdleConns 最小空闲连接数。
	MinIdleConns int `json:"min-idle-conns" mapstructure:"min-idle-conns"`
}

// NewOptions 创建默认缓存配置。
func NewOptions() *Options {
	return &Options{
		Enabled:   false,
		TTL:       1 * time.Hour,
		KeyPrefix: "librarian:ask:",
		Redis:     NewRedisOptions(),
	}
}

// NewRedisOptions 创建默认 Redis 配置。
func NewRedisOptions() *RedisOptions {
	return &RedisOptions{
		Host:         "localhost",
		Port:         6379,
		Password:     "",
		Database:     0,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 5,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, options.Join(prefixes...)+"cache.enabled", o.Enabled, "Enable answer result cache.")
	fs.DurationVar(&o.TTL, options.Join(prefixes...)+"cache.ttl", o.TTL, "Cache TTL duration.")
	fs.StringVar(&o.KeyPrefix, options.Join(prefixes...)+"cache.key-prefix", o.KeyPrefix, "Cache key prefix.")
	fs.StringVar(&o.Redis.Host, options.Join(prefixes...)+"cache.redis.host", o.Redis.Host, "Redis host.")
	fs.IntVar(&o.Redis.Port, options.Join(prefixes...)+"cache.redis.port", o.Redis.Port, "Redis port.")
	fs.StringVar(&o.Redis.Password, options.Join(prefixes...)+"cache.redis.password", o.Redis.Password, "Redis password.")
	fs.IntVar(&o.Redis.Database, options.Join(prefixes...)+"cache.redis.database", o.Redis.Database, "Redis database number.")
	fs.IntVar(&o.Redis.MaxRetries, options.Join(prefixes...)+"cache.redis.max-retries", o.Redis.MaxRetries, "Redis max retries.")
	fs.IntVar(&o.Redis.PoolSize, options.Join(prefixes...)+"cache.redis.pool-size", o.Redis.PoolSize, "Redis connection pool size.")
	fs.IntVar(&o.Redis.MinIdleConns, options.Join(prefixes...)+"cache.redis.min-idle-conns", o.Redis.MinIdleConns, "Redis minimum idle connections.")
}

// Complete completes the cache options with defaults.
func (o *Options) Complete() error {
	if o.KeyPrefix == "" {
		o.KeyPrefix = "librarian:ask:"
	}
	return nil
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	var errs []error
	if o.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must be positive"))
	}
	if o.Redis == nil {
		errs = append(errs, fmt.Errorf("cache.redis is required when cache is enabled"))
	} else if o.Redis.Host == "" {
		errs = append(errs, fmt.Errorf("cache.redis.host is required"))
	}
	return errs
}
