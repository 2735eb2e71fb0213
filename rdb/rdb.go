// MIT License

// Copyright (c) 2023 wetrycode

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:

// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package rdb

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wetrycode/ripext"
)

const (
	// AddrKey redis 地址
	AddrKey string = "redis.addr"
	// UsernameKey redis 用户名
	UsernameKey string = "redis.username"
	// PasswordKey redis 密码
	PasswordKey string = "redis.password"
	// DBKey redis 数据库索引
	DBKey string = "redis.db"
)

// RedisConfig redis配置
type RedisConfig struct {
	// RedisAddr redis 地址
	RedisAddr string
	// RedisPasswd redis 密码
	RedisPasswd string
	// RedisUsername redis 用户名
	RedisUsername string
	// RedisDB redis 数据库索引 index
	RedisDB uint32
	// RdbConnectionsSize 连接池大小
	RdbConnectionsSize uint64
	// RdbTimeout redis 超时时间
	RdbTimeout time.Duration
	// RdbMaxRetry redis操作失败后的重试次数
	RdbMaxRetry int
}

// NewRedisConfig redis 配置构造函数
func NewRedisConfig(addr string, username string, passwd string, db uint32) *RedisConfig {
	return &RedisConfig{
		RedisUsername:      username,
		RedisPasswd:        passwd,
		RedisDB:            db,
		RdbConnectionsSize: 32,
		RdbTimeout:         10 * time.Second,
		RdbMaxRetry:        3,
		RedisAddr:          addr,
	}
}

// NewRedisConfigFromSettings reads the redis section of settings.yaml
func NewRedisConfigFromSettings() *RedisConfig {
	return NewRedisConfig(
		ripext.Config.GetString(AddrKey),
		ripext.Config.GetString(UsernameKey),
		ripext.Config.GetString(PasswordKey),
		ripext.Config.GetUint32(DBKey))
}

// NewRdbOptions go-redis options for config
func NewRdbOptions(config *RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPasswd,
		Username: config.RedisUsername,
		DB:       int(config.RedisDB),

		PoolSize:     int(config.RdbConnectionsSize),
		MinIdleConns: 2,

		DialTimeout:  config.RdbTimeout,
		ReadTimeout:  config.RdbTimeout,
		WriteTimeout: config.RdbTimeout,
		PoolTimeout:  config.RdbTimeout,

		ConnMaxIdleTime: 5 * time.Minute,

		MaxRetries:      config.RdbMaxRetry,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	}
}

// NewRdbClient single node client, the server must answer PING
func NewRdbClient(config *RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(NewRdbOptions(config))
	if err := rdb.Ping(context.TODO()).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// NewRdbClusterClient cluster client sharing the single node settings
func NewRdbClusterClient(config *RedisConfig, nodes []string) (*redis.ClusterClient, error) {
	client := redis.NewClusterClient(&redis.ClusterOptions{
		Addrs: nodes,
		NewClient: func(opt *redis.Options) *redis.Client {
			options := NewRdbOptions(config)
			options.Addr = opt.Addr
			return redis.NewClient(options)
		},
		RouteByLatency: true,
		RouteRandomly:  true,
	})
	if err := client.Ping(context.TODO()).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
