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

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/wetrycode/ripext"
	"github.com/wetrycode/ripext/api"
	"github.com/wetrycode/ripext/metric"
	"github.com/wetrycode/ripext/rdb"
)

func newServeCmd() *cobra.Command {
	var addr string
	var tick time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an extension driven through its http api, with metric exporters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, addr, tick)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "0.0.0.0:12138", "api listen address")
	cmd.Flags().DurationVar(&tick, "tick", 15*time.Millisecond, "host tick period")
	return cmd
}

// newStatistic redis backed counters when redis is configured
func newStatistic() ripext.StatisticInterface {
	config := rdb.NewRedisConfigFromSettings()
	if config.RedisAddr == "" {
		return ripext.NewDefaultStatistic()
	}
	client, err := rdb.NewRdbClient(config)
	if err != nil {
		logger.Warnf("redis %s unavailable, counting in process: %s", config.RedisAddr, err.Error())
		return ripext.NewDefaultStatistic()
	}
	return rdb.NewRedisStatistic(client)
}

func serve(ctx context.Context, addr string, tick time.Duration) error {
	statistic := newStatistic()
	extension := ripext.NewExtension(ripext.ExtensionWithStatistic(statistic), ripext.ExtensionWithContext(ctx))
	defer extension.Close()

	if ripext.Config.GetString(metric.ServerKey) != "" {
		collector := metric.NewCollectorFromSettings(statistic)
		defer collector.Close()
		go collector.Start(ctx)
	}

	errs := make(chan error, 1)
	go func() {
		errs <- api.NewAPI(extension).Server(ctx, addr)
	}()
	logger.Infof("api listening on %s", addr)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			extension.OnGameFrame()
		case err := <-errs:
			return err
		case <-ctx.Done():
			return nil
		}
	}
}
