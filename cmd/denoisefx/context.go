package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"denoisefx/internal/config"
	"denoisefx/internal/filter"
	"denoisefx/internal/logger"
	"denoisefx/internal/metrics"
	"denoisefx/internal/opencv/memory"
	"denoisefx/internal/provider/cudadenoise"
	"denoisefx/internal/provider/nlmeans"
	"denoisefx/internal/registry"
	"denoisefx/internal/shutdown"
	"denoisefx/internal/workerpool"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	logOnce sync.Once
	log     logger.Logger
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && *c.logLevelFlag != "" {
			cfg.Log.Level = *c.logLevelFlag
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() logger.Logger {
	c.logOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.log = logger.NewConsoleLogger(logger.ParseLevel("info"))
			return
		}
		c.log = logger.New(cfg.Log.Format, logger.ParseLevel(cfg.Log.Level))
	})
	return c.log
}

// stack is the set of process-wide components a filter needs.
type stack struct {
	mem      *memory.Manager
	promReg  *prometheus.Registry
	metrics  *metrics.Metrics
	registry *registry.Registry
	pool     *workerpool.Pool
	factory  *filter.Factory
	shutdown *shutdown.Manager
}

// buildStack probes backends and starts the worker pool. Components are
// registered with the shutdown manager in dependency order so they stop in
// reverse.
func (c *commandContext) buildStack(allowPassthrough bool) (*stack, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	log := c.logger()

	s := &stack{
		mem:      memory.NewManager(log),
		promReg:  prometheus.NewRegistry(),
		shutdown: shutdown.NewManager(log),
	}
	s.promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.metrics = metrics.New(s.promReg)

	s.registry = registry.Initialize(registry.Options{
		Alloc:   s.mem,
		Log:     log,
		Metrics: s.metrics,
	}, cudadenoise.Backend(), nlmeans.Backend())

	s.pool = workerpool.New(cfg.Pool.Workers, log)

	s.factory = filter.NewFactory(filter.FactoryOptions{
		Pool:             s.pool,
		Registry:         s.registry,
		Alloc:            s.mem,
		Log:              log,
		Metrics:          s.metrics,
		AllowPassthrough: allowPassthrough,
	})

	s.shutdown.Register("memory", s.mem)
	s.shutdown.Register("registry", registry.Shutdown{})
	s.shutdown.Register("workerpool", s.pool)
	return s, nil
}

// serveMetrics exposes the stack's registry on addr until shutdown.
func (s *stack) serveMetrics(addr string, log logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("metrics", "metrics endpoint listening", map[string]interface{}{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics", err, map[string]interface{}{"message": "metrics endpoint failed", "addr": addr})
		}
	}()

	s.shutdown.Register("metrics", shutdown.Func(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}))
}
