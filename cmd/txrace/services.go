package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/txrace/analysis"
	"github.com/ethpandaops/txrace/cache"
	"github.com/ethpandaops/txrace/clients/execution/rpc"
	"github.com/ethpandaops/txrace/competitor"
	"github.com/ethpandaops/txrace/db"
	"github.com/ethpandaops/txrace/metrics"
	"github.com/ethpandaops/txrace/scanner"
	"github.com/ethpandaops/txrace/simulation"
	"github.com/ethpandaops/txrace/timing"
	"github.com/ethpandaops/txrace/types"
	"github.com/ethpandaops/txrace/utils"
	"github.com/ethpandaops/txrace/valueflow"
)

// services holds everything a command needs, built from the config.
type services struct {
	cfg       *types.Config
	logger    *logrus.Logger
	logWriter *utils.LogWriter

	client   *rpc.ExecutionClient
	store    *db.Store
	cache    *cache.RedisCache
	logFile  *analysis.LogFile
	resolver *competitor.Resolver
	prober   *simulation.Prober

	registry      *prometheus.Registry
	metrics       *metrics.ScanMetrics
	metricsServer *http.Server
}

func loadConfig(cmd *cobra.Command) (*types.Config, *utils.LogWriter, *logrus.Logger, error) {
	loadDotEnv(cmd)

	configPath, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")

	cfg := &types.Config{}
	if err := utils.ReadConfig(cfg, configPath); err != nil {
		return nil, nil, nil, fmt.Errorf("error reading config file: %w", err)
	}
	if debug {
		cfg.Logging.OutputLevel = "debug"
	}

	logWriter, logger := utils.InitLogger(cfg)
	logger.WithFields(logrus.Fields{
		"config":  configPath,
		"version": utils.BuildVersion,
		"release": utils.BuildRelease,
	}).Debug("config loaded")

	return cfg, logWriter, logger, nil
}

func initServices(ctx context.Context, cmd *cobra.Command) (*services, error) {
	cfg, logWriter, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	s := &services{
		cfg:       cfg,
		logger:    logger,
		logWriter: logWriter,
		registry:  prometheus.NewRegistry(),
	}
	s.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	s.metrics = metrics.NewScanMetrics(s.registry)

	if err := s.initExecution(ctx); err != nil {
		s.close()
		return nil, err
	}

	if err := s.initSimulation(); err != nil {
		s.close()
		return nil, err
	}

	s.initStore()
	s.initCache(ctx)
	s.logFile = analysis.NewLogFile(cfg.Analysis.LogFile)

	return s, nil
}

func (s *services) initExecution(ctx context.Context) error {
	execCfg := s.cfg.Execution
	client, err := rpc.NewExecutionClient("node", execCfg.Endpoint, execCfg.Headers, execCfg.Ssh, s.logger.WithField("module", "execution"))
	if err != nil {
		return fmt.Errorf("failed creating execution client: %w", err)
	}
	s.client = client

	dialCtx, cancel := context.WithTimeout(ctx, execCfg.CallTimeout)
	defer cancel()
	if err := client.Initialize(dialCtx); err != nil {
		return fmt.Errorf("failed connecting to %v: %w", execCfg.Endpoint, err)
	}

	versionCtx, cancel := context.WithTimeout(ctx, execCfg.CallTimeout)
	defer cancel()
	if version, err := client.GetClientVersion(versionCtx); err == nil {
		s.logger.WithField("client", client.GetName()).Infof("connected to %v", version)
	}

	syncCtx, cancel := context.WithTimeout(ctx, execCfg.CallTimeout)
	defer cancel()
	syncStatus, err := client.GetNodeSyncing(syncCtx)
	if err != nil {
		s.logger.WithError(err).Warn("failed fetching node sync status")
	} else if syncStatus.IsSyncing {
		s.logger.Warnf("node is syncing (%.2f%%), historical state may be incomplete", syncStatus.Percent())
	}

	return nil
}

func (s *services) initSimulation() error {
	scanCfg := s.cfg.Scan

	policy, err := valueflow.ParseDepthPolicy(scanCfg.DepthPolicy)
	if err != nil {
		return err
	}
	accumulator := valueflow.NewAccumulator(common.HexToAddress(scanCfg.TargetAddress), policy, scanCfg.MaxTraceDepth)

	var backend simulation.Backend
	switch s.cfg.Execution.Backend {
	case "cast":
		backend = simulation.NewCastBackend(s.cfg.Execution.CastPath, s.client.GetEndpoint(), nil)
	default:
		backend = simulation.NewRPCBackend(s.client)
	}

	s.resolver = competitor.NewResolver(s.logger.WithField("module", "competitor"), s.client, s.cfg.Execution.CallTimeout)
	s.prober = simulation.NewProber(simulation.NewRequestBuilder(scanCfg.GasLimit), backend, accumulator, scanCfg.ProbeTimeout)

	s.logger.WithFields(logrus.Fields{
		"backend": s.cfg.Execution.Backend,
		"target":  accumulator.Target().Hex(),
		"policy":  accumulator.Policy().String(),
	}).Debug("simulation initialized")
	return nil
}

// initStore connects the historical log store. Without a store the timing fields stay empty.
func (s *services) initStore() {
	if s.cfg.Database.Engine == "" {
		return
	}

	store, err := db.NewStore(s.logger, &s.cfg.Database)
	if err != nil {
		s.logger.WithError(err).Warn("log store unavailable, timing correlation disabled")
		return
	}
	s.store = store
}

func (s *services) initCache(ctx context.Context) {
	if s.cfg.Redis.Addr == "" {
		return
	}

	redisCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	redisCache, err := cache.InitRedisCache(redisCtx, s.logger, &s.cfg.Redis)
	if err != nil {
		s.logger.WithError(err).Warn("redis unavailable, dashboard publishing disabled")
		return
	}
	s.cache = redisCache
}

func (s *services) startMetrics() error {
	if !s.cfg.Metrics.Enabled {
		return nil
	}

	srv, err := metrics.StartMetricsServer(s.logger.WithField("module", "metrics"), s.registry, s.cfg.Metrics.Host, s.cfg.Metrics.Port)
	if err != nil {
		return fmt.Errorf("error starting metrics server: %w", err)
	}
	s.metricsServer = srv
	return nil
}

func (s *services) newAnalyzer(output io.Writer) *analysis.Analyzer {
	scanCfg := s.cfg.Scan
	scan := scanner.NewScanner(s.logger.WithField("module", "scanner"), s.prober, scanner.Config{
		ProbeRateLimit:       scanCfg.ProbeRateLimit,
		ProbeBurst:           scanCfg.ProbeBurst,
		MaxUnreachableProbes: scanCfg.MaxUnreachableProbes,
	}, s.metrics)

	var logStore timing.LogStore
	if s.store != nil {
		logStore = s.store
	}
	correlator := timing.NewCorrelator(s.logger.WithField("module", "timing"), logStore, timing.Config{
		BatchSize:      s.cfg.Timing.BatchSize,
		BatchTagPrefix: s.cfg.Timing.BatchTagPrefix,
		LookupTimeout:  s.cfg.Timing.LookupTimeout,
	})

	sinks := []analysis.Sink{}
	if output != nil {
		sinks = append(sinks, analysis.NewWriterSink(output))
	}
	if s.logFile != nil {
		sinks = append(sinks, s.logFile)
	}
	if s.cache != nil {
		sinks = append(sinks, analysis.NewDashboardSink(s.cache, s.cfg.Redis.TTL, s.cfg.Redis.RecentLimit))
	}

	return analysis.NewAnalyzer(s.logger.WithField("module", "analysis"), s.resolver, scan, correlator, scanCfg.GasLimit, s.metrics, sinks...)
}

func (s *services) close() {
	if s.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		s.metricsServer.Shutdown(ctx)
		cancel()
	}
	if s.logFile != nil {
		if err := s.logFile.Close(); err != nil {
			s.logger.WithError(err).Warn("failed closing analysis log")
		}
	}
	if s.cache != nil {
		s.cache.Close()
	}
	if s.store != nil {
		s.store.Close()
	}
	if s.client != nil {
		s.client.Close()
	}
	if s.logWriter != nil {
		s.logWriter.Dispose()
	}
}
