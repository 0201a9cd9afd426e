package agent

import (
	"sync"
	"time"

	"github.com/formforge/ruleengine/audit"
	"github.com/formforge/ruleengine/cache"
	"github.com/formforge/ruleengine/config"
	"github.com/formforge/ruleengine/delivery"
	"github.com/formforge/ruleengine/engine"
	"github.com/formforge/ruleengine/logger"
	"github.com/formforge/ruleengine/persistence"
	"github.com/formforge/ruleengine/persistence/inmem"
	"github.com/formforge/ruleengine/persistence/redis"
	"github.com/formforge/ruleengine/pipeline"
	"github.com/formforge/ruleengine/rest"
	"github.com/formforge/ruleengine/util"
)

type Agent struct {
	Config          config.Config
	storage         persistence.Storage
	queue           persistence.DeliveryQueue
	collector       audit.Collector
	ruleEngine      *engine.RuleEngine
	pipelineService *pipeline.Service
	slaScanWorker   *util.TickWorker
	deliveryWorker  *delivery.Worker
	httpServer      *rest.Server
	shutdown        bool
	shutdowns       chan struct{}
	shutdownLock    sync.Mutex
	wg              sync.WaitGroup
}

func New(config config.Config) (*Agent, error) {
	a := &Agent{
		Config:    config,
		shutdowns: make(chan struct{}),
	}
	setup := []func() error{
		a.setupStorage,
		a.setupQueue,
		a.setupCollector,
		a.setupRuleEngine,
		a.setupPipelineService,
		a.setupDeliveryWorker,
		a.setupSlaScanner,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupStorage() error {
	switch a.Config.StorageType {
	case config.STORAGE_TYPE_REDIS:
		a.storage = redis.NewRedisStorage(redis.Config{
			Addrs:     a.Config.RedisConfig.Addrs,
			Namespace: a.Config.RedisConfig.Namespace,
		})
	default:
		a.storage = inmem.NewStorage()
	}
	return nil
}

func (a *Agent) setupQueue() error {
	switch a.Config.QueueType {
	case config.QUEUE_TYPE_REDIS:
		a.queue = redis.NewRedisDeliveryQueue(redis.Config{
			Addrs:     a.Config.RedisQueueConfig.Addrs,
			Namespace: a.Config.RedisQueueConfig.Namespace,
		})
	default:
		a.queue = inmem.NewQueue()
	}
	return nil
}

func (a *Agent) setupCollector() error {
	if a.Config.AuditLogFile == "" {
		a.collector = audit.NopCollector{}
		return nil
	}
	collector, err := audit.NewLogFileCollector(a.Config.AuditLogFile)
	if err != nil {
		return err
	}
	a.collector = collector
	return nil
}

func (a *Agent) setupRuleEngine() error {
	ruleCache := cache.NewRuleCache(time.Duration(a.Config.RuleCacheTTLSeconds) * time.Second)
	a.ruleEngine = engine.NewRuleEngine(a.storage, a.queue, ruleCache, a.collector)
	return nil
}

func (a *Agent) setupPipelineService() error {
	a.pipelineService = pipeline.NewService(a.storage, a.queue)
	return nil
}

func (a *Agent) setupDeliveryWorker() error {
	conf := delivery.DefaultConfig()
	if a.Config.DeliveryBatchSize > 0 {
		conf.BatchSize = a.Config.DeliveryBatchSize
	}
	if a.Config.DeliveryCapacity > 0 {
		conf.Capacity = a.Config.DeliveryCapacity
	}
	if a.Config.DeliveryPollIntervalMillis > 0 {
		conf.PollIntervalMillis = a.Config.DeliveryPollIntervalMillis
	}
	if a.Config.DeliveryMaxRetries > 0 {
		conf.MaxRetries = uint64(a.Config.DeliveryMaxRetries)
	}
	a.deliveryWorker = delivery.NewWorker(conf, a.queue, a.collector, &a.wg)
	return nil
}

func (a *Agent) setupSlaScanner() error {
	scanner := pipeline.NewSlaScanner(a.storage, a.queue)
	a.slaScanWorker = util.NewTickWorker("sla-scanner", a.Config.SlaScanIntervalSeconds, scanner.Scan, &a.wg)
	return nil
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.ruleEngine, a.pipelineService, a.storage)
	if err != nil {
		return err
	}
	return nil
}

func (a *Agent) Start() error {
	a.deliveryWorker.Start()
	a.slaScanWorker.Start()
	go func() {
		if err := a.httpServer.Start(); err != nil {
			_ = a.Shutdown()
			panic(err)
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down server")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true
	close(a.shutdowns)

	shutdown := []func() error{
		a.httpServer.Stop,
		func() error {
			a.slaScanWorker.Stop()
			return nil
		},
		a.deliveryWorker.Stop,
	}
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}
	logger.Info("waiting for all services to shutdown...")
	a.wg.Wait()
	return nil
}
