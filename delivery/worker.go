// Package delivery drains the descriptor queue and performs the external
// effects the engine only enqueues: webhook POSTs and notification dispatch.
// Webhooks are retried with exponential backoff and carry an idempotency key
// so receivers can deduplicate, giving at-least-once semantics end to end.
package delivery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/formforge/ruleengine/audit"
	"github.com/formforge/ruleengine/logger"
	"github.com/formforge/ruleengine/model"
	"github.com/formforge/ruleengine/persistence"
	"github.com/formforge/ruleengine/util"
	"go.uber.org/zap"
)

type Config struct {
	BatchSize           int
	Capacity            int
	PollIntervalMillis  int
	MaxRetries          uint64
	InitialRetryBackoff time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchSize:           16,
		Capacity:            64,
		PollIntervalMillis:  500,
		MaxRetries:          3,
		InitialRetryBackoff: 500 * time.Millisecond,
	}
}

type Worker struct {
	conf       Config
	queue      persistence.DeliveryQueue
	collector  audit.Collector
	httpClient *http.Client
	worker     *util.Worker
	stop       chan struct{}
	wg         *sync.WaitGroup
}

func NewWorker(conf Config, queue persistence.DeliveryQueue, collector audit.Collector, wg *sync.WaitGroup) *Worker {
	if collector == nil {
		collector = audit.NopCollector{}
	}
	w := &Worker{
		conf:       conf,
		queue:      queue,
		collector:  collector,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		stop:       make(chan struct{}),
		wg:         wg,
	}
	w.worker = util.NewWorker("delivery", wg, w.handle, conf.Capacity)
	return w
}

func (w *Worker) Start() {
	w.worker.Start()
	ticker := time.NewTicker(time.Duration(w.conf.PollIntervalMillis) * time.Millisecond)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ticker.C:
				w.poll()
			case <-w.stop:
				logger.Info("stopping delivery poller")
				ticker.Stop()
				return
			}
		}
	}()
}

func (w *Worker) Stop() error {
	w.stop <- struct{}{}
	w.worker.Stop()
	return nil
}

func (w *Worker) poll() {
	descriptors, err := w.queue.Pop(w.conf.BatchSize)
	if err != nil {
		logger.Error("error polling delivery queue", zap.Error(err))
		return
	}
	for _, d := range descriptors {
		w.worker.Sender() <- d
	}
}

func (w *Worker) handle(task util.Task) error {
	d, ok := task.(model.Descriptor)
	if !ok {
		return fmt.Errorf("unexpected task type %T", task)
	}
	switch d.Type {
	case model.DESCRIPTOR_TYPE_WEBHOOK:
		return w.deliverWebhook(d)
	case model.DESCRIPTOR_TYPE_NOTIFICATION:
		return w.deliverNotification(d)
	default:
		return fmt.Errorf("unknown descriptor type %q", d.Type)
	}
}

func (w *Worker) deliverWebhook(d model.Descriptor) error {
	body, err := json.Marshal(d.Payload)
	if err != nil {
		w.collector.RecordDelivery(d.Id, string(d.Type), d.Url, false, err.Error())
		return err
	}
	operation := func() error {
		req, err := http.NewRequest(http.MethodPost, d.Url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Idempotency-Key", d.IdempotencyKey)
		resp, err := w.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("webhook %s returned status %d", d.Url, resp.StatusCode)
		}
		return nil
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = w.conf.InitialRetryBackoff
	err = backoff.Retry(operation, backoff.WithMaxRetries(policy, w.conf.MaxRetries))
	if err != nil {
		logger.Error("webhook delivery failed, dropping", zap.String("url", d.Url), zap.Error(err))
		w.collector.RecordDelivery(d.Id, string(d.Type), d.Url, false, err.Error())
		return err
	}
	w.collector.RecordDelivery(d.Id, string(d.Type), d.Url, true, "")
	return nil
}

// deliverNotification records the dispatch; the actual email/SMS transport
// lives outside this service.
func (w *Worker) deliverNotification(d model.Descriptor) error {
	logger.Info("notification dispatched",
		zap.String("recipient", d.Recipient),
		zap.String("subject", d.Subject),
		zap.String("source", d.Source))
	w.collector.RecordDelivery(d.Id, string(d.Type), d.Recipient, true, "")
	return nil
}
