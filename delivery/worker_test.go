package delivery

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/formforge/ruleengine/model"
	"github.com/formforge/ruleengine/persistence/inmem"
	"github.com/stretchr/testify/require"
)

type recordingCollector struct {
	mu         sync.Mutex
	deliveries []bool
	reasons    []string
}

func (rc *recordingCollector) RecordEvaluation(string, string, string, bool, string) {}

func (rc *recordingCollector) RecordDelivery(id string, dtype string, target string, success bool, reason string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.deliveries = append(rc.deliveries, success)
	rc.reasons = append(rc.reasons, reason)
}

func testWorker(t *testing.T, collector *recordingCollector) *Worker {
	t.Helper()
	conf := DefaultConfig()
	conf.InitialRetryBackoff = time.Millisecond
	var wg sync.WaitGroup
	return NewWorker(conf, inmem.NewQueue(), collector, &wg)
}

func webhookDescriptor(url string) model.Descriptor {
	return model.Descriptor{
		Id:             "d-1",
		Type:           model.DESCRIPTOR_TYPE_WEBHOOK,
		IdempotencyKey: "idem-1",
		Url:            url,
		Payload:        map[string]any{"hello": "world"},
	}
}

func TestDeliverWebhook(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Idempotency-Key")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	collector := &recordingCollector{}
	w := testWorker(t, collector)
	err := w.handle(webhookDescriptor(server.URL))
	require.NoError(t, err)
	require.Equal(t, "idem-1", gotKey)
	require.Equal(t, []bool{true}, collector.deliveries)
}

func TestDeliverWebhookRetriesThenSucceeds(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	collector := &recordingCollector{}
	w := testWorker(t, collector)
	err := w.handle(webhookDescriptor(server.URL))
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
	require.Equal(t, []bool{true}, collector.deliveries)
}

func TestDeliverWebhookDropsAfterMaxRetries(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	collector := &recordingCollector{}
	w := testWorker(t, collector)
	err := w.handle(webhookDescriptor(server.URL))
	require.Error(t, err)
	// initial attempt plus MaxRetries retries
	require.Equal(t, int(DefaultConfig().MaxRetries)+1, attempts)
	require.Equal(t, []bool{false}, collector.deliveries)
	require.NotEmpty(t, collector.reasons[0])
}

func TestDeliverNotification(t *testing.T) {
	collector := &recordingCollector{}
	w := testWorker(t, collector)
	err := w.handle(model.Descriptor{
		Id:        "n-1",
		Type:      model.DESCRIPTOR_TYPE_NOTIFICATION,
		Recipient: "ops@example.com",
		Subject:   "SLA breached",
	})
	require.NoError(t, err)
	require.Equal(t, []bool{true}, collector.deliveries)
}

func TestUnknownDescriptorType(t *testing.T) {
	w := testWorker(t, &recordingCollector{})
	err := w.handle(model.Descriptor{Id: "x", Type: "carrier_pigeon"})
	require.Error(t, err)
}
