// Package analytics forwards product events to a PostHog-compatible
// capture endpoint.
//
// Every emission call is fire-and-forget: it never returns an error, never
// panics, and never blocks the caller beyond a channel send attempt. When
// the backend is unreachable the batch is logged and dropped; there is no
// retry or persistent spool. A configuration flag suppresses all emission
// globally.
package analytics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/weft/pkg/clients"
	"github.com/ajitpratap0/weft/pkg/config"
	"github.com/ajitpratap0/weft/pkg/json"
	"github.com/ajitpratap0/weft/pkg/logger"
	"github.com/ajitpratap0/weft/pkg/metrics"
	"github.com/ajitpratap0/weft/pkg/observability"
)

// Event is a single analytics event queued for emission.
type Event struct {
	Name       string
	DistinctID string
	Properties map[string]interface{}
	Groups     map[string]string
	Timestamp  time.Time
}

// Service queues events and flushes them in batches from a background
// worker. All methods are safe for concurrent use.
type Service struct {
	cfg        config.AnalyticsConfig
	httpClient *clients.HTTPClient
	logger     *zap.Logger

	queue chan Event
	done  chan struct{}
	wg    sync.WaitGroup

	closeOnce sync.Once
}

// NewService creates an analytics service. When analytics is disabled in
// configuration, the returned service accepts calls but emits nothing.
func NewService(cfg config.AnalyticsConfig, httpClient *clients.HTTPClient) *Service {
	s := &Service{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger.Get().With(zap.String("component", "analytics")),
	}

	if !cfg.Enabled {
		s.logger.Info("analytics disabled, events will not be emitted")
		return s
	}

	s.queue = make(chan Event, cfg.QueueSize)
	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.worker()

	return s
}

// TrackEvent queues an event for emission. Never errors; on a full queue
// the event is dropped.
func (s *Service) TrackEvent(name, distinctID string, properties map[string]interface{}, groups map[string]string) {
	if !s.cfg.Enabled {
		return
	}

	event := Event{
		Name:       name,
		DistinctID: distinctID,
		Properties: properties,
		Groups:     groups,
		Timestamp:  time.Now().UTC(),
	}

	select {
	case s.queue <- event:
		metrics.AnalyticsEventsQueued.WithLabelValues(name).Inc()
		metrics.AnalyticsQueueDepth.Set(float64(len(s.queue)))
	default:
		metrics.AnalyticsEventsDropped.WithLabelValues("queue_full").Inc()
		s.logger.Debug("analytics queue full, dropping event", zap.String("event", name))
	}
}

// IdentifyUser sets person properties for the user.
func (s *Service) IdentifyUser(distinctID string, properties map[string]interface{}) {
	s.TrackEvent("$identify", distinctID, map[string]interface{}{
		"$set": properties,
	}, nil)
}

// SetGroupProperties sets properties on a group (e.g. an organization).
func (s *Service) SetGroupProperties(groupType, groupKey string, properties map[string]interface{}) {
	s.TrackEvent("$groupidentify", "weft-group-"+groupKey, map[string]interface{}{
		"$group_type": groupType,
		"$group_key":  groupKey,
		"$group_set":  properties,
	}, nil)
}

// Close flushes buffered events and stops the worker. Safe to call more
// than once. Emission calls after Close silently drop.
func (s *Service) Close() {
	if !s.cfg.Enabled {
		return
	}
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
}

// worker batches queued events and flushes on size or interval.
func (s *Service) worker() {
	defer s.wg.Done()

	batch := make([]Event, 0, s.cfg.BatchSize)
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		s.sendBatch(batch)
		batch = batch[:0]
	}

	for {
		select {
		case event := <-s.queue:
			batch = append(batch, event)
			metrics.AnalyticsQueueDepth.Set(float64(len(s.queue)))
			if len(batch) >= s.cfg.BatchSize {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-s.done:
			// Drain whatever is already queued, then flush and exit.
			for {
				select {
				case event := <-s.queue:
					batch = append(batch, event)
					if len(batch) >= s.cfg.BatchSize {
						flush()
					}
					continue
				default:
				}
				break
			}
			flush()
			return
		}
	}
}

// batchPayload is the PostHog batch capture request body.
type batchPayload struct {
	APIKey string       `json:"api_key"`
	Batch  []batchEntry `json:"batch"`
}

type batchEntry struct {
	Event      string                 `json:"event"`
	Properties map[string]interface{} `json:"properties"`
	Timestamp  string                 `json:"timestamp"`
}

// sendBatch delivers a batch to the capture endpoint. Failures are logged
// and the batch is dropped.
func (s *Service) sendBatch(batch []Event) {
	payload := batchPayload{
		APIKey: s.cfg.APIKey,
		Batch:  make([]batchEntry, 0, len(batch)),
	}

	for _, event := range batch {
		properties := make(map[string]interface{}, len(event.Properties)+2)
		for key, value := range event.Properties {
			properties[key] = value
		}
		properties["distinct_id"] = event.DistinctID
		if len(event.Groups) > 0 {
			properties["$groups"] = event.Groups
		}

		payload.Batch = append(payload.Batch, batchEntry{
			Event:      event.Name,
			Properties: properties,
			Timestamp:  event.Timestamp.Format(time.RFC3339Nano),
		})
	}

	buf := json.GetBuffer()
	defer json.PutBuffer(buf)
	if err := json.MarshalToWriter(buf, payload); err != nil {
		metrics.AnalyticsEventsDropped.WithLabelValues("encode_error").Inc()
		s.logger.Warn("failed to encode analytics batch", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ctx, span := observability.Tracer("weft.analytics").Start(ctx, "analytics.flush_batch")
	span.SetAttributes(attribute.Int("events", len(batch)))
	defer span.End()

	resp, err := s.httpClient.Post(ctx, s.cfg.Host+"/batch", buf, map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		metrics.AnalyticsBatchesSent.WithLabelValues("failure").Inc()
		s.logger.Warn("failed to deliver analytics batch",
			zap.Int("events", len(batch)), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		metrics.AnalyticsBatchesSent.WithLabelValues("failure").Inc()
		s.logger.Warn("analytics backend rejected batch",
			zap.Int("status", resp.StatusCode), zap.Int("events", len(batch)))
		return
	}

	metrics.AnalyticsBatchesSent.WithLabelValues("success").Inc()
	s.logger.Debug("analytics batch delivered", zap.Int("events", len(batch)))
}
