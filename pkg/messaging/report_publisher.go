package messaging

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"call-analyzer/pkg/analysis"
	"call-analyzer/pkg/metrics"
)

// ReportPublisherConfig configures the report publisher
type ReportPublisherConfig struct {
	QueueSize      int
	PublishTimeout time.Duration
}

// DefaultReportPublisherConfig returns default configuration
func DefaultReportPublisherConfig() ReportPublisherConfig {
	return ReportPublisherConfig{
		QueueSize:      256,
		PublishTimeout: 5 * time.Second,
	}
}

// PublisherStats tracks publisher statistics
type PublisherStats struct {
	Queued    int64     `json:"queued"`
	Published int64     `json:"published"`
	Failed    int64     `json:"failed"`
	Dropped   int64     `json:"dropped"`
	LastError string    `json:"last_error,omitempty"`
	LastSent  time.Time `json:"last_sent"`
}

type pendingReport struct {
	id   string
	body []byte
}

// ReportPublisher forwards analysis reports to AMQP. It implements
// analysis.Subscriber and never blocks the analysis path: reports are
// queued and published by a background worker.
type ReportPublisher struct {
	logger    *logrus.Entry
	publisher Publisher
	config    ReportPublisherConfig

	queue    chan pendingReport
	stopChan chan struct{}
	done     chan struct{}
	started  bool
	mu       sync.Mutex

	statsMu sync.RWMutex
	stats   PublisherStats
}

// NewReportPublisher creates a report publisher on top of a broker client
func NewReportPublisher(logger *logrus.Logger, publisher Publisher, config ReportPublisherConfig) *ReportPublisher {
	defaults := DefaultReportPublisherConfig()
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = defaults.PublishTimeout
	}

	return &ReportPublisher{
		logger:    logger.WithField("component", "report_publisher"),
		publisher: publisher,
		config:    config,
		queue:     make(chan pendingReport, config.QueueSize),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the publishing worker
func (p *ReportPublisher) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}
	p.started = true

	go p.run()

	p.logger.WithFields(logrus.Fields{
		"queue":      p.publisher.QueueName(),
		"queue_size": p.config.QueueSize,
	}).Info("AMQP report publisher started")
}

// Stop drains queued reports and stops the worker
func (p *ReportPublisher) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	close(p.stopChan)
	p.mu.Unlock()

	<-p.done
	p.logger.Info("AMQP report publisher stopped")
}

// OnReport queues a report for publishing. A full queue drops the report.
func (p *ReportPublisher) OnReport(report *analysis.Report) {
	if report == nil {
		return
	}

	body, err := json.Marshal(analysis.NewReportEvent(report))
	if err != nil {
		p.recordFailure(report.ID, err)
		return
	}

	select {
	case p.queue <- pendingReport{id: report.ID, body: body}:
		p.statsMu.Lock()
		p.stats.Queued++
		p.statsMu.Unlock()
	default:
		p.statsMu.Lock()
		p.stats.Dropped++
		p.statsMu.Unlock()
		metrics.RecordAMQPPublish(p.publisher.QueueName(), "dropped")

		p.logger.WithField("analysis_id", report.ID).Warn("Report queue full, dropping report")
	}
}

// Stats returns a snapshot of the publisher statistics
func (p *ReportPublisher) Stats() PublisherStats {
	p.statsMu.RLock()
	defer p.statsMu.RUnlock()
	return p.stats
}

func (p *ReportPublisher) run() {
	defer close(p.done)

	for {
		select {
		case msg := <-p.queue:
			p.publish(msg)
		case <-p.stopChan:
			for {
				select {
				case msg := <-p.queue:
					p.publish(msg)
				default:
					return
				}
			}
		}
	}
}

func (p *ReportPublisher) publish(msg pendingReport) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.PublishTimeout)
	defer cancel()

	if err := p.publisher.Publish(ctx, msg.id, msg.body); err != nil {
		p.recordFailure(msg.id, err)
		return
	}

	p.statsMu.Lock()
	p.stats.Published++
	p.stats.LastSent = time.Now()
	p.statsMu.Unlock()
	metrics.RecordAMQPPublish(p.publisher.QueueName(), "success")

	p.logger.WithField("analysis_id", msg.id).Debug("Published analysis report")
}

func (p *ReportPublisher) recordFailure(id string, err error) {
	p.statsMu.Lock()
	p.stats.Failed++
	p.stats.LastError = err.Error()
	p.statsMu.Unlock()
	metrics.RecordAMQPPublish(p.publisher.QueueName(), "error")

	p.logger.WithError(err).WithFields(logrus.Fields{
		"analysis_id": id,
		"queue":       p.publisher.QueueName(),
	}).Error("Failed to publish analysis report")
}
