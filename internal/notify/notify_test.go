package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// --- モック（パッケージ内テスト共通） ---

type mockMailer struct {
	sendFunc func(ctx context.Context, msg Message) error

	mu   sync.Mutex
	sent []Message
}

func (m *mockMailer) Send(ctx context.Context, msg Message) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	if m.sendFunc != nil {
		return m.sendFunc(ctx, msg)
	}
	return nil
}

func (m *mockMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type recordedDelivery struct {
	job Job
	err error
}

type mockRecorder struct {
	recordFunc func(ctx context.Context, job Job, sendErr error) error

	mu      sync.Mutex
	records []recordedDelivery
}

func (m *mockRecorder) RecordDelivery(ctx context.Context, job Job, sendErr error) error {
	m.mu.Lock()
	m.records = append(m.records, recordedDelivery{job: job, err: sendErr})
	m.mu.Unlock()
	if m.recordFunc != nil {
		return m.recordFunc(ctx, job, sendErr)
	}
	return nil
}

type mockMetrics struct {
	mu        sync.Mutex
	results   []string
	latencies int
}

func (m *mockMetrics) RecordBookingCreated() {}
func (m *mockMetrics) RecordNotification(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result)
}
func (m *mockMetrics) RecordNotificationLatency(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies++
}
func (m *mockMetrics) RecordPaymentIntent(string) {}
func (m *mockMetrics) RecordHTTPStatus(int)       {}

func newBufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil)), &buf
}

var errRelayDown = errors.New("dial tcp: connection refused")
