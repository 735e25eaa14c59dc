package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/testutil"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/types/common"
)

type mockKafkaReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (m *mockKafkaReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	m.mu.Lock()
	if len(m.queue) > 0 {
		msg := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		return msg, nil
	}
	m.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (m *mockKafkaReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed = append(m.committed, msgs...)
	return nil
}

func (m *mockKafkaReader) Close() error {
	m.closed = true
	return nil
}

func (m *mockKafkaReader) commits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.committed)
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*common.ProducerMessage
	err  error
}

func (r *recordingPublisher) Publish(ctx context.Context, msg *common.ProducerMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func newTestConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Brokers: []string{"localhost:9092"},
		GroupID: "minrisk-worker",
		Topics:  []string{TopicEventsIngested},
		RetryConfig: RetryConfig{
			MaxRetries:      2,
			RetryBackoff:    time.Millisecond,
			DeadLetterTopic: DeadLetterTopic(TopicEventsIngested),
		},
	}
}

func TestValidateConsumerConfig(t *testing.T) {
	assert.NoError(t, ValidateConsumerConfig(newTestConsumerConfig()))

	cfg := newTestConsumerConfig()
	cfg.GroupID = ""
	assert.Error(t, ValidateConsumerConfig(cfg))

	cfg = newTestConsumerConfig()
	cfg.Topics = nil
	assert.Error(t, ValidateConsumerConfig(cfg))

	cfg = newTestConsumerConfig()
	cfg.AutoOffsetReset = "middle"
	assert.Error(t, ValidateConsumerConfig(cfg))
}

func TestProcessMessage_RetrySuccess(t *testing.T) {
	c := NewConsumerWithReader(&mockKafkaReader{}, nil, newTestConsumerConfig(), testutil.NewMockLogger())

	attempts := 0
	handler := func(ctx context.Context, msg *common.Message) error {
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		return nil
	}

	require.NoError(t, c.processMessage(context.Background(), &common.Message{}, handler))
	assert.Equal(t, 2, attempts)
	assert.Equal(t, int64(1), c.metrics.MessagesRetried.Load())
	assert.Equal(t, int64(1), c.metrics.MessagesProcessed.Load())
}

func TestProcessMessage_DeadLetter(t *testing.T) {
	dl := &recordingPublisher{}
	logger := testutil.NewMockLogger()
	c := NewConsumerWithReader(&mockKafkaReader{}, dl, newTestConsumerConfig(), logger)

	msg := &common.Message{Topic: TopicEventsIngested, Key: []byte("k"), Value: []byte("v"), Headers: map[string]string{"trace_id": "t1"}}
	err := c.processMessage(context.Background(), msg, func(ctx context.Context, m *common.Message) error {
		return errors.New("poison")
	})

	require.NoError(t, err)
	require.Len(t, dl.msgs, 1)
	assert.Equal(t, "minrisk.events.ingested.dlq", dl.msgs[0].Topic)
	assert.Equal(t, TopicEventsIngested, dl.msgs[0].Headers["original_topic"])
	assert.Equal(t, "poison", dl.msgs[0].Headers["error_message"])
	assert.Equal(t, "t1", dl.msgs[0].Headers["trace_id"])
	assert.Equal(t, int64(1), c.metrics.MessagesDeadLettered.Load())
	assert.True(t, logger.HasMessage("error", "Message processing failed after retries"))
}

func TestProcessMessage_PermanentSkipsRetries(t *testing.T) {
	dl := &recordingPublisher{}
	cfg := newTestConsumerConfig()
	cfg.RetryConfig.RetryBackoff = time.Hour
	c := NewConsumerWithReader(&mockKafkaReader{}, dl, cfg, testutil.NewMockLogger())

	attempts := 0
	err := c.processMessage(context.Background(), &common.Message{Topic: TopicEventsIngested}, func(context.Context, *common.Message) error {
		attempts++
		return Permanent(errors.New("bad payload"))
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, int64(0), c.metrics.MessagesRetried.Load())
	require.Len(t, dl.msgs, 1)
	assert.Contains(t, dl.msgs[0].Headers["error_message"], "bad payload")
}

func TestProcessMessage_CancelledDuringBackoff(t *testing.T) {
	cfg := newTestConsumerConfig()
	cfg.RetryConfig.RetryBackoff = time.Hour
	c := NewConsumerWithReader(&mockKafkaReader{}, nil, cfg, testutil.NewMockLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.processMessage(ctx, &common.Message{}, func(context.Context, *common.Message) error {
		return errors.New("fail")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConsumer_StartDispatchesAndCommits(t *testing.T) {
	reader := &mockKafkaReader{queue: []kafka.Message{
		{Topic: TopicEventsIngested, Value: []byte("one"), Headers: []kafka.Header{{Key: "event_type", Value: []byte("x")}}},
		{Topic: "unknown.topic", Value: []byte("two")},
	}}
	c := NewConsumerWithReader(reader, nil, newTestConsumerConfig(), testutil.NewMockLogger())

	got := make(chan *common.Message, 1)
	c.Subscribe(TopicEventsIngested, func(ctx context.Context, msg *common.Message) error {
		got <- msg
		return nil
	})

	require.NoError(t, c.Start(context.Background()))
	assert.ErrorIs(t, c.Start(context.Background()), ErrAlreadyRunning)

	select {
	case msg := <-got:
		assert.Equal(t, "one", string(msg.Value))
		assert.Equal(t, "x", msg.Headers["event_type"])
	case <-time.After(2 * time.Second):
		t.Fatal("handler not invoked")
	}

	assert.Eventually(t, func() bool { return reader.commits() == 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, c.Close())
	assert.True(t, reader.closed)

	consumed, processed, failed, _ := c.Stats()
	assert.Equal(t, int64(2), consumed)
	assert.Equal(t, int64(1), processed)
	assert.Equal(t, int64(0), failed)
}

//Personal.AI order the ending
