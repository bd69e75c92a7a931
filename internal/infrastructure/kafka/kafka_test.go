package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/honeynil/PaymentServiceBF/internal/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	msgs []kafka.Message
	errs []error
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return kafka.Message{}, err
	}
	if len(r.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *fakeReader) Close() error { return nil }

type recordingHandler struct {
	mu     sync.Mutex
	events []models.TransactionEvent
	err    error
}

func (h *recordingHandler) Handle(_ context.Context, event models.TransactionEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

func TestProducer_Publish(t *testing.T) {
	writer := &fakeWriter{}
	p := NewProducerWithWriter(writer, "")
	tx := &models.Transaction{ID: "TXN-9", Status: models.StatusPending}
	event := models.NewTransactionEvent(models.EventTransactionCreated, tx, time.Now().UTC())

	require.NoError(t, p.Publish(context.Background(), event))
	require.Len(t, writer.msgs, 1)

	msg := writer.msgs[0]
	assert.Equal(t, models.TopicTransactions, msg.Topic)
	assert.Equal(t, "TXN-9", string(msg.Key))

	var decoded models.TransactionEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, models.EventTransactionCreated, decoded.Event)
	assert.Equal(t, "TXN-9", decoded.TransactionID)
}

func TestProducer_PublishError(t *testing.T) {
	p := NewProducerWithWriter(&fakeWriter{err: errors.New("broker down")}, "events")
	tx := &models.Transaction{ID: "TXN-9"}
	err := p.Publish(context.Background(), models.NewTransactionEvent(models.EventExpired, tx, time.Now()))
	assert.EqualError(t, err, "broker down")
}

func TestConsumer_Consume(t *testing.T) {
	tx := &models.Transaction{ID: "TXN-1", Status: models.StatusCompleted}
	valid, err := json.Marshal(models.NewTransactionEvent(models.EventValidated, tx, time.Now().UTC()))
	require.NoError(t, err)

	reader := &fakeReader{
		errs: []error{errors.New("rebalance")},
		msgs: []kafka.Message{
			{Key: []byte("bad"), Value: []byte("{not json")},
			{Key: []byte("TXN-1"), Value: valid},
		},
	}
	handler := &recordingHandler{err: errors.New("ignored")}

	NewConsumerWithReader(reader, models.TopicTransactions, handler).Consume(context.Background())

	require.Len(t, handler.events, 1)
	assert.Equal(t, models.EventValidated, handler.events[0].Event)
	assert.Equal(t, "TXN-1", handler.events[0].Transaction.ID)
}

func TestConsumer_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reader := &fakeReader{errs: []error{context.Canceled}}

	done := make(chan struct{})
	go func() {
		NewConsumerWithReader(reader, "t", &recordingHandler{}).Consume(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}
