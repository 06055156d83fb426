package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/property-reservation/internal/model"
)

func sampleEvent() model.ReservationEvent {
	b := &model.Booking{
		ID:         7,
		PropertyID: "prop-1",
		Range: model.DateRange{
			Start: time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2030, 6, 5, 0, 0, 0, 0, time.UTC),
		},
		Status: model.BookingActive,
	}
	return model.NewBookingEvent(model.EventBookingCreated, b, time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC))
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestNewMessage(t *testing.T) {
	m := NewMessage(sampleEvent())
	if m.ID == "" {
		t.Fatal("missing id")
	}
	if m.StartDate != "2030-06-01" || m.EndDate != "2030-06-05" || m.Status != "ACTIVE" {
		t.Fatalf("message = %+v", m)
	}
	if m.OccurredAt != "2030-05-01T12:00:00Z" {
		t.Fatalf("occurred_at = %s", m.OccurredAt)
	}
	line := FormatLine(m)
	for _, want := range []string{"booking.created", "booking_id=7", `property="prop-1"`, "range=2030-06-01/2030-06-05", "status=ACTIVE"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func TestConsumerHandle(t *testing.T) {
	var buf bytes.Buffer
	c := &Consumer{Out: &buf, Logger: quietLogger()}
	body, _ := json.Marshal(NewMessage(sampleEvent()))
	if err := c.Handle(body); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(buf.String(), "\n") || !strings.Contains(buf.String(), "booking.created") {
		t.Fatalf("out = %q", buf.String())
	}
	if err := c.Handle([]byte("{")); err == nil {
		t.Fatal("want unmarshal error")
	}
	if err := c.Handle([]byte("{}")); err == nil {
		t.Fatal("want error for message without type")
	}
}

type fakeChannel struct {
	published []amqp.Publishing
	failNext  bool
	closed    bool
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, _ string, _, _ bool, msg amqp.Publishing) error {
	if f.failNext {
		f.failNext = false
		return errors.New("channel closed")
	}
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error { f.closed = true; return nil }

func TestPublisherReconnectsAfterFailure(t *testing.T) {
	var dials int
	chans := []*fakeChannel{{failNext: true}, {}}
	dial := func(string) (channel, func() error, error) {
		ch := chans[dials]
		dials++
		return ch, func() error { return nil }, nil
	}
	p := newPublisher(PublisherConfig{Queue: "q", MaxFailures: 5}, quietLogger(), dial)

	if err := p.Publish(context.Background(), sampleEvent()); err == nil {
		t.Fatal("want first publish to fail")
	}
	if !chans[0].closed {
		t.Fatal("failed channel not closed")
	}
	if err := p.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("second publish: %v", err)
	}
	if dials != 2 || len(chans[1].published) != 1 {
		t.Fatalf("dials=%d published=%d", dials, len(chans[1].published))
	}
	got := chans[1].published[0]
	if got.DeliveryMode != amqp.Persistent || got.ContentType != "application/json" {
		t.Fatalf("publishing = %+v", got)
	}
	var m Message
	if err := json.Unmarshal(got.Body, &m); err != nil || m.ID != got.MessageId {
		t.Fatalf("body = %s (%v)", got.Body, err)
	}
}

func TestPublisherBreakerOpens(t *testing.T) {
	var dials int
	dial := func(string) (channel, func() error, error) {
		dials++
		return nil, nil, errors.New("connection refused")
	}
	p := newPublisher(PublisherConfig{Queue: "q", MaxFailures: 2, OpenFor: time.Minute}, quietLogger(), dial)
	for i := 0; i < 4; i++ {
		_ = p.Publish(context.Background(), sampleEvent())
	}
	if dials != 2 {
		t.Fatalf("dials = %d, want breaker to stop after 2", dials)
	}
}
