package eventbus

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

type args struct {
	data interface{}
}

func newTestLogger(buf *bytes.Buffer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(buf)
	log.SetLevel(logrus.WarnLevel)
	return log
}

func TestPublisher_Publish_NoMatchingSubscribers(t *testing.T) {
	type other struct {
		data interface{}
	}
	logBuffer := bytes.Buffer{}
	publisher := NewEventPublisher(newTestLogger(&logBuffer))
	publisher.Subscribe(func(e *args) {
		t.Error("should not be called")
	})
	publisher.Publish(&other{data: "test"})

	if output := logBuffer.String(); output == "" {
		t.Error("should have logged")
	} else if !strings.Contains(output, "eventbus.Publish: no matching subscribers") {
		t.Errorf("should have contained no matching subscribers but got: %q", output)
	}
}

func TestPublisher_Subscribe(t *testing.T) {
	publisher := NewEventPublisher(newTestLogger(&bytes.Buffer{}))
	called := false
	var data interface{}
	publisher.Subscribe(func(e *args) {
		called = true
		data = e.data
	})
	publisher.Publish(&args{data: "test"})
	if !called {
		t.Error("should be called")
	}
	if data != "test" {
		t.Errorf("expected: %v, got: %v", "test", data)
	}
}

func TestPublisher_Publish_RecoversPanickingHandler(t *testing.T) {
	logBuffer := bytes.Buffer{}
	publisher := NewEventPublisher(newTestLogger(&logBuffer))

	secondCalled := false
	publisher.Subscribe(func(e *args) { panic("boom") })
	publisher.Subscribe(func(e *args) { secondCalled = true })

	publisher.Publish(&args{data: "test"})

	if !secondCalled {
		t.Error("second subscriber should still run after a panic")
	}
	if !strings.Contains(logBuffer.String(), "panicked") {
		t.Errorf("panic should be logged, got: %q", logBuffer.String())
	}
}

func TestPublisher_PublishE_JoinsErrors(t *testing.T) {
	publisher := NewEventPublisher(newTestLogger(&bytes.Buffer{}))

	wantErr := errors.New("listener failed")
	publisher.Subscribe(func(e *args) error { return wantErr })
	publisher.Subscribe(func(e *args) error { return nil })

	err := publisher.PublishE(&args{data: "test"})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected joined error to contain %v, got %v", wantErr, err)
	}
}

func TestPublisher_PublishE_NoSubscribers(t *testing.T) {
	publisher := NewEventPublisher(newTestLogger(&bytes.Buffer{}))
	err := publisher.PublishE(&args{data: "test"})
	if !errors.Is(err, ErrNoSubscribers) {
		t.Errorf("expected ErrNoSubscribers, got %v", err)
	}
}

func TestPublisher_Unsubscribe(t *testing.T) {
	publisher := NewEventPublisher(newTestLogger(&bytes.Buffer{}))
	handler := func(e *args) { t.Error("should not be called") }
	publisher.Subscribe(handler)
	publisher.Unsubscribe(handler)
	if publisher.SubscribersCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", publisher.SubscribersCount())
	}
}

func TestMatchSignature(t *testing.T) {
	type args struct{}
	type args2 struct{}
	if !MatchSignature(func(e *args) {}, []interface{}{&args{}}) {
		t.Error("expected true")
	}
	if MatchSignature(func(e *args) {}, []interface{}{&args2{}}) {
		t.Error("expected false")
	}
	if MatchSignature(func(e *args) {}, []interface{}{}) {
		t.Error("expected false")
	}
	if MatchSignature(func(e *args) {}, []interface{}{&args{}, &args{}}) {
		t.Error("expected false")
	}
	if !MatchSignature(func(ctx context.Context) {}, []interface{}{context.Background()}) {
		t.Error("expected true")
	}
	if MatchSignature("not a func", []interface{}{&args{}}) {
		t.Error("expected false")
	}
}
