package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"
	"storybook-service/internal/repository"
)

const (
	StoryStreamName      = "STORY_EVENTS"
	StoryRenderedSubject = "story.rendered"
)

// StoryRenderedEvent is emitted by the renderer once a story PDF is uploaded.
type StoryRenderedEvent struct {
	EventType string    `json:"eventType"`
	StoryID   string    `json:"storyId"`
	PDFKey    string    `json:"pdfKey"`
	Timestamp time.Time `json:"timestamp"`
}

// StoryRenderer applies a finished render.
type StoryRenderer interface {
	MarkRendered(ctx context.Context, storyID, pdfKey string) error
}

// StorySubscriber consumes story.rendered events from JetStream.
type StorySubscriber struct {
	nc           *nats.Conn
	js           jetstream.JetStream
	renderer     StoryRenderer
	consumerName string
	logger       *logrus.Entry
}

// NewStorySubscriber connects to NATS and prepares a JetStream context.
func NewStorySubscriber(natsURL string, renderer StoryRenderer, logger *logrus.Logger) (*StorySubscriber, error) {
	log := logger.WithField("component", "story-subscriber")

	nc, err := nats.Connect(natsURL,
		nats.Name("storybook-service"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.WithError(err).Warn("NATS disconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.WithError(err).Error("NATS error")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	hostname, _ := os.Hostname()
	return &StorySubscriber{
		nc:           nc,
		js:           js,
		renderer:     renderer,
		consumerName: "storybook-story-rendered",
		logger:       log.WithField("host", hostname),
	}, nil
}

// Start ensures the stream exists and consumes until ctx is cancelled.
func (s *StorySubscriber) Start(ctx context.Context) error {
	_, err := s.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StoryStreamName,
		Subjects:  []string{"story.>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour * 7,
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	})
	if err != nil {
		s.logger.WithError(err).Warn("Could not create story stream")
	}

	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StoryStreamName, jetstream.ConsumerConfig{
		Durable:       s.consumerName,
		FilterSubject: StoryRenderedSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    5,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create story consumer: %w", err)
	}

	msgs, err := consumer.Messages()
	if err != nil {
		return fmt.Errorf("failed to get story messages iterator: %w", err)
	}

	go s.consume(ctx, msgs)
	s.logger.Info("Story subscriber started")
	return nil
}

func (s *StorySubscriber) consume(ctx context.Context, msgs jetstream.MessagesContext) {
	go func() {
		<-ctx.Done()
		msgs.Stop()
	}()

	for {
		msg, err := msgs.Next()
		if err != nil {
			if errors.Is(err, jetstream.ErrMsgIteratorClosed) || ctx.Err() != nil {
				return
			}
			s.logger.WithError(err).Warn("Error getting next story message")
			time.Sleep(time.Second)
			continue
		}

		if err := s.Handle(ctx, msg.Data()); err != nil {
			s.logger.WithError(err).Error("Error handling story event")
			_ = msg.Nak()
			continue
		}
		_ = msg.Ack()
	}
}

// Handle processes one story.rendered payload. Unknown stories are acked
// and dropped since a redelivery cannot fix them.
func (s *StorySubscriber) Handle(ctx context.Context, data []byte) error {
	var event StoryRenderedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.WithError(err).Warn("Dropping malformed story event")
		return nil
	}
	if event.StoryID == "" || event.PDFKey == "" {
		s.logger.WithField("story_id", event.StoryID).Warn("Dropping incomplete story event")
		return nil
	}

	err := s.renderer.MarkRendered(ctx, event.StoryID, event.PDFKey)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.WithField("story_id", event.StoryID).Warn("Rendered story not found")
		return nil
	}
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"story_id": event.StoryID,
		"pdf_key":  event.PDFKey,
	}).Info("Story render recorded")
	return nil
}

// Close drains the NATS connection
func (s *StorySubscriber) Close() {
	if s.nc != nil {
		_ = s.nc.Drain()
	}
}
