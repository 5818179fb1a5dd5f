package queue

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-website/app/delivery"
	"github.com/vibast-solutions/ms-go-website/app/entity"
	"github.com/vibast-solutions/ms-go-website/app/service"
)

// Sender delivers one message. Implemented by service.EmailService.
type Sender interface {
	Send(ctx context.Context, msg *entity.Message) (delivery.Outcome, error)
}

const (
	readBlock    = 5 * time.Second
	reclaimEvery = 30 * time.Second
	reclaimBatch = 10
)

// reclaimIdle is how long an entry must sit pending before any consumer may
// claim it. It outlasts the message lock so a claimed entry can be locked again.
const reclaimIdle = service.EmailLockTTL + time.Minute

type EmailConsumer struct {
	client       redis.UniversalClient
	sender       Sender
	consumerName string
	sendTimeout  time.Duration
	block        time.Duration
	reclaimEvery time.Duration
	reclaimIdle  time.Duration
}

// NewEmailConsumer constructs a Redis stream consumer. sendTimeout bounds one
// delivery run and should cover the orchestrator deadline.
func NewEmailConsumer(client redis.UniversalClient, sender Sender, consumerName string, sendTimeout time.Duration) *EmailConsumer {
	if sendTimeout <= 0 {
		sendTimeout = time.Minute
	}
	return &EmailConsumer{
		client:       client,
		sender:       sender,
		consumerName: consumerName,
		sendTimeout:  sendTimeout,
		block:        readBlock,
		reclaimEvery: reclaimEvery,
		reclaimIdle:  reclaimIdle,
	}
}

// Run starts the consumer loop and blocks until context cancellation.
// Entries left pending longer than reclaimIdle, by this or a dead consumer,
// are claimed and retried periodically.
func (c *EmailConsumer) Run(ctx context.Context) error {
	if err := c.ensureGroup(ctx); err != nil {
		return err
	}

	logger := log.WithFields(log.Fields{"consumer": c.consumerName, "stream": StreamName})
	logger.Info("email consumer started")

	// Walk this consumer's pending entries once, then read new ones.
	startID := "0"
	lastReclaim := time.Now()
	for {
		if ctx.Err() != nil {
			logger.Info("email consumer shutting down")
			return nil
		}

		if startID == ">" && time.Since(lastReclaim) >= c.reclaimEvery {
			c.reclaimStale(ctx)
			lastReclaim = time.Now()
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    ConsumerGroup,
			Consumer: c.consumerName,
			Streams:  []string{StreamName, startID},
			Count:    1,
			Block:    c.block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				startID = ">"
				continue
			}
			if ctx.Err() != nil {
				logger.Info("email consumer shutting down")
				return nil
			}
			logger.Errorf("xreadgroup failed: %v", err)
			time.Sleep(time.Second)
			continue
		}

		drained := true
		for _, stream := range streams {
			for _, msg := range stream.Messages {
				c.processMessage(ctx, msg)
				if startID != ">" {
					startID = msg.ID
				}
				drained = false
			}
		}
		if drained {
			startID = ">"
		}
	}
}

// reclaimStale claims entries idle for at least reclaimIdle and processes them.
func (c *EmailConsumer) reclaimStale(ctx context.Context) {
	start := "0-0"
	for {
		msgs, next, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   StreamName,
			Group:    ConsumerGroup,
			Consumer: c.consumerName,
			MinIdle:  c.reclaimIdle,
			Start:    start,
			Count:    reclaimBatch,
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				log.WithField("consumer", c.consumerName).Errorf("xautoclaim failed: %v", err)
			}
			return
		}
		for _, msg := range msgs {
			log.WithFields(log.Fields{"consumer": c.consumerName, "entry_id": msg.ID}).Info("reclaimed stale entry")
			c.processMessage(ctx, msg)
		}
		if next == "0-0" || ctx.Err() != nil {
			return
		}
		start = next
	}
}

// processMessage sends one entry. The entry is acked once a delivery run has
// been recorded, whatever its result, and left pending on lock contention.
func (c *EmailConsumer) processMessage(ctx context.Context, entry redis.XMessage) {
	logger := log.WithField("entry_id", entry.ID)

	msg, err := decodeMessage(entry.Values)
	if err != nil {
		logger.Errorf("dropping entry: %v", err)
		c.ack(ctx, entry.ID)
		return
	}
	logger = logger.WithFields(log.Fields{"message_id": msg.ID, "recipient": msg.Recipient()})
	logger.Debug("processing queued email")

	sendCtx := service.WithRequestID(ctx, msg.ID)
	sendCtx, cancel := context.WithTimeout(sendCtx, c.sendTimeout)
	defer cancel()

	out, err := c.sender.Send(sendCtx, msg)
	if err != nil {
		logger.Warnf("send skipped, entry stays pending: %v", err)
		return
	}
	if !out.Success {
		logger.Warnf("queued email failed: %s", out.Error)
	}
	c.ack(ctx, entry.ID)
}

func (c *EmailConsumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, StreamName, ConsumerGroup, id).Err(); err != nil {
		log.WithField("entry_id", id).Errorf("xack failed: %v", err)
	}
}

// ensureGroup creates the stream and consumer group if missing.
func (c *EmailConsumer) ensureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, StreamName, ConsumerGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}
