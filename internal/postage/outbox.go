// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package postage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/kreativeid/internal/platform/constants"
)

// listClient is the slice of [*redis.Client] the outbox needs.
type listClient interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
}

// # Outbox

// RedisOutbox implements [Notifier] by pushing JSON messages onto a Redis list.
type RedisOutbox struct {
	client  listClient
	key     string
	from    string
	replyTo string
	now     func() time.Time
}

/*
NewRedisOutbox creates the producer side of the postage queue.

Parameters:
  - client: *redis.Client (or any client exposing LPUSH/BRPOP)
  - from: string (default sender address)
  - replyTo: string (default reply-to address)
*/
func NewRedisOutbox(client listClient, from, replyTo string) *RedisOutbox {
	return &RedisOutbox{
		client:  client,
		key:     constants.RedisKeyPostageOutbox,
		from:    from,
		replyTo: replyTo,
		now:     time.Now,
	}
}

// Notify validates the message, fills envelope defaults and enqueues it.
func (outbox *RedisOutbox) Notify(context context.Context, message Message) error {
	if err := message.Validate(); err != nil {
		return err
	}

	if message.From == "" {
		message.From = outbox.from
	}
	if message.ReplyTo == "" {
		message.ReplyTo = outbox.replyTo
	}
	message.QueuedAt = outbox.now().UTC()

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("postage_outbox_encode_failed: %w", err)
	}

	if err := outbox.client.LPush(context, outbox.key, payload).Err(); err != nil {
		return fmt.Errorf("postage_outbox_push_failed: %w", err)
	}
	return nil
}

// # Dispatcher

// Sender delivers one message to a mail provider.
type Sender interface {
	Send(ctx context.Context, message Message) error
}

// LogSender records messages in the log instead of delivering them. It is the
// default until a provider integration is configured.
type LogSender struct {
	Logger *slog.Logger
}

// Send implements [Sender].
func (sender LogSender) Send(context context.Context, message Message) error {
	subject, _ := Subject(message.Template)
	sender.Logger.InfoContext(context, "postage_message_sent",
		slog.String("template", string(message.Template)),
		slog.String("to", message.To),
		slog.String("subject", subject),
	)
	return nil
}

// Dispatcher drains the outbox and hands each message to a [Sender].
type Dispatcher struct {
	client      listClient
	key         string
	sender      Sender
	logger      *slog.Logger
	pollTimeout time.Duration
}

// NewDispatcher creates the consumer side of the postage queue.
func NewDispatcher(client listClient, sender Sender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		client:      client,
		key:         constants.RedisKeyPostageOutbox,
		sender:      sender,
		logger:      logger,
		pollTimeout: 5 * time.Second,
	}
}

// Run blocks until context is cancelled, delivering messages as they arrive.
func (dispatcher *Dispatcher) Run(context context.Context) error {
	dispatcher.logger.Info("postage_dispatcher_started", slog.String("key", dispatcher.key))

	for {
		if context.Err() != nil {
			dispatcher.logger.Info("postage_dispatcher_stopped")
			return nil
		}

		if err := dispatcher.next(context); err != nil {
			dispatcher.logger.Error("postage_dispatch_failed", slog.Any("error", err))

			// Back off so a dead Redis does not spin the loop.
			select {
			case <-context.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

// next pops and delivers a single message. A poll timeout is not an error.
func (dispatcher *Dispatcher) next(context context.Context) error {
	result, err := dispatcher.client.BRPop(context, dispatcher.pollTimeout, dispatcher.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || context.Err() != nil {
			return nil
		}
		return fmt.Errorf("postage_outbox_pop_failed: %w", err)
	}

	// BRPOP replies with [key, value].
	if len(result) != 2 {
		return fmt.Errorf("postage_outbox_unexpected_reply: %d elements", len(result))
	}

	var message Message
	if err := json.Unmarshal([]byte(result[1]), &message); err != nil {
		dispatcher.logger.Warn("postage_message_dropped", slog.Any("error", err))
		return nil
	}

	if err := dispatcher.sender.Send(context, message); err != nil {
		dispatcher.logger.Warn("postage_send_failed",
			slog.String("template", string(message.Template)),
			slog.Any("error", err),
		)
	}
	return nil
}
