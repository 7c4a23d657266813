// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package postage queues and dispatches transactional email.

Request handlers never talk to a mail provider. They enqueue a [Message] on a
Redis list through a [Notifier]; the [Dispatcher] drains the list in the
background and hands each message to a [Sender].

Delivery is best effort: callers use [NotifyQuietly], which logs and swallows
failures so a sign-in never fails because mail is down.
*/
package postage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/kreativeid/internal/platform/ctxutil"
)

// # Templates

// Template names a stored email layout. Rendering happens downstream.
type Template string

const (
	TemplateWelcome         Template = "welcome"
	TemplateNewLogin        Template = "new-login"
	TemplateResetCode       Template = "reset-code"
	TemplatePasswordChanged Template = "password-changed"
)

var subjects = map[Template]string{
	TemplateWelcome:         "Welcome to Kreative!",
	TemplateNewLogin:        "Did you just login? | Kreative",
	TemplateResetCode:       "Password Reset Code | Kreative",
	TemplatePasswordChanged: "Password Changed | Kreative",
}

// Subject returns the subject line for t, and false for unknown templates.
func Subject(t Template) (string, bool) {
	subject, ok := subjects[t]
	return subject, ok
}

// # Message

// Message is one queued email. Data fills the template placeholders in order.
type Message struct {
	Template Template  `json:"template"`
	To       string    `json:"to"`
	From     string    `json:"from,omitempty"`
	ReplyTo  string    `json:"replyTo,omitempty"`
	Data     []string  `json:"data"`
	QueuedAt time.Time `json:"queuedAt"`
}

// Validate reports whether the message can be delivered.
func (message Message) Validate() error {
	if _, ok := Subject(message.Template); !ok {
		return fmt.Errorf("postage: unknown template %q", message.Template)
	}
	if message.To == "" {
		return fmt.Errorf("postage: message has no recipient")
	}
	return nil
}

// Notifier accepts messages for later delivery.
type Notifier interface {
	Notify(ctx context.Context, message Message) error
}

// NotifyQuietly enqueues message and logs, rather than returns, any failure.
func NotifyQuietly(ctx context.Context, notifier Notifier, message Message) {
	if notifier == nil {
		return
	}
	if err := notifier.Notify(ctx, message); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "postage_notify_failed",
			slog.String("template", string(message.Template)),
			slog.Any("error", err),
		)
	}
}
