// Package notify is the notification emitter: it renders a named template
// with a payload and hands the resulting message to the transport. Failed
// renders or sends are reported to the caller and dropped; there is no
// retry and the host's mutation is never blocked.
package notify

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/character-monitor/internal/settings"
	"github.com/jwebster45206/character-monitor/pkg/chat"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Notifier emits one notification per detected change. Implementations
// decide rendering and transport; monitors only build payloads.
type Notifier interface {
	Notify(ctx context.Context, category chat.Category, flag, templateName string, data map[string]any) error
}

// Broadcaster renders templates and publishes messages on the world chat
// channel. The privileged relay picks them up from there, so a message is
// created even when the originating client could not write chat directly.
type Broadcaster struct {
	client    *redis.Client
	settings  settings.Provider
	worldID   string
	templates *template.Template
	logger    *slog.Logger
}

// Ensure Broadcaster implements Notifier
var _ Notifier = (*Broadcaster)(nil)

// NewBroadcaster creates a broadcaster for one world.
func NewBroadcaster(client *redis.Client, provider settings.Provider, worldID string, logger *slog.Logger) (*Broadcaster, error) {
	templates, err := template.ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse notification templates: %w", err)
	}
	return &Broadcaster{
		client:    client,
		settings:  provider,
		worldID:   worldID,
		templates: templates,
		logger:    logger,
	}, nil
}

// Notify renders templateName with data and publishes the message. When the
// GM-only setting is active the message is whispered to the GM roster.
func (b *Broadcaster) Notify(ctx context.Context, category chat.Category, flag, templateName string, data map[string]any) error {
	content, err := b.Render(templateName, data)
	if err != nil {
		return err
	}

	cfg, err := b.settings.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	msg := chat.Message{
		ID:        uuid.New().String(),
		Category:  category,
		Flag:      flag,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if cfg.ShowGMOnly {
		msg.Whisper = cfg.GMUserIDs
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := b.client.Publish(ctx, chat.Channel(b.worldID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	b.logger.Debug("Notification published", "category", category, "flag", flag, "template", templateName)
	return nil
}

// Render produces the chat line for one template and payload.
func (b *Broadcaster) Render(templateName string, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := b.templates.ExecuteTemplate(&buf, templateName+".tmpl", data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", templateName, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
