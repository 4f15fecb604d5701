package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/ports"
)

// TemplateCaption is the default post copy.
func TemplateCaption(item domain.ContentItem) string {
	caption := strings.TrimSpace(item.Title)
	if item.Link != "" {
		caption += fmt.Sprintf("\n\nRead more: %s", item.Link)
	}
	return caption + "\n\n#news"
}

// Captioner prefers the configured writer and falls back to the template.
type Captioner struct {
	writer ports.CaptionWriter
	logger *slog.Logger
}

// NewCaptioner accepts a nil writer.
func NewCaptioner(writer ports.CaptionWriter, logger *slog.Logger) *Captioner {
	return &Captioner{writer: writer, logger: logger}
}

// Compose returns post copy for item; it never fails.
func (c *Captioner) Compose(ctx context.Context, item domain.ContentItem) string {
	if c == nil || c.writer == nil {
		return TemplateCaption(item)
	}
	caption, err := c.writer.Caption(ctx, item)
	if err != nil || strings.TrimSpace(caption) == "" {
		if c.logger != nil {
			c.logger.Warn("caption writer failed, using template", "item", item.ID, "error", err)
		}
		return TemplateCaption(item)
	}
	return caption
}
