// Package telegram delivers fetched media to Telegram chats and runs the
// command bot that feeds the pipeline.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"mime"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/iconidentify/mediagrab/internal/domain"
)

// MaxMediaGroupSize is the most items Telegram accepts in one album.
const MaxMediaGroupSize = 10

// Sender is the subset of *tgbotapi.BotAPI used for outgoing messages.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	SendMediaGroup(config tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Deliverer sends DeliveryPackages to chats.
type Deliverer struct {
	sender    Sender
	groupSize int
	logger    *slog.Logger
}

// NewDeliverer creates a deliverer. groupSize is clamped to 2..10.
func NewDeliverer(sender Sender, groupSize int, logger *slog.Logger) *Deliverer {
	if groupSize < 2 || groupSize > MaxMediaGroupSize {
		groupSize = MaxMediaGroupSize
	}
	return &Deliverer{sender: sender, groupSize: groupSize, logger: logger}
}

// Deliver sends pkg to chatID as a reply to replyTo (0 for none). Single
// items go out as one video or photo; galleries go out as albums with the
// caption on the first item. A note follows when items were dropped.
// Buffers are released once sent, whatever the outcome.
func (d *Deliverer) Deliver(ctx context.Context, chatID int64, replyTo int, pkg *domain.DeliveryPackage) error {
	defer pkg.Release()

	if len(pkg.Media) == 0 {
		return fmt.Errorf("deliver: %w", domain.ErrNoMediaFound)
	}

	if len(pkg.Media) == 1 {
		if err := d.sendSingle(chatID, replyTo, &pkg.Media[0], pkg.Caption); err != nil {
			return err
		}
	} else {
		for start := 0; start < len(pkg.Media); start += d.groupSize {
			if err := ctx.Err(); err != nil {
				return err
			}
			end := min(start+d.groupSize, len(pkg.Media))
			caption := ""
			if start == 0 {
				caption = pkg.Caption
			}
			if err := d.sendBatch(chatID, replyTo, pkg.Media[start:end], caption); err != nil {
				return err
			}
		}
	}

	if len(pkg.Dropped) > 0 {
		note := tgbotapi.NewMessage(chatID, fmt.Sprintf("⚠️ %d item(s) could not be downloaded and were skipped.", len(pkg.Dropped)))
		note.ReplyToMessageID = replyTo
		if _, err := d.sender.Send(note); err != nil {
			d.logger.Warn("failed to send dropped-items note", "chat_id", chatID, "error", err)
		}
	}

	d.logger.Info("delivered media",
		"chat_id", chatID,
		"items", len(pkg.Media),
		"dropped", len(pkg.Dropped),
		"bytes", pkg.TotalBytes(),
	)
	return nil
}

// Reply sends a plain text message.
func (d *Deliverer) Reply(chatID int64, replyTo int, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo
	msg.DisableWebPagePreview = true
	_, err := d.sender.Send(msg)
	return err
}

// Action shows a chat action such as "uploading video".
func (d *Deliverer) Action(chatID int64, action string) {
	if _, err := d.sender.Request(tgbotapi.NewChatAction(chatID, action)); err != nil {
		d.logger.Debug("chat action failed", "chat_id", chatID, "error", err)
	}
}

func (d *Deliverer) sendSingle(chatID int64, replyTo int, m *domain.FetchedMedia, caption string) error {
	file := fileBytes(m)

	var c tgbotapi.Chattable
	if m.ContentKind == domain.MediaKindVideo {
		v := tgbotapi.NewVideo(chatID, file)
		v.Caption = caption
		v.SupportsStreaming = true
		v.ReplyToMessageID = replyTo
		c = v
	} else {
		p := tgbotapi.NewPhoto(chatID, file)
		p.Caption = caption
		p.ReplyToMessageID = replyTo
		c = p
	}

	if _, err := d.sender.Send(c); err != nil {
		return fmt.Errorf("send %s: %w", m.ContentKind, err)
	}
	return nil
}

// sendBatch sends up to groupSize items as one album. Telegram rejects
// single-item albums, so a lone trailing item is sent on its own.
func (d *Deliverer) sendBatch(chatID int64, replyTo int, batch []domain.FetchedMedia, caption string) error {
	if len(batch) == 1 {
		return d.sendSingle(chatID, replyTo, &batch[0], caption)
	}

	files := make([]interface{}, 0, len(batch))
	for i := range batch {
		file := fileBytes(&batch[i])
		if batch[i].ContentKind == domain.MediaKindVideo {
			v := tgbotapi.NewInputMediaVideo(file)
			v.SupportsStreaming = true
			if i == 0 {
				v.Caption = caption
			}
			files = append(files, v)
		} else {
			p := tgbotapi.NewInputMediaPhoto(file)
			if i == 0 {
				p.Caption = caption
			}
			files = append(files, p)
		}
	}

	group := tgbotapi.NewMediaGroup(chatID, files)
	group.ReplyToMessageID = replyTo
	if _, err := d.sender.SendMediaGroup(group); err != nil {
		return fmt.Errorf("send media group: %w", err)
	}
	return nil
}

func fileBytes(m *domain.FetchedMedia) tgbotapi.FileBytes {
	return tgbotapi.FileBytes{
		Name:  fmt.Sprintf("media_%d%s", m.Index+1, extension(m)),
		Bytes: m.Data,
	}
}

func extension(m *domain.FetchedMedia) string {
	mediaType, _, _ := mime.ParseMediaType(m.ContentType)
	switch mediaType {
	case "video/mp4":
		return ".mp4"
	case "video/quicktime":
		return ".mov"
	case "video/webm":
		return ".webm"
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	}
	if m.ContentKind == domain.MediaKindVideo {
		return ".mp4"
	}
	return ".jpg"
}
