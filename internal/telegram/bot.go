package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/iconidentify/mediagrab/internal/config"
	"github.com/iconidentify/mediagrab/internal/domain"
	"github.com/iconidentify/mediagrab/internal/repository"
	"github.com/iconidentify/mediagrab/internal/worker"
)

// Processor runs the media pipeline for one user input.
type Processor interface {
	Classify(raw string) (domain.MediaRequest, error)
	Process(ctx context.Context, raw string) (*domain.DeliveryPackage, error)
}

// Submitter queues pipeline runs.
type Submitter interface {
	Submit(task worker.Task) error
}

const helpText = `Send me a link and I'll send back the media.

/tt <link> - TikTok video or photo post
/ig <link> - Instagram post or carousel
/x <link> - X (Twitter) post

You can also just paste a link.`

// Bot polls Telegram for messages and runs download commands through the pool.
type Bot struct {
	api       *tgbotapi.BotAPI
	deliverer *Deliverer
	processor Processor
	users     repository.UserRepository
	pool      Submitter
	cfg       config.TelegramConfig
	logger    *slog.Logger
}

// NewBot connects to the Bot API with the configured token.
func NewBot(
	cfg config.TelegramConfig,
	processor Processor,
	users repository.UserRepository,
	pool Submitter,
	logger *slog.Logger,
) (*Bot, error) {
	client := &http.Client{Timeout: cfg.RequestTimeout}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	api.Debug = cfg.Debug

	logger.Info("telegram bot authorized", "username", api.Self.UserName)

	return &Bot{
		api:       api,
		deliverer: NewDeliverer(api, cfg.MaxGroupSize, logger),
		processor: processor,
		users:     users,
		pool:      pool,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Run long-polls for updates until ctx is canceled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.PollTimeout
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("telegram bot polling", "timeout", u.Timeout)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("telegram bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return errors.New("telegram updates channel closed")
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// command is a parsed user message.
type command struct {
	name string
	arg  string
	// site is set for commands bound to one platform.
	site domain.Site
}

// parseCommand maps a message to a command. Plain text containing a link is
// treated as a download request for any site.
func parseCommand(msg *tgbotapi.Message) (command, bool) {
	if msg.IsCommand() {
		cmd := command{name: strings.ToLower(msg.Command()), arg: strings.TrimSpace(msg.CommandArguments())}
		switch cmd.name {
		case "start", "help":
		case "tt", "tiktok":
			cmd.name, cmd.site = "download", domain.SiteTikTok
		case "ig", "instagram":
			cmd.name, cmd.site = "download", domain.SiteInstagram
		case "x", "twitter":
			cmd.name, cmd.site = "download", domain.SiteX
		default:
			return command{}, false
		}
		return cmd, true
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" || !strings.Contains(text, "http") {
		return command{}, false
	}
	return command{name: "download", arg: text}, true
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	cmd, ok := parseCommand(msg)
	if !ok {
		return
	}

	chatID := msg.Chat.ID
	logger := b.logger.With("chat_id", chatID, "command", cmd.name)
	b.registerUser(ctx, msg.From, logger)

	switch cmd.name {
	case "start":
		b.reply(chatID, msg.MessageID, "👋 Welcome!\n\n"+helpText, logger)
	case "help":
		b.reply(chatID, msg.MessageID, helpText, logger)
	case "download":
		b.handleDownload(chatID, msg.MessageID, cmd, logger)
	}
}

func (b *Bot) handleDownload(chatID int64, messageID int, cmd command, logger *slog.Logger) {
	if cmd.arg == "" {
		b.reply(chatID, messageID, "Please include a link, e.g. /tt https://www.tiktok.com/@user/video/123", logger)
		return
	}

	req, err := b.processor.Classify(cmd.arg)
	if err != nil {
		b.reply(chatID, messageID, domain.UserMessage(err), logger)
		return
	}
	if cmd.site != "" && req.Site != cmd.site {
		b.reply(chatID, messageID, fmt.Sprintf("That isn't a %s link.", siteName(cmd.site)), logger)
		return
	}

	raw := cmd.arg
	err = b.pool.Submit(worker.Task{
		Name:    "deliver " + string(req.Site),
		Timeout: b.cfg.RequestTimeout,
		Run: func(ctx context.Context) error {
			return b.process(ctx, chatID, messageID, raw, req)
		},
	})
	if err != nil {
		logger.Warn("could not queue download", "error", err)
		b.reply(chatID, messageID, "I'm busy right now. Please try again in a minute.", logger)
	}
}

func (b *Bot) process(ctx context.Context, chatID int64, messageID int, raw string, req domain.MediaRequest) error {
	action := tgbotapi.ChatUploadPhoto
	if req.Platform == domain.PlatformShortVideo {
		action = tgbotapi.ChatUploadVideo
	}
	b.deliverer.Action(chatID, action)

	pkg, err := b.processor.Process(ctx, raw)
	if err != nil {
		if replyErr := b.deliverer.Reply(chatID, messageID, "❌ "+domain.UserMessage(err)); replyErr != nil {
			b.logger.Warn("failed to send error reply", "chat_id", chatID, "error", replyErr)
		}
		return err
	}

	if err := b.deliverer.Deliver(ctx, chatID, messageID, pkg); err != nil {
		if replyErr := b.deliverer.Reply(chatID, messageID, "❌ Could not send the media. Please try again later."); replyErr != nil {
			b.logger.Warn("failed to send error reply", "chat_id", chatID, "error", replyErr)
		}
		return err
	}
	return nil
}

func (b *Bot) registerUser(ctx context.Context, from *tgbotapi.User, logger *slog.Logger) {
	if from == nil || b.users == nil {
		return
	}
	created, err := b.users.Register(ctx, &domain.User{
		TelegramID: from.ID,
		Username:   from.UserName,
		FirstName:  from.FirstName,
	})
	if err != nil {
		logger.Warn("failed to register user", "user_id", from.ID, "error", err)
		return
	}
	if created {
		logger.Info("new user registered", "user_id", from.ID, "username", from.UserName)
	}
}

func (b *Bot) reply(chatID int64, replyTo int, text string, logger *slog.Logger) {
	if err := b.deliverer.Reply(chatID, replyTo, text); err != nil {
		logger.Warn("failed to reply", "error", err)
	}
}

func siteName(site domain.Site) string {
	switch site {
	case domain.SiteTikTok:
		return "TikTok"
	case domain.SiteInstagram:
		return "Instagram"
	case domain.SiteX:
		return "X"
	default:
		return string(site)
	}
}
