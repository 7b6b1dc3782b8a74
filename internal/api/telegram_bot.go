// Package api provides handlers for external APIs and interfaces
package api

import (
	"context"
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/abelzeko/ecms-bot/internal/entities"
	"github.com/abelzeko/ecms-bot/internal/heuristics"
	"github.com/abelzeko/ecms-bot/internal/integration"
	"github.com/abelzeko/ecms-bot/internal/usecases"
)

const requestTimeout = time.Minute

// TelegramBot handles interactions with the Telegram API
type TelegramBot struct {
	bot     *tgbotapi.BotAPI
	useCase *usecases.MonitoringUseCase
	fetcher *integration.ImageFetcher
}

// NewTelegramBot creates a new Telegram bot handler
func NewTelegramBot(botToken string, useCase *usecases.MonitoringUseCase, fetcher *integration.ImageFetcher) (*TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create bot")
	}

	return &TelegramBot{
		bot:     bot,
		useCase: useCase,
		fetcher: fetcher,
	}, nil
}

// Start begins listening for and handling Telegram messages until ctx is done
func (t *TelegramBot) Start(ctx context.Context) {
	zap.L().Info("authorized on Telegram", zap.String("account", t.bot.Self.UserName))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := t.bot.GetUpdatesChan(u)
	zap.L().Info("bot is now listening for messages")

	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}

			zap.L().Info("received message",
				zap.String("user", update.Message.From.UserName),
				zap.Int64("user_id", update.Message.From.ID),
				zap.String("text", update.Message.Text),
			)

			t.handleMessage(ctx, update)
		}
	}
}

// Notifier returns a digest notifier that posts into chatID
func (t *TelegramBot) Notifier(chatID int64) usecases.Notifier {
	return &chatNotifier{bot: t.bot, chatID: chatID}
}

type chatNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func (n *chatNotifier) Notify(text string) error {
	_, err := n.bot.Send(tgbotapi.NewMessage(n.chatID, text))
	return err
}

// handleMessage processes a Telegram message update
func (t *TelegramBot) handleMessage(ctx context.Context, update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	message := update.Message
	msg := tgbotapi.NewMessage(message.Chat.ID, "")

	switch routeMessage(message) {
	case routeImage:
		t.handleImage(ctx, message, &msg)
	case routeCommand:
		t.handleCommand(ctx, message, &msg)
	default:
		t.handleNonCommand(ctx, message, &msg)
	}

	zap.L().Debug("sending response", zap.String("user", message.From.UserName))
	if _, err := t.bot.Send(msg); err != nil {
		zap.L().Error("error sending message", zap.Error(err))
	}
}

type messageRoute int

const (
	routeText messageRoute = iota
	routeCommand
	routeImage
)

// routeMessage decides which handler a message goes to. Images take
// precedence over commands.
func routeMessage(message *tgbotapi.Message) messageRoute {
	switch {
	case len(message.Photo) > 0 || isImageDocument(message.Document):
		return routeImage
	case message.IsCommand():
		return routeCommand
	default:
		return routeText
	}
}

func isImageDocument(doc *tgbotapi.Document) bool {
	return doc != nil && strings.HasPrefix(doc.MimeType, "image/")
}

// handleCommand processes commands like /start, /help, etc.
func (t *TelegramBot) handleCommand(ctx context.Context, message *tgbotapi.Message, msg *tgbotapi.MessageConfig) {
	args := strings.TrimSpace(message.CommandArguments())
	zap.L().Info("handling command",
		zap.String("command", message.Command()),
		zap.String("args", args),
		zap.String("user", message.From.UserName),
	)

	switch message.Command() {
	case "start":
		msg.Text = "Welcome to the ECMS monitoring bot! Send a photo of waste to classify it, or use /help to see how to report drainage, chemical and forest observations."

	case "help":
		msg.Text = helpText

	case "dashboard":
		counts, err := t.useCase.Counts(ctx)
		if err != nil {
			msg.Text = "Error fetching dashboard. Please try again later."
			zap.L().Error("error fetching counts", zap.Error(err))
			return
		}
		msg.Text = usecases.FormatCounts(counts)

	case "drainage":
		t.handleDrainageCommand(ctx, args, msg)

	case "chemical":
		t.handleChemicalCommand(ctx, args, msg)

	case "forest":
		t.handleForestCommand(ctx, args, msg)

	case "records":
		t.handleRecordsCommand(ctx, args, msg)

	default:
		msg.Text = "Unknown command. Use /help to see available commands."
	}
}

const helpText = "Available commands:\n" +
	"/start - Start the bot\n" +
	"/dashboard - Show record counts\n" +
	"/drainage <location>; <normal|slow|blocked|stagnant>; <population per km²> - Report a drain\n" +
	"/chemical <name>; <pH> - Evaluate a chemical\n" +
	"/forest <NDVI> - Record a vegetation index\n" +
	"/records <waste|drainage|chemical|forest> - List stored records\n" +
	"/help - Show this help message\n\n" +
	"Send a photo to classify waste."

func (t *TelegramBot) handleDrainageCommand(ctx context.Context, args string, msg *tgbotapi.MessageConfig) {
	in, err := ParseDrainageArgs(args)
	if err != nil {
		msg.Text = "Invalid input: " + err.Error() + "\nExample: /drainage 6.5244,3.3792; blocked; 2500"
		return
	}

	sub, err := t.useCase.SubmitDrainage(ctx, in)
	if err != nil {
		msg.Text = "Error saving drainage record. Please try again later."
		return
	}
	msg.Text = usecases.FormatDrainageSubmission(sub)
}

func (t *TelegramBot) handleChemicalCommand(ctx context.Context, args string, msg *tgbotapi.MessageConfig) {
	name, ph, err := ParseChemicalArgs(args)
	if err != nil {
		msg.Text = "Invalid input: " + err.Error() + "\nExample: /chemical Sulfuric acid; 1.5"
		return
	}

	obs, err := t.useCase.SubmitChemical(ctx, name, ph)
	if err != nil {
		msg.Text = "Error saving chemical record. Please try again later."
		return
	}
	msg.Text = usecases.FormatChemicalSubmission(obs)
}

func (t *TelegramBot) handleForestCommand(ctx context.Context, args string, msg *tgbotapi.MessageConfig) {
	ndvi, err := ParseForestArgs(args)
	if err != nil {
		msg.Text = "Invalid input: " + err.Error() + "\nExample: /forest 0.42"
		return
	}

	obs, err := t.useCase.SubmitForest(ctx, ndvi)
	if err != nil {
		msg.Text = "Error saving forest record. Please try again later."
		return
	}
	msg.Text = usecases.FormatForestSubmission(obs)
}

func (t *TelegramBot) handleRecordsCommand(ctx context.Context, args string, msg *tgbotapi.MessageConfig) {
	kind, ok := entities.ParseRecordKind(strings.ToLower(args))
	if !ok {
		msg.Text = "Please specify a record kind. Example: /records drainage"
		return
	}

	records, err := t.useCase.Records(ctx, kind)
	if err != nil {
		msg.Text = "Error fetching records. Please try again later."
		zap.L().Error("error fetching records", zap.String("kind", string(kind)), zap.Error(err))
		return
	}
	msg.Text = truncate(usecases.FormatRecords(kind, records), maxMessageLength)
}

// handleImage downloads the largest photo size and classifies it
func (t *TelegramBot) handleImage(ctx context.Context, message *tgbotapi.Message, msg *tgbotapi.MessageConfig) {
	fileID, name := imageFile(message)

	url, err := t.bot.GetFileDirectURL(fileID)
	if err != nil {
		msg.Text = "Could not download the image. Please try again."
		zap.L().Error("error resolving file url", zap.Error(err))
		return
	}

	data, err := t.fetcher.FetchImage(url)
	if err != nil {
		msg.Text = "Could not download the image. Please try again."
		zap.L().Error("error downloading image", zap.Error(err))
		return
	}

	sub, err := t.useCase.SubmitWaste(ctx, name, data)
	if err != nil {
		msg.Text = wasteErrorReply(err)
		return
	}
	msg.Text = usecases.FormatWasteSubmission(sub)
}

// wasteErrorReply tells an unreadable upload apart from a storage failure
func wasteErrorReply(err error) string {
	var decodeErr *heuristics.DecodeError
	if errors.As(err, &decodeErr) {
		return "That file doesn't look like an image I can read. Please send a PNG or JPEG."
	}
	zap.L().Error("error saving waste record", zap.Error(err))
	return "Error saving waste record. Please try again later."
}

// imageFile picks the file to download and a name to store it under
func imageFile(message *tgbotapi.Message) (fileID, name string) {
	if len(message.Photo) > 0 {
		largest := message.Photo[len(message.Photo)-1]
		return largest.FileID, largest.FileUniqueID + ".jpg"
	}
	return message.Document.FileID, message.Document.FileName
}

// handleNonCommand processes regular messages
func (t *TelegramBot) handleNonCommand(ctx context.Context, message *tgbotapi.Message, msg *tgbotapi.MessageConfig) {
	reply, err := t.useCase.HandleNaturalLanguageQuery(ctx, message.Text)
	if err != nil {
		msg.Text = "Error saving your report. Please try again later."
		zap.L().Error("error handling free text", zap.Error(err))
		return
	}
	msg.Text = reply
}
