// Package bot реализует Telegram-бота админ-чата: остатки, расход, прогноз и выгрузка журнала.
package bot

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/warehouse-ledger/internal/analytics"
	"github.com/Spok95/warehouse-ledger/internal/recorder"
	"github.com/Spok95/warehouse-ledger/internal/report"
	"github.com/Spok95/warehouse-ledger/internal/store"
)

// API: часть *tgbotapi.BotAPI, которой пользуется бот.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
}

type Bot struct {
	api       API
	log       *slog.Logger
	adminChat int64
	items     store.Items
	recorder  *recorder.Recorder
	engine    *analytics.Engine
	reports   *report.Builder
}

func New(api API, log *slog.Logger, adminChatID int64,
	items store.Items, rec *recorder.Recorder,
	engine *analytics.Engine, reports *report.Builder) *Bot {

	return &Bot{
		api: api, log: log, adminChat: adminChatID,
		items: items, recorder: rec, engine: engine, reports: reports,
	}
}

func (b *Bot) Run(ctx context.Context, timeoutSec int) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSec
	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if upd.Message != nil {
				b.onMessage(ctx, upd.Message)
			}
		}
	}
}

func (b *Bot) onMessage(ctx context.Context, msg *tgbotapi.Message) {
	// бот отвечает только админ-чату
	if msg.Chat == nil || msg.Chat.ID != b.adminChat {
		return
	}
	if !msg.IsCommand() {
		b.send(tgbotapi.NewMessage(msg.Chat.ID, "Наберите /help"))
		return
	}
	b.handleCommand(ctx, msg)
}

func (b *Bot) send(msg tgbotapi.Chattable) {
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send failed", "err", err)
	}
}
