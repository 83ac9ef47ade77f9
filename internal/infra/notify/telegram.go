// Package notify отправляет уведомления о необходимости пополнения.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/warehouse-ledger/internal/domain/catalog"
	"github.com/Spok95/warehouse-ledger/internal/domain/inventory"
)

// Sender: часть *tgbotapi.BotAPI, которой хватает уведомлениям.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Telegram struct {
	api    Sender
	chatID int64
	log    *slog.Logger
}

func NewTelegram(api Sender, adminChatID int64, log *slog.Logger) *Telegram {
	return &Telegram{api: api, chatID: adminChatID, log: log}
}

// Dial подключается к Bot API по токену.
func Dial(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return api, nil
}

func (t *Telegram) RestockNeeded(ctx context.Context, item catalog.Item, tx inventory.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.api.Send(tgbotapi.NewMessage(t.chatID, RestockText(item, tx))); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	t.log.Info("restock notification sent", "item_code", item.Code, "code", tx.Code)
	return nil
}

// RestockText: текст сообщения для админ-чата.
func RestockText(item catalog.Item, tx inventory.Transaction) string {
	var sb strings.Builder
	sb.WriteString("⚠️ Нужно пополнение\n")
	_, _ = fmt.Fprintf(&sb, "— %s (%s)\n", item.Name, item.Code)
	_, _ = fmt.Fprintf(&sb, "Дата: %s, транзакция %s\n", tx.Date.Format(inventory.DateLayoutISO), tx.Code)
	_, _ = fmt.Fprintf(&sb, "Остаток: %d → %d, расход %d, страховой запас %.1f\n",
		tx.StockBefore, tx.StockAfter, tx.QtyOut, tx.SafetyStock)
	_, _ = fmt.Fprintf(&sb, "Пополнить на %d (цель %d)", tx.RestockQty, tx.TargetStock)
	return sb.String()
}

// Nop ничего не отправляет: используется без telegram.token.
type Nop struct{}

func (Nop) RestockNeeded(context.Context, catalog.Item, inventory.Transaction) error { return nil }
