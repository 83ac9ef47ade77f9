package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/warehouse-ledger/internal/domain/inventory"
	"github.com/Spok95/warehouse-ledger/internal/recorder"
	"github.com/Spok95/warehouse-ledger/internal/store"
)

const helpText = "Команды:\n" +
	"/stock КОД — остаток товара\n" +
	"/out КОД КОЛ-ВО [ДАТА] — расход (приход по политике пополнения)\n" +
	"/forecast КОД [ДНЕЙ] — прогноз расхода\n" +
	"/restocks — пополнения по категориям и месяцам\n" +
	"/report — журнал в Excel\n" +
	"/help — помощь"

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		b.send(tgbotapi.NewMessage(chatID, helpText))

	case "stock":
		if len(args) != 1 {
			b.send(tgbotapi.NewMessage(chatID, "Формат: /stock КОД"))
			return
		}
		it, err := b.items.GetItemByCode(ctx, args[0])
		if err != nil {
			b.replyErr(chatID, err)
			return
		}
		b.send(tgbotapi.NewMessage(chatID,
			fmt.Sprintf("%s (%s)\nОстаток: %d\nЦелевой остаток: %d", it.Name, it.Code, it.Stock, it.TargetStock)))

	case "out":
		if len(args) < 2 {
			b.send(tgbotapi.NewMessage(chatID, "Формат: /out КОД КОЛ-ВО [ДАТА]"))
			return
		}
		qty, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			b.send(tgbotapi.NewMessage(chatID, "Количество должно быть целым числом"))
			return
		}
		req := recorder.AutoRequest{ItemCode: args[0], QtyOut: qty}
		if len(args) > 2 {
			req.Date = args[2]
		}
		t, err := b.recorder.RecordAuto(ctx, req)
		if err != nil {
			b.replyErr(chatID, err)
			return
		}
		b.send(tgbotapi.NewMessage(chatID, txText(t)))

	case "forecast":
		if len(args) < 1 {
			b.send(tgbotapi.NewMessage(chatID, "Формат: /forecast КОД [ДНЕЙ]"))
			return
		}
		var days int
		if len(args) > 1 {
			d, err := strconv.Atoi(args[1])
			if err != nil {
				b.send(tgbotapi.NewMessage(chatID, "Число дней должно быть целым"))
				return
			}
			days = d
		}
		f, err := b.engine.Forecast(ctx, args[0], days)
		if err != nil {
			b.replyErr(chatID, err)
			return
		}
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"Прогноз по %s на %d дн.: %.1f\nСредний расход: %.2f в день (%d за %d дн.)",
			f.ItemCode, f.DaysAhead, f.ForecastQty, f.AvgOutPerDay, f.TotalOut, f.Days)))

	case "restocks":
		rows, err := b.engine.CategoryRestockFrequency(ctx)
		if err != nil {
			b.replyErr(chatID, err)
			return
		}
		if len(rows) == 0 {
			b.send(tgbotapi.NewMessage(chatID, "Пополнений не было"))
			return
		}
		var sb strings.Builder
		sb.WriteString("Пополнения по месяцам:\n")
		for _, r := range rows {
			_, _ = fmt.Fprintf(&sb, "%s:", r.Month)
			for _, name := range sortedKeys(r.Categories) {
				_, _ = fmt.Fprintf(&sb, " %s=%d", name, r.Categories[name])
			}
			sb.WriteString("\n")
		}
		b.send(tgbotapi.NewMessage(chatID, sb.String()))

	case "report":
		data, err := b.reports.Ledger(ctx, inventory.Filter{})
		if err != nil {
			b.replyErr(chatID, err)
			return
		}
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
			Name:  fmt.Sprintf("ledger_%s.xlsx", time.Now().Format("20060102_150405")),
			Bytes: data,
		})
		doc.Caption = "Журнал движений, тренд расхода и сводка по категориям."
		b.send(doc)

	default:
		b.send(tgbotapi.NewMessage(chatID, "Не знаю такую команду. Наберите /help"))
	}
}

func (b *Bot) replyErr(chatID int64, err error) {
	var ve *store.ValidationError
	switch {
	case errors.As(err, &ve):
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Ошибка в поле %s: %s", ve.Field, ve.Message)))
	case errors.Is(err, store.ErrNotFound):
		b.send(tgbotapi.NewMessage(chatID, "Не найдено"))
	case errors.Is(err, store.ErrConflict):
		b.send(tgbotapi.NewMessage(chatID, "Конфликт, повторите позже"))
	default:
		b.log.Error("bot command failed", "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Внутренняя ошибка"))
	}
}

func txText(t *inventory.Transaction) string {
	text := fmt.Sprintf("Проведено %s от %s\nОстаток: %d → %d (приход %d, расход %d)",
		t.Code, t.Date.Format(inventory.DateLayoutISO), t.StockBefore, t.StockAfter, t.QtyIn, t.QtyOut)
	if t.RestockFlag == inventory.RestockYes {
		text += fmt.Sprintf("\n⚠️ К пополнению: %d", t.RestockQty)
	}
	return text
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
