package telebotConverter

import (
	"fmt"
	"strings"

	"github.com/KotFed0t/kr_portfolio_manager/internal/metricsEngine"
	"github.com/KotFed0t/kr_portfolio_manager/internal/model"
	"github.com/KotFed0t/kr_portfolio_manager/internal/model/tg/tgCallback"
	"github.com/Rhymond/go-money"
	tele "gopkg.in/telebot.v4"
)

func won(amount int64) string {
	return money.New(amount, money.KRW).Display()
}

func PortfolioResponse(report model.PortfolioReport) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	var sb strings.Builder

	sb.WriteString("📊 Portfolio\n")
	sb.WriteString(fmt.Sprintf("💰 NAV: %s\n", won(report.Metrics.Nav)))
	sb.WriteString(fmt.Sprintf(" - equity: %s\n", won(report.Metrics.TotalEquityValue)))
	sb.WriteString(fmt.Sprintf(" - cash: %s\n", won(report.Metrics.Cash)))
	sb.WriteString(fmt.Sprintf(" - stock ratio: %s\n\n", metricsEngine.FormatPercent(report.StockRatio)))

	for i, row := range report.View.Rows {
		sb.WriteString(fmt.Sprintf("%d. %s (%s)\n", i+1, row.Name, row.Ticker))
		sb.WriteString(fmt.Sprintf("   ▸ quantity: %d\n", row.Quantity))
		sb.WriteString(fmt.Sprintf("   ▸ price: %s  value: %s\n", row.CurrentPrice, row.MarketValue))
		sb.WriteString(fmt.Sprintf("   ▸ weight: %s  target: %s\n", row.InclusionWeightOfNav, row.TargetWeightOfNav))
		sb.WriteString(fmt.Sprintf("   ▸ drift: %s  target value: %s\n\n", row.DriftTargetVsInclusion, row.TargetMonetaryValue))
	}

	markup.Inline(
		markup.Row(
			markup.Data("🟢 Buy", tgCallback.TradeBuy),
			markup.Data("🔴 Sell", tgCallback.TradeSell),
		),
		markup.Row(markup.Data("🔄 Refresh prices", tgCallback.RefreshPrice)),
	)

	return sb.String(), markup
}

func TradeTypeResponse() (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	markup.Inline(
		markup.Row(
			markup.Data("🟢 Buy", tgCallback.TradeBuy),
			markup.Data("🔴 Sell", tgCallback.TradeSell),
		),
		markup.Row(markup.Data("Cancel", tgCallback.TradeCancel)),
	)
	return "Choose trade type:", markup
}

func StockRatioResponse(options []string, current float64) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	currentText := metricsEngine.FormatPercent(current)

	btns := make([]tele.Btn, 0, len(options))
	for _, option := range options {
		label := option
		if metricsEngine.FormatPercent(mustParse(option)) == currentText {
			label = "✅ " + option
		}
		btns = append(btns, markup.Data(label, tgCallback.StockRatio, option))
	}

	markup.Inline(markup.Split(3, btns)...)

	return fmt.Sprintf("Stock ratio: %s\nChoose a new one:", currentText), markup
}

func TradeResultResponse(operation model.TradeOperation) string {
	return fmt.Sprintf(
		"✅ %s %s (%s): %d × %s = %s\n💰 cash: %s",
		operation.Type,
		operation.Name,
		operation.Ticker,
		operation.Quantity,
		won(operation.UnitPrice.IntPart()),
		won(operation.TotalPrice.IntPart()),
		won(operation.CashAfter),
	)
}

func mustParse(option string) float64 {
	v, _ := metricsEngine.ParsePercent(option)
	return v
}
