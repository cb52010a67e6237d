package xlsxGenerator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/kr_portfolio_manager/internal/model"
	"github.com/KotFed0t/kr_portfolio_manager/utils"
	"github.com/xuri/excelize/v2"
)

const (
	sheetName      = "Portfolio"
	firstDataRow   = 3
	percentFmt     = "0.0%"
	amountFmt      = "#,##0"
	dateTimeFmt    = "yyyy-mm-dd hh:mm"
	historySpacing = 3
	headerFontSize = 11
)

type headerGroup struct {
	title   string
	from    string
	to      string
	color   string
	columns []string
}

var metricsGroups = []headerGroup{
	{title: "Holding", from: "A", to: "D", color: "#cfe2f3", columns: []string{"name", "ticker", "quantity", "target (equity)"}},
	{title: "Valuation", from: "E", to: "F", color: "#d9ead3", columns: []string{"price", "market value"}},
	{title: "Weights / NAV", from: "G", to: "J", color: "#f9cb9c", columns: []string{"inclusion", "inclusion (equity)", "target", "revised target"}},
	{title: "Drift / NAV", from: "K", to: "L", color: "#f4cccc", columns: []string{"target - target", "target - inclusion"}},
	{title: "Target", from: "M", to: "M", color: "#fff2cc", columns: []string{"target value"}},
}

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

// Generate builds a workbook with the metrics table, the totals and the trade journal.
func (g *XLSXGenerator) Generate(ctx context.Context, report model.PortfolioReport, operations []model.TradeOperation) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	if len(report.Metrics.Rows) == 0 {
		return nil, "", errors.New("empty portfolio")
	}

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err = f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, "", err
	}

	st, err := newStyles(f)
	if err != nil {
		return nil, "", err
	}

	rowNum, err := g.fillMetrics(f, report, st)
	if err != nil {
		slog.Error("got error while filling metrics", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	err = g.fillHistory(f, operations, rowNum+historySpacing, st)
	if err != nil {
		slog.Error("got error while filling history", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

type styles struct {
	percent  int
	amount   int
	dateTime int
}

func newStyles(f *excelize.File) (styles, error) {
	percentFormat, amountFormat, dateTimeFormat := percentFmt, amountFmt, dateTimeFmt

	percent, err := f.NewStyle(&excelize.Style{CustomNumFmt: &percentFormat})
	if err != nil {
		return styles{}, err
	}

	amount, err := f.NewStyle(&excelize.Style{CustomNumFmt: &amountFormat})
	if err != nil {
		return styles{}, err
	}

	dateTime, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateTimeFormat})
	if err != nil {
		return styles{}, err
	}

	return styles{percent: percent, amount: amount, dateTime: dateTime}, nil
}

func setGroupHeader(f *excelize.File, row int, group headerGroup) error {
	from, to := fmt.Sprintf("%s%d", group.from, row), fmt.Sprintf("%s%d", group.to, row)
	if from != to {
		if err := f.MergeCell(sheetName, from, to); err != nil {
			return err
		}
	}

	_ = f.SetCellStr(sheetName, from, group.title)

	styleID, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: headerFontSize,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{group.color},
		},
	})
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, from, to, styleID); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	return nil
}

func (g *XLSXGenerator) fillMetrics(f *excelize.File, report model.PortfolioReport, st styles) (lastRow int, err error) {
	col := 1
	for _, group := range metricsGroups {
		if err := setGroupHeader(f, 1, group); err != nil {
			return 0, err
		}
		for _, title := range group.columns {
			cell, _ := excelize.CoordinatesToCellName(col, 2)
			_ = f.SetCellStr(sheetName, cell, title)
			col++
		}
	}

	rowNum := firstDataRow
	for _, row := range report.Metrics.Rows {
		cell := func(column string) string { return fmt.Sprintf("%s%d", column, rowNum) }

		_ = f.SetCellStr(sheetName, cell("A"), row.Name)
		_ = f.SetCellStr(sheetName, cell("B"), row.Ticker)
		_ = f.SetCellInt(sheetName, cell("C"), row.Quantity)
		_ = f.SetCellFloat(sheetName, cell("D"), row.TargetWeightWithinEquity, -1, 64)

		_ = f.SetCellInt(sheetName, cell("E"), row.CurrentPrice)
		_ = f.SetCellInt(sheetName, cell("F"), row.MarketValue)

		_ = f.SetCellFloat(sheetName, cell("G"), row.InclusionWeightOfNav, -1, 64)
		_ = f.SetCellFloat(sheetName, cell("H"), row.InclusionWeightOfEquitySleeve, -1, 64)
		_ = f.SetCellFloat(sheetName, cell("I"), row.TargetWeightOfNav, -1, 64)
		_ = f.SetCellFloat(sheetName, cell("J"), row.RevisedTargetWeightOfNav, -1, 64)

		_ = f.SetCellFloat(sheetName, cell("K"), row.DriftTargetVsTarget, -1, 64)
		_ = f.SetCellFloat(sheetName, cell("L"), row.DriftTargetVsInclusion, -1, 64)

		_ = f.SetCellFloat(sheetName, cell("M"), row.TargetMonetaryValue, 0, 64)

		rowNum++
	}

	lastDataRow := rowNum - 1
	for _, r := range []struct {
		from, to string
		style    int
	}{
		{"D", "D", st.percent},
		{"E", "F", st.amount},
		{"G", "L", st.percent},
		{"M", "M", st.amount},
	} {
		err = f.SetCellStyle(sheetName, fmt.Sprintf("%s%d", r.from, firstDataRow), fmt.Sprintf("%s%d", r.to, lastDataRow), r.style)
		if err != nil {
			return 0, err
		}
	}

	rowNum++
	totals := []struct {
		title string
		value int64
	}{
		{"equity value", report.Metrics.TotalEquityValue},
		{"cash", report.Metrics.Cash},
		{"NAV", report.Metrics.Nav},
	}
	for _, total := range totals {
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), total.title)
		_ = f.SetCellInt(sheetName, fmt.Sprintf("B%d", rowNum), total.value)
		_ = f.SetCellStyle(sheetName, fmt.Sprintf("B%d", rowNum), fmt.Sprintf("B%d", rowNum), st.amount)
		rowNum++
	}

	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), "stock ratio")
	_ = f.SetCellFloat(sheetName, fmt.Sprintf("B%d", rowNum), report.StockRatio, -1, 64)
	_ = f.SetCellStyle(sheetName, fmt.Sprintf("B%d", rowNum), fmt.Sprintf("B%d", rowNum), st.percent)

	return rowNum, nil
}

func (g *XLSXGenerator) fillHistory(f *excelize.File, operations []model.TradeOperation, rowNum int, st styles) error {
	err := setGroupHeader(f, rowNum, headerGroup{title: "Trade history", from: "A", to: "H", color: "#cccccc"})
	if err != nil {
		return err
	}

	rowNum++
	for i, title := range []string{"type", "name", "ticker", "quantity", "unit price", "total", "cash after", "date"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, rowNum)
		_ = f.SetCellStr(sheetName, cell, title)
	}

	for _, operation := range operations {
		rowNum++
		cell := func(column string) string { return fmt.Sprintf("%s%d", column, rowNum) }

		_ = f.SetCellStr(sheetName, cell("A"), string(operation.Type))
		_ = f.SetCellStr(sheetName, cell("B"), operation.Name)
		_ = f.SetCellStr(sheetName, cell("C"), operation.Ticker)
		_ = f.SetCellInt(sheetName, cell("D"), operation.Quantity)
		_ = f.SetCellFloat(sheetName, cell("E"), operation.UnitPrice.InexactFloat64(), -1, 64)
		_ = f.SetCellFloat(sheetName, cell("F"), operation.TotalPrice.InexactFloat64(), -1, 64)
		_ = f.SetCellInt(sheetName, cell("G"), operation.CashAfter)
		_ = f.SetCellValue(sheetName, cell("H"), operation.DtCreate)

		_ = f.SetCellStyle(sheetName, cell("E"), cell("G"), st.amount)
		_ = f.SetCellStyle(sheetName, cell("H"), cell("H"), st.dateTime)
	}

	return nil
}
