package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ternarybob/marketlens/internal/models"
)

const overviewSheet = "摘要"

// Workbook writes one sheet per report section
func Workbook(report *models.AnalysisReport) ([]byte, error) {
	r := report.Result

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", overviewSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	overview := [][]interface{}{
		{"标题", r.Title},
		{headingSummary, r.Summary},
		{headingCompetitors, r.CompetitorAnalysis},
		{"分析类型", string(report.Variant)},
		{"模型", report.Model},
		{footerLabel, report.GeneratedAt.Format(time.DateTime)},
		{"来源文件", strings.Join(report.SourceFiles, ", ")},
	}
	if err := writeSheet(f, overviewSheet, nil, overview); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(overviewSheet, "A", "A", 16)
	_ = f.SetColWidth(overviewSheet, "B", "B", 100)

	lists := []struct {
		name  string
		items []string
	}{
		{headingInsights, r.KeyInsights},
		{headingRecommend, r.Recommendations},
		{headingTrends, r.Trends},
	}
	for _, list := range lists {
		rows := make([][]interface{}, 0, len(list.items))
		for i, item := range list.items {
			rows = append(rows, []interface{}{i + 1, item})
		}
		if err := writeSheet(f, list.name, []string{"#", list.name}, rows); err != nil {
			return nil, err
		}
		_ = f.SetColWidth(list.name, "B", "B", 100)
	}

	if report.Variant == models.VariantEnergy {
		events := make([][]interface{}, 0, len(r.GeopoliticalEvents))
		for _, e := range r.GeopoliticalEvents {
			events = append(events, []interface{}{e.Event, e.Region, e.Impact, string(e.RiskLevel)})
		}
		if err := writeSheet(f, headingEvents, []string{"事件", "地区", "影响", "风险等级"}, events); err != nil {
			return nil, err
		}
		_ = f.SetColWidth(headingEvents, "A", "C", 36)

		prices := make([][]interface{}, 0, len(r.PriceTable))
		for _, p := range r.PriceTable {
			prices = append(prices, []interface{}{p.Product, p.Price, p.Unit, p.Change, p.Outlook})
		}
		if err := writeSheet(f, headingPrices, []string{"产品", "价格", "单位", "变化", "展望"}, prices); err != nil {
			return nil, err
		}
		_ = f.SetColWidth(headingPrices, "A", "A", 24)
		_ = f.SetColWidth(headingPrices, "E", "E", 48)
	}

	if report.Variant == models.VariantCustomer {
		strategies := make([][]interface{}, 0, len(r.CustomerStrategies))
		for _, c := range r.CustomerStrategies {
			strategies = append(strategies, []interface{}{c.Name, c.Strategy, c.Opportunity})
		}
		if err := writeSheet(f, headingCustomers, []string{"客户", "策略", "机会"}, strategies); err != nil {
			return nil, err
		}
		_ = f.SetColWidth(headingCustomers, "A", "A", 24)
		_ = f.SetColWidth(headingCustomers, "B", "C", 60)
	}

	f.SetActiveSheet(0)
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// writeSheet creates the sheet if needed, then writes an optional bold
// header row followed by the rows
func writeSheet(f *excelize.File, sheet string, header []string, rows [][]interface{}) error {
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
	}

	row := 1
	if len(header) > 0 {
		values := make([]interface{}, len(header))
		for i, h := range header {
			values[i] = h
		}
		if err := f.SetSheetRow(sheet, "A1", &values); err != nil {
			return fmt.Errorf("write header %s: %w", sheet, err)
		}
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err == nil {
			end, _ := excelize.CoordinatesToCellName(len(header), 1)
			_ = f.SetCellStyle(sheet, "A1", end, style)
		}
		row++
	}

	for _, values := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %s: %w", sheet, err)
		}
		row++
	}
	return nil
}
