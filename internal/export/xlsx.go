package export

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/curious-learning/funnel-cli/internal/engine"
	"github.com/curious-learning/funnel-cli/internal/model"
)

// WriteFunnelXLSX writes grouped funnel rows to a workbook: one count column
// and one percent-of-LR column per stage.
func WriteFunnelXLSX(path string, rows []engine.GroupRow, steps []model.Stat) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("funnel")
	if err != nil {
		return eris.Wrap(err, "export: add funnel sheet")
	}

	header := sheet.AddRow()
	header.AddCell().SetString("group")
	for _, s := range steps {
		header.AddCell().SetString(string(s))
		header.AddCell().SetString(string(s) + " %")
	}

	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().SetString(r.Group)
		for _, s := range steps {
			row.AddCell().SetInt(r.Counts[s])
			row.AddCell().SetString(fmt.Sprintf("%.2f", r.Pct[s]))
		}
	}

	return eris.Wrap(f.Save(path), "export: save funnel workbook")
}

// WriteCostTableXLSX writes the campaign performance table to a workbook.
func WriteCostTableXLSX(path string, rows []engine.CostRow) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("campaign costs")
	if err != nil {
		return eris.Wrap(err, "export: add cost sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{
		"country", "app_language", "cost",
		"LR", "PC", "LA", "RA",
		"LRC", "PCC", "LAC", "RAC",
		"PC/LR %", "LA/LR %", "RA/LR %",
	} {
		header.AddCell().SetString(h)
	}

	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().SetString(r.Country)
		row.AddCell().SetString(r.AppLanguage)
		row.AddCell().SetString(r.Cost.StringFixed(2))
		row.AddCell().SetInt(r.LR)
		row.AddCell().SetInt(r.PC)
		row.AddCell().SetInt(r.LA)
		row.AddCell().SetInt(r.RA)
		row.AddCell().SetString(decimalCell(r.LRC))
		row.AddCell().SetString(decimalCell(r.PCC))
		row.AddCell().SetString(decimalCell(r.LAC))
		row.AddCell().SetString(decimalCell(r.RAC))
		row.AddCell().SetString(fmt.Sprintf("%.2f", r.PCOverLR))
		row.AddCell().SetString(fmt.Sprintf("%.2f", r.LAOverLR))
		row.AddCell().SetString(fmt.Sprintf("%.2f", r.RAOverLR))
	}

	return eris.Wrap(f.Save(path), "export: save cost workbook")
}

// WriteMonthlyXLSX writes per-month acquisition totals and spend.
func WriteMonthlyXLSX(path string, stat model.Stat, rows []engine.MonthRow) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("monthly")
	if err != nil {
		return eris.Wrap(err, "export: add monthly sheet")
	}

	header := sheet.AddRow()
	header.AddCell().SetString("month")
	header.AddCell().SetString(string(stat))
	header.AddCell().SetString("cost")
	header.AddCell().SetString("cost per " + string(stat))

	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().SetString(r.Month)
		row.AddCell().SetInt(r.Total)
		row.AddCell().SetString(r.Cost.StringFixed(2))
		row.AddCell().SetString(decimalCell(r.CostPer))
	}

	return eris.Wrap(f.Save(path), "export: save monthly workbook")
}
