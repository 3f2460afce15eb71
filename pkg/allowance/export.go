package allowance

import (
	"bytes"
	"encoding/csv"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

var exportHeader = []string{"Week", "Income", "Expenses", "Withdrawn", "Balance"}

// RenderCSV writes the records as a table, one row per week in the given order.
func RenderCSV(records []WeeklyRecord) (string, error) {
	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	if err := writer.Write(exportHeader); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return "", err
	}
	for _, r := range records {
		row := []string{
			r.WeekId,
			r.Income.StringFixed(2),
			r.Expenses.StringFixed(2),
			r.Withdrawn.StringFixed(2),
			r.RunningBalance.StringFixed(2),
		}
		if err := writer.Write(row); err != nil {
			log.Errorf("Error writing to csv: %v", err)
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return "", err
	}
	return b.String(), nil
}

const historySheet = "History"

// RenderXLSX builds a workbook with the records table and a line chart of the running
// balance per week.
func RenderXLSX(records []WeeklyRecord) ([]byte, error) {
	xlsx := excelize.NewFile()
	defer xlsx.Close()

	if err := xlsx.SetAppProps(&excelize.AppProperties{Application: "moni"}); err != nil {
		log.Errorf("Error setting workbook properties: %v", err)
		return nil, err
	}

	sheet := xlsx.GetSheetName(xlsx.GetActiveSheetIndex())
	if err := xlsx.SetSheetName(sheet, historySheet); err != nil {
		return nil, err
	}

	header := make([]any, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := xlsx.SetSheetRow(historySheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{
			r.WeekId,
			r.Income.InexactFloat64(),
			r.Expenses.InexactFloat64(),
			r.Withdrawn.InexactFloat64(),
			r.RunningBalance.InexactFloat64(),
		}
		if err := xlsx.SetSheetRow(historySheet, cell, &row); err != nil {
			return nil, err
		}
	}

	if err := styleHistory(xlsx, len(records)); err != nil {
		log.Errorf("Error styling history sheet: %v", err)
		return nil, err
	}

	if len(records) > 0 {
		last := len(records) + 1
		err := xlsx.AddChart(historySheet, "G2", &excelize.Chart{
			Type: excelize.Line,
			Series: []excelize.ChartSeries{
				{
					Name:       fmt.Sprintf("%s!$E$1", historySheet),
					Categories: fmt.Sprintf("%s!$A$2:$A$%d", historySheet, last),
					Values:     fmt.Sprintf("%s!$E$2:$E$%d", historySheet, last),
				},
			},
			Legend: excelize.ChartLegend{Position: "bottom"},
		})
		if err != nil {
			log.Errorf("Error adding balance chart: %v", err)
			return nil, err
		}
	}

	buf, err := xlsx.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// styleHistory bolds the header, formats the amount columns with two decimals and widens
// the week column.
func styleHistory(xlsx *excelize.File, rows int) error {
	bold, err := xlsx.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := xlsx.SetCellStyle(historySheet, "A1", "E1", bold); err != nil {
		return err
	}
	if rows > 0 {
		numFmt, err := xlsx.NewStyle(&excelize.Style{NumFmt: 2})
		if err != nil {
			return err
		}
		if err := xlsx.SetCellStyle(historySheet, "B2", fmt.Sprintf("E%d", rows+1), numFmt); err != nil {
			return err
		}
	}
	return xlsx.SetColWidth(historySheet, "A", "A", 16)
}
