package reports

import (
	"fmt"
	"io"

	"bitbucket.org/mmdatafocus/pos_backend/workflow"
	"github.com/xuri/excelize/v2"
)

// ExcelContentType is the response content type for xlsx downloads.
const ExcelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WriteFinanceSummaryExcel renders a finance summary as a workbook with one
// sheet per section and streams it to w.
func WriteFinanceSummaryExcel(summary *workflow.FinanceSummary, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Summary"
	f.SetSheetName("Sheet1", sheet)

	f.SetCellValue(sheet, "A1", "From")
	f.SetCellValue(sheet, "B1", summary.StartDate)
	f.SetCellValue(sheet, "A2", "To")
	f.SetCellValue(sheet, "B2", summary.EndDate)
	f.SetCellValue(sheet, "A3", "Income")
	f.SetCellValue(sheet, "B3", summary.TotalIncome.InexactFloat64())
	f.SetCellValue(sheet, "A4", "Expense")
	f.SetCellValue(sheet, "B4", summary.TotalExpense.InexactFloat64())
	f.SetCellValue(sheet, "A5", "Net Profit")
	f.SetCellValue(sheet, "B5", summary.NetProfit.InexactFloat64())
	f.SetCellValue(sheet, "A6", "Net Margin %")
	f.SetCellValue(sheet, "B6", summary.NetMargin.InexactFloat64())
	f.SetCellValue(sheet, "A7", "Advisory")
	f.SetCellValue(sheet, "B7", summary.AdvisoryText)

	periods := "Periods"
	if _, err := f.NewSheet(periods); err != nil {
		return err
	}
	f.SetCellValue(periods, "A1", "Period")
	f.SetCellValue(periods, "B1", "Income")
	f.SetCellValue(periods, "C1", "Expense")
	f.SetCellValue(periods, "D1", "Profit")
	for i, p := range summary.Periods {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(periods, "A"+row, p.Key)
		f.SetCellValue(periods, "B"+row, p.Income.InexactFloat64())
		f.SetCellValue(periods, "C"+row, p.Expense.InexactFloat64())
		f.SetCellValue(periods, "D"+row, p.Profit.InexactFloat64())
	}

	expenses := "Expenses"
	if _, err := f.NewSheet(expenses); err != nil {
		return err
	}
	f.SetCellValue(expenses, "A1", "Category")
	f.SetCellValue(expenses, "B1", "Amount")
	f.SetCellValue(expenses, "C1", "Entries")
	for i, c := range summary.ExpenseByCategory {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(expenses, "A"+row, string(c.Category))
		f.SetCellValue(expenses, "B"+row, c.Amount.InexactFloat64())
		f.SetCellValue(expenses, "C"+row, c.Count)
	}

	channels := "Channels"
	if _, err := f.NewSheet(channels); err != nil {
		return err
	}
	f.SetCellValue(channels, "A1", "Channel")
	f.SetCellValue(channels, "B1", "Income")
	f.SetCellValue(channels, "C1", "Entries")
	for i, c := range summary.IncomeByChannel {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(channels, "A"+row, c.Channel)
		f.SetCellValue(channels, "B"+row, c.Amount.InexactFloat64())
		f.SetCellValue(channels, "C"+row, c.Count)
	}

	return f.Write(w)
}

// FinanceExportFilename builds the download name for a summary export.
func FinanceExportFilename(summary *workflow.FinanceSummary) string {
	return "finance_" + summary.StartDate + "_" + summary.EndDate + ".xlsx"
}
