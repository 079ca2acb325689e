package payroll

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	cryptoutil "hrms/internal/platform/crypto"
)

// PayslipFiles renders payslip PDFs and keeps them under Dir, sealed with
// Crypto when a data key is configured.
type PayslipFiles struct {
	Dir    string
	Crypto *cryptoutil.Service
}

func NewPayslipFiles(storageDir string, crypto *cryptoutil.Service) *PayslipFiles {
	return &PayslipFiles{Dir: filepath.Join(storageDir, "payslips"), Crypto: crypto}
}

func RenderPayslip(slip Slip) ([]byte, error) {
	period := time.Date(slip.Year, time.Month(slip.Month), 1, 0, 0, 0, 0, time.UTC)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s (%s)", slip.EmployeeName, slip.EmployeeCode))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s", period.Format("January 2006")))
	pdf.Ln(10)

	line := func(label string, amount float64) {
		pdf.CellFormat(90, 8, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(60, 8, fmt.Sprintf("%.2f %s", amount, slip.Currency), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Earnings")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 12)
	line("Base", slip.Base)
	line("Allowances", slip.Allowances)
	if slip.Bonus > 0 {
		line("Bonus", slip.Bonus)
	}
	line("Gross", slip.Gross)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Deductions")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 12)
	line("Standard deductions", slip.Deductions)
	if slip.LOPAmount > 0 {
		line(fmt.Sprintf("Loss of pay (%s days)", strconv.FormatFloat(slip.LOPDays, 'f', -1, 64)), slip.LOPAmount)
	}
	line("Total deductions", slip.TotalDeductions)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 13)
	line("Net pay", slip.Net)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write renders and stores the slip, returning the stored path.
func (f *PayslipFiles) Write(slip Slip) (string, error) {
	data, err := RenderPayslip(slip)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return "", err
	}
	filePath := filepath.Join(f.Dir, fmt.Sprintf("%d-%02d-%d.pdf", slip.Year, slip.Month, slip.EmployeeID))
	if f.Crypto != nil && f.Crypto.Configured() {
		encrypted, err := f.Crypto.Encrypt(data)
		if err != nil {
			return "", err
		}
		filePath += ".enc"
		if err := os.WriteFile(filePath, encrypted, 0o600); err != nil {
			return "", err
		}
		return filePath, nil
	}
	if err := os.WriteFile(filePath, data, 0o600); err != nil {
		return "", err
	}
	return filePath, nil
}

func (f *PayslipFiles) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".enc") {
		return data, nil
	}
	plain, err := f.Crypto.Decrypt(data)
	if err != nil {
		return nil, err
	}
	// Slips sealed under a retired key are rewritten with the active one.
	if f.Crypto.NeedsReseal(data) {
		if sealed, err := f.Crypto.Encrypt(plain); err == nil {
			if err := os.WriteFile(path, sealed, 0o600); err != nil {
				slog.Warn("payslip reseal failed", "path", path, "err", err)
			}
		}
	}
	return plain, nil
}
