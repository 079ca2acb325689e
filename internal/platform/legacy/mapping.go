package legacy

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// NormalizeDSN forces the options the import relies on: parsed DATE and
// DATETIME columns in UTC with a utf8mb4 connection.
func NormalizeDSN(raw string) (string, error) {
	cfg, err := mysql.ParseDSN(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	if cfg.DBName == "" {
		return "", fmt.Errorf("mysql dsn must name a database")
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	if _, ok := cfg.Params["charset"]; !ok {
		cfg.Params["charset"] = "utf8mb4"
	}
	return cfg.FormatDSN(), nil
}

// RedactDSN hides the password for log output.
func RedactDSN(dsn string) string {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "<invalid dsn>"
	}
	if cfg.Passwd != "" {
		cfg.Passwd = "****"
	}
	return cfg.FormatDSN()
}

func employeeStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "inactive", "terminated", "resigned", "left", "exited":
		return "terminated"
	case "on_leave", "on leave", "leave":
		return "on_leave"
	default:
		return "active"
	}
}

func leaveStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approved", "accepted":
		return "approved"
	case "rejected", "declined":
		return "rejected"
	case "cancelled", "canceled", "withdrawn":
		return "cancelled"
	default:
		return "pending"
	}
}

func workMode(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "wfh", "remote", "home", "work_from_home":
		return "wfh"
	case "field", "onsite", "client":
		return "field"
	default:
		return "office"
	}
}

func attendanceStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "late":
		return "late"
	case "half_day", "halfday", "half day":
		return "half_day"
	case "absent":
		return "absent"
	case "leave", "on_leave":
		return "on_leave"
	default:
		return "present"
	}
}

func leaveTypeCode(raw string) string {
	code := strings.ToUpper(strings.TrimSpace(raw))
	switch code {
	case "CASUAL":
		return "CL"
	case "SICK":
		return "SL"
	case "EARNED", "PRIVILEGE", "ANNUAL":
		return "EL"
	}
	return code
}

func employeeCode(e Employee) string {
	if code := strings.TrimSpace(e.EmpCode); code != "" {
		return code
	}
	return fmt.Sprintf("LEG%05d", e.ID)
}

func workedHours(in, out *time.Time) float64 {
	if in == nil || out == nil || !out.After(*in) {
		return 0
	}
	hours := out.Sub(*in).Hours()
	return float64(int(hours*100+0.5)) / 100
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
