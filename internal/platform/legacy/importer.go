package legacy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const batchSize = 500

type TableReport struct {
	Read    int `json:"read"`
	Written int `json:"written"`
	Skipped int `json:"skipped"`
}

func (t TableReport) String() string {
	return fmt.Sprintf("read=%d written=%d skipped=%d", t.Read, t.Written, t.Skipped)
}

type Report struct {
	DryRun     bool        `json:"dryRun"`
	Employees  TableReport `json:"employees"`
	Holidays   TableReport `json:"holidays"`
	Leaves     TableReport `json:"leaves"`
	Attendance TableReport `json:"attendance"`
}

// Importer copies the legacy MySQL data into the current Postgres schema.
// Rows are matched on natural keys so reruns update instead of duplicating.
type Importer struct {
	Source *gorm.DB
	Target *pgxpool.Pool
	DryRun bool

	employees   map[uint]int64
	departments map[string]int64
	leaveTypes  map[string]int64
}

// Open connects to the legacy MySQL database.
func Open(dsn string) (*gorm.DB, error) {
	normalized, err := NormalizeDSN(dsn)
	if err != nil {
		return nil, err
	}
	return gorm.Open(gormmysql.Open(normalized), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
}

func NewImporter(source *gorm.DB, target *pgxpool.Pool, dryRun bool) *Importer {
	return &Importer{
		Source:      source,
		Target:      target,
		DryRun:      dryRun,
		employees:   map[uint]int64{},
		departments: map[string]int64{},
		leaveTypes:  map[string]int64{},
	}
}

func (im *Importer) Run(ctx context.Context) (Report, error) {
	report := Report{DryRun: im.DryRun}
	if err := im.loadLeaveTypes(ctx); err != nil {
		return report, fmt.Errorf("load leave types: %w", err)
	}
	var err error
	if report.Employees, err = im.importEmployees(ctx); err != nil {
		return report, fmt.Errorf("employees: %w", err)
	}
	if report.Holidays, err = im.importHolidays(ctx); err != nil {
		return report, fmt.Errorf("holidays: %w", err)
	}
	if report.Leaves, err = im.importLeaves(ctx); err != nil {
		return report, fmt.Errorf("leaves: %w", err)
	}
	if report.Attendance, err = im.importAttendance(ctx); err != nil {
		return report, fmt.Errorf("attendance: %w", err)
	}
	return report, nil
}

func (im *Importer) loadLeaveTypes(ctx context.Context) error {
	rows, err := im.Target.Query(ctx, "SELECT id, code FROM leave_types")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var code string
		if err := rows.Scan(&id, &code); err != nil {
			return err
		}
		im.leaveTypes[strings.ToUpper(code)] = id
	}
	return rows.Err()
}

func (im *Importer) department(ctx context.Context, name string) (*int64, error) {
	name = strings.TrimSpace(name)
	if name == "" || im.DryRun {
		return nil, nil
	}
	if id, ok := im.departments[name]; ok {
		return &id, nil
	}
	var id int64
	err := im.Target.QueryRow(ctx, `
    INSERT INTO departments (name) VALUES ($1)
    ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
    RETURNING id
  `, name).Scan(&id)
	if err != nil {
		return nil, err
	}
	im.departments[name] = id
	return &id, nil
}

func (im *Importer) importEmployees(ctx context.Context) (TableReport, error) {
	var rep TableReport
	var batch []Employee
	res := im.Source.WithContext(ctx).FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
		for _, e := range batch {
			rep.Read++
			email := strings.ToLower(strings.TrimSpace(e.Email))
			if email == "" {
				rep.Skipped++
				continue
			}
			if im.DryRun {
				im.employees[e.ID] = 0
				rep.Written++
				continue
			}
			deptID, err := im.department(ctx, e.Department)
			if err != nil {
				return err
			}
			var joined any
			if e.JoinedOn != nil {
				joined = dateOnly(*e.JoinedOn)
			}
			var id int64
			err = im.Target.QueryRow(ctx, `
        INSERT INTO employees (employee_code, first_name, last_name, email, phone, department_id, date_of_joining, status, terminated_at)
        VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8::text, CASE WHEN $8::text = 'terminated' THEN CURRENT_DATE END)
        ON CONFLICT (email) DO UPDATE SET
          first_name = EXCLUDED.first_name,
          last_name = EXCLUDED.last_name,
          phone = COALESCE(EXCLUDED.phone, employees.phone),
          department_id = COALESCE(EXCLUDED.department_id, employees.department_id),
          date_of_joining = COALESCE(employees.date_of_joining, EXCLUDED.date_of_joining),
          status = EXCLUDED.status,
          updated_at = now()
        RETURNING id
      `, employeeCode(e), strings.TrimSpace(e.FirstName), strings.TrimSpace(e.LastName), email,
				strings.TrimSpace(e.Phone), deptID, joined, employeeStatus(e.Status)).Scan(&id)
			if err != nil {
				slog.Warn("legacy employee skipped", "legacyId", e.ID, "email", email, "err", err)
				rep.Skipped++
				continue
			}
			im.employees[e.ID] = id
			rep.Written++
		}
		return nil
	})
	return rep, res.Error
}

func (im *Importer) importHolidays(ctx context.Context) (TableReport, error) {
	var rep TableReport
	var batch []Holiday
	res := im.Source.WithContext(ctx).FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
		for _, h := range batch {
			rep.Read++
			name := strings.TrimSpace(h.Name)
			if name == "" {
				rep.Skipped++
				continue
			}
			if im.DryRun {
				rep.Written++
				continue
			}
			tag, err := im.Target.Exec(ctx, `
        INSERT INTO holidays (holiday_date, name, optional) VALUES ($1, $2, $3)
        ON CONFLICT (holiday_date, name) DO NOTHING
      `, dateOnly(h.Date), name, h.Optional)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				rep.Skipped++
				continue
			}
			rep.Written++
		}
		return nil
	})
	return rep, res.Error
}

func (im *Importer) importLeaves(ctx context.Context) (TableReport, error) {
	var rep TableReport
	var batch []Leave
	res := im.Source.WithContext(ctx).FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
		for _, l := range batch {
			rep.Read++
			employeeID, known := im.employees[l.EmployeeID]
			typeID, typed := im.leaveTypes[leaveTypeCode(l.LeaveType)]
			if !known || !typed || l.ToDate.Before(l.FromDate) {
				rep.Skipped++
				continue
			}
			if im.DryRun {
				rep.Written++
				continue
			}
			days := l.Days
			if days <= 0 {
				days = float64(int(dateOnly(l.ToDate).Sub(dateOnly(l.FromDate)).Hours()/24) + 1)
			}
			tag, err := im.Target.Exec(ctx, `
        INSERT INTO leave_requests (employee_id, leave_type_id, start_date, end_date, days, reason, status)
        SELECT $1::bigint, $2::bigint, $3::date, $4::date, $5::numeric, NULLIF($6::text, ''), $7::text
        WHERE NOT EXISTS (
          SELECT 1 FROM leave_requests
          WHERE employee_id = $1::bigint AND leave_type_id = $2::bigint AND start_date = $3::date
        )
      `, employeeID, typeID, dateOnly(l.FromDate), dateOnly(l.ToDate), days, strings.TrimSpace(l.Reason), leaveStatus(l.Status))
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				rep.Skipped++
				continue
			}
			rep.Written++
		}
		return nil
	})
	return rep, res.Error
}

func (im *Importer) importAttendance(ctx context.Context) (TableReport, error) {
	var rep TableReport
	var batch []Attendance
	res := im.Source.WithContext(ctx).FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
		for _, a := range batch {
			rep.Read++
			employeeID, known := im.employees[a.EmployeeID]
			if !known {
				rep.Skipped++
				continue
			}
			if im.DryRun {
				rep.Written++
				continue
			}
			_, err := im.Target.Exec(ctx, `
        INSERT INTO attendance (employee_id, work_date, check_in_at, check_out_at, work_mode, status, worked_hours, source)
        VALUES ($1, $2, $3, $4, $5, $6, $7, 'legacy')
        ON CONFLICT (employee_id, work_date) DO UPDATE SET
          check_in_at = COALESCE(attendance.check_in_at, EXCLUDED.check_in_at),
          check_out_at = COALESCE(attendance.check_out_at, EXCLUDED.check_out_at),
          worked_hours = GREATEST(attendance.worked_hours, EXCLUDED.worked_hours),
          updated_at = now()
      `, employeeID, dateOnly(a.Date), a.CheckIn, a.CheckOut, workMode(a.Mode), attendanceStatus(a.Status), workedHours(a.CheckIn, a.CheckOut))
			if err != nil {
				return err
			}
			rep.Written++
		}
		return nil
	})
	return rep, res.Error
}
