package compliance

import (
	"math"
	"sort"
	"time"
)

// Rate returns compliant/total rounded to four decimals, or 0 when nobody
// is expected to report.
func Rate(compliant, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(compliant)/float64(total)*10000) / 10000
}

// Summarize builds the dashboard for a day. Employees on approved leave are
// left out of the total.
func Summarize(day time.Time, statuses []EmployeeStatus) Dashboard {
	out := Dashboard{Date: formatDay(day), Departments: []DepartmentRate{}, Missing: []Missing{}}
	departments := map[string]*DepartmentRate{}
	var order []string

	for _, st := range statuses {
		if st.OnLeave {
			out.OnLeave++
			continue
		}
		name := st.DepartmentName
		if name == "" {
			name = "Unassigned"
		}
		dept, ok := departments[name]
		if !ok {
			dept = &DepartmentRate{DepartmentID: st.DepartmentID, DepartmentName: name}
			departments[name] = dept
			order = append(order, name)
		}
		out.Total++
		dept.Total++
		if st.Compliant {
			out.Compliant++
			dept.Compliant++
			continue
		}
		out.Missing = append(out.Missing, Missing{
			EmployeeID:     st.EmployeeID,
			EmployeeName:   st.EmployeeName,
			DepartmentName: st.DepartmentName,
		})
	}

	out.NonCompliant = out.Total - out.Compliant
	out.Rate = Rate(out.Compliant, out.Total)
	sort.Strings(order)
	for _, name := range order {
		dept := departments[name]
		dept.Rate = Rate(dept.Compliant, dept.Total)
		out.Departments = append(out.Departments, *dept)
	}
	return out
}
