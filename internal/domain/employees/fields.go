package employees

import (
	"hrms/internal/domain/auth"
	cryptoutil "hrms/internal/platform/crypto"
)

// FilterEmployeeFields strips compensation data unless the caller is HR or
// the employee themself. Managers see their reports without it.
func FilterEmployeeFields(emp *Employee, user auth.UserContext, isSelf bool) {
	if user.RoleName == auth.RoleHR {
		return
	}
	if isSelf {
		emp.BankAccount = cryptoutil.Mask(emp.BankAccount)
		return
	}
	emp.BankAccount = ""
	emp.Salary = nil
}
