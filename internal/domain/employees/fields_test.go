package employees

import (
	"testing"

	"hrms/internal/domain/auth"
)

func sampleEmployee() *Employee {
	salary := 120000.0
	return &Employee{
		ID:          5,
		BankAccount: "123456789012",
		Salary:      &salary,
	}
}

func TestFilterEmployeeFieldsHR(t *testing.T) {
	emp := sampleEmployee()
	user := auth.UserContext{RoleName: auth.RoleHR}

	FilterEmployeeFields(emp, user, false)

	if emp.BankAccount != "123456789012" || emp.Salary == nil {
		t.Fatal("HR should retain sensitive fields")
	}
}

func TestFilterEmployeeFieldsManager(t *testing.T) {
	emp := sampleEmployee()
	user := auth.UserContext{RoleName: auth.RoleManager}

	FilterEmployeeFields(emp, user, false)

	if emp.BankAccount != "" || emp.Salary != nil {
		t.Fatal("Manager should not see sensitive fields")
	}
}

func TestFilterEmployeeFieldsEmployeeSelf(t *testing.T) {
	emp := sampleEmployee()
	user := auth.UserContext{RoleName: auth.RoleEmployee, EmployeeID: 5}

	FilterEmployeeFields(emp, user, true)

	if emp.Salary == nil {
		t.Fatal("Employee should see their own salary")
	}
	if emp.BankAccount != "********9012" {
		t.Fatalf("expected masked bank account, got %q", emp.BankAccount)
	}
}

func TestFilterEmployeeFieldsSystemAdmin(t *testing.T) {
	emp := sampleEmployee()
	FilterEmployeeFields(emp, auth.UserContext{RoleName: auth.RoleSystemAdmin}, false)
	if emp.BankAccount != "" || emp.Salary != nil {
		t.Fatal("system admin should not see compensation")
	}
}
