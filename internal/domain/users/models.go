package users

import "time"

type User struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	RoleID      int64      `json:"roleId"`
	Role        string     `json:"role"`
	EmployeeID  *int64     `json:"employeeId,omitempty"`
	Active      bool       `json:"active"`
	MFAEnabled  bool       `json:"mfaEnabled"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type Role struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

type Permission struct {
	Key         string `json:"key"`
	Description string `json:"description"`
}

type Filter struct {
	Role   string
	Active *bool
	Query  string
}

type NewUser struct {
	Email      string
	Password   string
	Role       string
	EmployeeID *int64
}
