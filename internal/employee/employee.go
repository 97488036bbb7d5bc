package employee

import (
	"errors"
	"time"
)

// Employee is the roster row. Employees are created implicitly by the first
// record submitted for their ID and belong to exactly one department for
// their whole lifetime.
type Employee struct {
	EmployeeID     string    `json:"employee_id" gorm:"primaryKey;column:employee_id"`
	DepartmentCode string    `json:"department_code" gorm:"column:department_code;not null"`
	CreatedAt      time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (Employee) TableName() string {
	return "employees"
}

// Domain errors
var (
	ErrNotFound        = errors.New("employee not found")
	ErrWrongDepartment = errors.New("employee belongs to another department")
)
