package comptime

import (
	"time"
)

type OperationType string

const (
	OperationAddition  OperationType = "addition"
	OperationDeduction OperationType = "deduction"
)

// Record is one immutable ledger entry. Additions carry an expiry date;
// deductions never do. Rows are only ever inserted or cascade-deleted with
// their employee, never updated.
type Record struct {
	ID             int64         `json:"id" gorm:"primaryKey"`
	DepartmentCode string        `json:"department_code" gorm:"column:department_code;not null"`
	EmployeeID     string        `json:"employee_id" gorm:"column:employee_id;not null"`
	OperationType  OperationType `json:"operation_type" gorm:"column:operation_type;not null"`
	Hours          int           `json:"hours" gorm:"not null"`
	Minutes        int           `json:"minutes" gorm:"not null"`
	EffectiveDate  time.Time     `json:"effective_date" gorm:"column:effective_date;not null"`
	ExpiryDate     *time.Time    `json:"expiry_date,omitempty" gorm:"column:expiry_date"`
	Reason         string        `json:"reason" gorm:"column:reason"`
	CreatedBy      string        `json:"created_by" gorm:"column:created_by"`
	CreatedAt      time.Time     `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (Record) TableName() string {
	return "records"
}

func (r *Record) IsAddition() bool {
	return r.OperationType == OperationAddition
}

// DeductionMapping records provenance of FIFO allocation: which addition a
// deduction consumed, and how much. Created only together with its deduction
// record, never mutated afterwards.
type DeductionMapping struct {
	ID                int64 `json:"id" gorm:"primaryKey"`
	DeductionRecordID int64 `json:"deduction_record_id" gorm:"column:deduction_record_id;not null"`
	SourceRecordID    int64 `json:"source_record_id" gorm:"column:source_record_id;not null"`
	DeductedHours     int   `json:"deducted_hours" gorm:"column:deducted_hours;not null"`
	DeductedMinutes   int   `json:"deducted_minutes" gorm:"column:deducted_minutes;not null"`
}

func (DeductionMapping) TableName() string {
	return "deduction_mappings"
}
