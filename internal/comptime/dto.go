package comptime

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/ariachen2020/timerecord/internal"
)

// SubmitRecordDTO is the transport shape for submitting a ledger mutation.
// Hours and minutes arrive as json.Number so that non-integer or stringy
// values are rejected explicitly instead of being coerced.
type SubmitRecordDTO struct {
	EmployeeID    string      `json:"employee_id"`
	OperationType string      `json:"operation_type"`
	Hours         json.Number `json:"hours"`
	Minutes       json.Number `json:"minutes"`
	EffectiveDate string      `json:"effective_date"`
	Reason        string      `json:"reason,omitempty"`
}

// SubmitRecordInput is the validated, typed form of a submission.
type SubmitRecordInput struct {
	EmployeeID    string
	OperationType OperationType
	Hours         int
	Minutes       int
	EffectiveDate time.Time
	Reason        string
}

// Parse validates the DTO and returns its typed form. Failure modes follow
// the precondition order of the submission contract: missing fields first,
// then malformed or non-positive quantities.
func (d SubmitRecordDTO) Parse() (SubmitRecordInput, error) {
	var in SubmitRecordInput

	if d.EmployeeID == "" {
		return in, internal.NewValidationError("employee_id is required", internal.ErrCodeValidationFailed)
	}
	if d.OperationType == "" {
		return in, internal.NewValidationError("operation_type is required", internal.ErrCodeValidationFailed)
	}
	if d.EffectiveDate == "" {
		return in, internal.NewValidationError("effective_date is required", internal.ErrCodeValidationFailed)
	}

	op := OperationType(d.OperationType)
	if op != OperationAddition && op != OperationDeduction {
		return in, internal.NewValidationError(
			"operation_type must be \"addition\" or \"deduction\"", internal.ErrCodeInvalidOperation)
	}

	hours, err := parseAmount(d.Hours)
	if err != nil {
		return in, internal.NewValidationError("hours must be a non-negative integer", internal.ErrCodeInvalidQuantity)
	}
	minutes, err := parseAmount(d.Minutes)
	if err != nil {
		return in, internal.NewValidationError("minutes must be a non-negative integer", internal.ErrCodeInvalidQuantity)
	}
	if hours == 0 && minutes == 0 {
		return in, internal.NewValidationError("quantity must be greater than zero", internal.ErrCodeInvalidQuantity)
	}

	effective, err := time.ParseInLocation(time.DateOnly, d.EffectiveDate, time.UTC)
	if err != nil {
		return in, internal.NewValidationError(
			"effective_date must be a calendar date in YYYY-MM-DD form", internal.ErrCodeInvalidDate)
	}

	in = SubmitRecordInput{
		EmployeeID:    d.EmployeeID,
		OperationType: op,
		Hours:         hours,
		Minutes:       minutes,
		EffectiveDate: effective,
		Reason:        d.Reason,
	}
	return in, nil
}

// parseAmount accepts only plain non-negative integers. An absent field
// decodes as the empty json.Number and counts as zero.
func parseAmount(n json.Number) (int, error) {
	if n.String() == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(n.String())
	if err != nil || v < 0 {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}

// AnnotatedRecord is a stored record plus its computed expiry classification.
type AnnotatedRecord struct {
	Record
	ExpiryStatus    ExpiryStatus `json:"expiry_status"`
	DaysUntilExpiry *int         `json:"days_until_expiry,omitempty"`
}

// EmployeeSummary aggregates one employee's history. Total, expiring-soon and
// expired are gross sums over addition quantities; available nets out
// consumption.
type EmployeeSummary struct {
	TotalAccumulated TimeQuantity `json:"total_accumulated"`
	AvailableBalance TimeQuantity `json:"available_balance"`
	ExpiringSoon     TimeQuantity `json:"expiring_soon"`
	Expired          TimeQuantity `json:"expired"`
}

type EmployeeRecordsResponse struct {
	EmployeeID string            `json:"employee_id"`
	Records    []AnnotatedRecord `json:"records"`
	Summary    EmployeeSummary   `json:"summary"`
}

// OverviewEntry is one employee's bucket line in the department overview.
type OverviewEntry struct {
	EmployeeID         string       `json:"employee_id"`
	Amount             TimeQuantity `json:"amount"`
	EarliestExpiryDate *time.Time   `json:"earliest_expiry_date,omitempty"`
}

type OverviewEmployee struct {
	EmployeeID string `json:"employee_id"`
}

type DepartmentOverview struct {
	DepartmentCode string             `json:"department_code"`
	TotalEmployees int                `json:"total_employees"`
	ExpiringSoon   []OverviewEntry    `json:"expiring_soon"`
	Expired        []OverviewEntry    `json:"expired"`
	AllEmployees   []OverviewEmployee `json:"all_employees"`
}
