package comptime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ariachen2020/timerecord/internal"
)

// TxStore is the slice of the repository visible inside one submission
// transaction. Every call runs against the same database transaction; on
// postgres, AdditionsForUpdate takes row locks on the employee's addition
// rows so a concurrent deduction for the same employee blocks until this one
// commits or rolls back.
type TxStore interface {
	EmployeeDepartment(employeeID string) (departmentCode string, exists bool, err error)
	EnsureEmployee(employeeID, departmentCode string) error
	AdditionsForUpdate(employeeID string, today time.Time) ([]AdditionBalance, error)
	InsertRecord(rec *Record) error
	InsertMappings(mappings []DeductionMapping) error
}

// RepositoryAPI defines data access for the comp-time ledger. Transact wraps
// fn in an all-or-nothing database transaction; any error from fn rolls back
// every write, including the implicit employee creation.
type RepositoryAPI interface {
	Transact(ctx context.Context, fn func(tx TxStore) error) error
	RecordsForEmployee(ctx context.Context, employeeID, departmentCode string) ([]Record, error)
	AdditionBalances(ctx context.Context, employeeID string, today time.Time) ([]AdditionBalance, error)
	EmployeeIDs(ctx context.Context, departmentCode string) ([]string, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// NewServiceWithClock is used by tests that need a fixed notion of "now".
func NewServiceWithClock(repo RepositoryAPI, logger *slog.Logger, now func() time.Time) *Service {
	return &Service{repo: repo, logger: logger, now: now}
}

// SubmitRecord validates and persists one ledger mutation on behalf of the
// acting department. For deductions, the balance check and the FIFO
// allocation both run off a single locked snapshot inside one transaction.
func (s *Service) SubmitRecord(ctx context.Context, actingDepartment, createdBy string, dto SubmitRecordDTO) (*Record, error) {
	input, err := dto.Parse()
	if err != nil {
		s.logger.Warn("record submission rejected", "error", err, "department", actingDepartment)
		return nil, err
	}

	rec := &Record{
		DepartmentCode: actingDepartment,
		EmployeeID:     input.EmployeeID,
		OperationType:  input.OperationType,
		Hours:          input.Hours,
		Minutes:        input.Minutes,
		EffectiveDate:  input.EffectiveDate,
		Reason:         input.Reason,
		CreatedBy:      createdBy,
	}
	if input.OperationType == OperationAddition {
		expiry := ComputeExpiry(input.EffectiveDate)
		rec.ExpiryDate = &expiry
	}

	today := DateOnly(s.now())

	err = s.repo.Transact(ctx, func(tx TxStore) error {
		owner, exists, err := tx.EmployeeDepartment(input.EmployeeID)
		if err != nil {
			return internal.NewInternalError("failed to look up employee", err)
		}
		if exists && owner != actingDepartment {
			return internal.NewConflictError(
				fmt.Sprintf("employee %s already belongs to department %s", input.EmployeeID, owner),
				internal.ErrCodeOwnershipConflict)
		}

		if err := tx.EnsureEmployee(input.EmployeeID, actingDepartment); err != nil {
			return internal.NewInternalError("failed to ensure employee", err)
		}

		if input.OperationType == OperationDeduction {
			additions, err := tx.AdditionsForUpdate(input.EmployeeID, today)
			if err != nil {
				return internal.NewInternalError("failed to read addition balances", err)
			}

			requested := ToMinutes(input.Hours, input.Minutes)
			available := AvailableMinutes(additions)
			if requested > available {
				avail := FromMinutes(available)
				return internal.NewBusinessRuleError(
					fmt.Sprintf("insufficient balance: available %s, requested %s",
						avail, FormatTime(input.Hours, input.Minutes)),
					internal.ErrCodeInsufficientBalance)
			}

			if err := tx.InsertRecord(rec); err != nil {
				return internal.NewInternalError("failed to insert record", err)
			}

			allocations, err := Allocate(additions, requested)
			if err != nil {
				// Validated request could not be satisfied: corrupted
				// allocation state, abort loudly.
				appErr := internal.NewInternalError("ledger allocation failed", err)
				appErr.Code = internal.ErrCodeLedgerInconsistent
				return appErr
			}

			mappings := make([]DeductionMapping, 0, len(allocations))
			for _, a := range allocations {
				mappings = append(mappings, DeductionMapping{
					DeductionRecordID: rec.ID,
					SourceRecordID:    a.SourceRecordID,
					DeductedHours:     a.Hours,
					DeductedMinutes:   a.Minutes,
				})
			}
			if err := tx.InsertMappings(mappings); err != nil {
				return internal.NewInternalError("failed to insert deduction mappings", err)
			}
			return nil
		}

		if err := tx.InsertRecord(rec); err != nil {
			return internal.NewInternalError("failed to insert record", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("record submitted",
		"record_id", rec.ID,
		"employee_id", rec.EmployeeID,
		"department", actingDepartment,
		"operation", rec.OperationType,
		"quantity", FormatTime(rec.Hours, rec.Minutes))

	return rec, nil
}

// GetEmployeeRecords returns the employee's full annotated history plus the
// derived summary, scoped to the acting department.
func (s *Service) GetEmployeeRecords(ctx context.Context, actingDepartment, employeeID string) (*EmployeeRecordsResponse, error) {
	records, err := s.repo.RecordsForEmployee(ctx, employeeID, actingDepartment)
	if err != nil {
		s.logger.Error("failed to load employee records", "error", err, "employee_id", employeeID)
		return nil, internal.NewInternalError("failed to load records", err)
	}
	if len(records) == 0 {
		return nil, internal.NewNotFoundError(
			fmt.Sprintf("no records found for employee %s", employeeID),
			internal.ErrCodeEmployeeNotFound)
	}

	now := s.now()
	balances, err := s.repo.AdditionBalances(ctx, employeeID, DateOnly(now))
	if err != nil {
		s.logger.Error("failed to load addition balances", "error", err, "employee_id", employeeID)
		return nil, internal.NewInternalError("failed to compute balance", err)
	}

	var totalMinutes, expiringMinutes, expiredMinutes int
	annotated := make([]AnnotatedRecord, 0, len(records))
	for _, rec := range records {
		status := Classify(rec.ExpiryDate, now)
		if rec.IsAddition() {
			mins := ToMinutes(rec.Hours, rec.Minutes)
			totalMinutes += mins
			switch status {
			case StatusExpired:
				expiredMinutes += mins
			case StatusExpiringSoon:
				expiringMinutes += mins
			}
		}
		annotated = append(annotated, AnnotatedRecord{
			Record:          rec,
			ExpiryStatus:    status,
			DaysUntilExpiry: DaysUntilExpiry(rec.ExpiryDate, now),
		})
	}

	return &EmployeeRecordsResponse{
		EmployeeID: employeeID,
		Records:    annotated,
		Summary: EmployeeSummary{
			TotalAccumulated: FromMinutes(totalMinutes),
			AvailableBalance: FromMinutes(AvailableMinutes(balances)),
			ExpiringSoon:     FromMinutes(expiringMinutes),
			Expired:          FromMinutes(expiredMinutes),
		},
	}, nil
}

// GetDepartmentOverview re-runs the expiry classification over every employee
// the department owns and reports the expiring-soon and expired buckets.
func (s *Service) GetDepartmentOverview(ctx context.Context, actingDepartment string) (*DepartmentOverview, error) {
	employeeIDs, err := s.repo.EmployeeIDs(ctx, actingDepartment)
	if err != nil {
		s.logger.Error("failed to list department employees", "error", err, "department", actingDepartment)
		return nil, internal.NewInternalError("failed to list employees", err)
	}

	now := s.now()
	overview := &DepartmentOverview{
		DepartmentCode: actingDepartment,
		TotalEmployees: len(employeeIDs),
		ExpiringSoon:   []OverviewEntry{},
		Expired:        []OverviewEntry{},
		AllEmployees:   make([]OverviewEmployee, 0, len(employeeIDs)),
	}

	for _, id := range employeeIDs {
		records, err := s.repo.RecordsForEmployee(ctx, id, actingDepartment)
		if err != nil {
			return nil, internal.NewInternalError("failed to load records", err)
		}

		var expiringMinutes, expiredMinutes int
		var earliestExpiry *time.Time
		for _, rec := range records {
			if !rec.IsAddition() {
				continue
			}
			mins := ToMinutes(rec.Hours, rec.Minutes)
			switch Classify(rec.ExpiryDate, now) {
			case StatusExpired:
				expiredMinutes += mins
			case StatusExpiringSoon:
				expiringMinutes += mins
				if earliestExpiry == nil || rec.ExpiryDate.Before(*earliestExpiry) {
					earliestExpiry = rec.ExpiryDate
				}
			}
		}

		if expiringMinutes > 0 {
			overview.ExpiringSoon = append(overview.ExpiringSoon, OverviewEntry{
				EmployeeID:         id,
				Amount:             FromMinutes(expiringMinutes),
				EarliestExpiryDate: earliestExpiry,
			})
		}
		if expiredMinutes > 0 {
			overview.Expired = append(overview.Expired, OverviewEntry{
				EmployeeID: id,
				Amount:     FromMinutes(expiredMinutes),
			})
		}
		overview.AllEmployees = append(overview.AllEmployees, OverviewEmployee{EmployeeID: id})
	}

	return overview, nil
}
