package postgres

import (
	"context"
	"errors"

	"github.com/ariachen2020/timerecord/internal/comptime"
	"github.com/ariachen2020/timerecord/internal/employee"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EmployeeRepository implements employee.RepositoryAPI using GORM.
type EmployeeRepository struct {
	db *gorm.DB
}

func NewEmployeeRepository(db *gorm.DB) employee.RepositoryAPI {
	return &EmployeeRepository{db: db}
}

func (r *EmployeeRepository) ListByDepartment(ctx context.Context, departmentCode string) ([]employee.Employee, error) {
	var employees []employee.Employee
	err := r.db.WithContext(ctx).
		Where("department_code = ?", departmentCode).
		Order("employee_id").
		Find(&employees).Error
	return employees, err
}

// DeleteCascade removes an employee together with all their records and the
// deduction mappings referencing those records, in mapping-then-record order
// to respect referential integrity.
//
// The employee row and the employee's addition rows are locked first (on
// postgres), so a deduction allocating against those rows and this deletion
// cannot interleave.
func (r *EmployeeRepository) DeleteCascade(ctx context.Context, employeeID, departmentCode string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var emp employee.Employee
		q := tx.Where("employee_id = ?", employeeID)
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.First(&emp).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return employee.ErrNotFound
			}
			return err
		}
		if emp.DepartmentCode != departmentCode {
			return employee.ErrWrongDepartment
		}

		if tx.Dialector.Name() == "postgres" {
			var lockedIDs []int64
			err := tx.Model(&comptime.Record{}).
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("employee_id = ? AND operation_type = ?", employeeID, comptime.OperationAddition).
				Pluck("id", &lockedIDs).Error
			if err != nil {
				return err
			}
		}

		recordIDs := func() *gorm.DB {
			return tx.Model(&comptime.Record{}).
				Select("id").
				Where("employee_id = ?", employeeID)
		}

		if err := tx.Where("deduction_record_id IN (?)", recordIDs()).
			Delete(&comptime.DeductionMapping{}).Error; err != nil {
			return err
		}
		if err := tx.Where("source_record_id IN (?)", recordIDs()).
			Delete(&comptime.DeductionMapping{}).Error; err != nil {
			return err
		}
		if err := tx.Where("employee_id = ?", employeeID).
			Delete(&comptime.Record{}).Error; err != nil {
			return err
		}
		return tx.Delete(&emp).Error
	})
}
