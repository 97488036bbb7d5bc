package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		db, err := initGorm(sqlDB)
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			for _, table := range []string{"deduction_mappings", "records", "employees"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing ledger data")
		}

		// Department logins live in config, not the database. Print a hash
		// for the demo password so it can be pasted into config.yml.
		hash, _ := bcrypt.GenerateFromPassword([]byte("password"), cfg.Security.BCryptCost)
		fmt.Println("bcrypt hash for demo password 'password':", string(hash))

		employees := []struct {
			ID   string
			Dept string
		}{
			{"EMP-001", "HR"},
			{"EMP-002", "HR"},
			{"EMP-003", "IT"},
		}

		for _, e := range employees {
			var exists int
			row := db.Raw("SELECT 1 FROM employees WHERE employee_id = ?", e.ID).Row()
			if err := row.Scan(&exists); err == nil {
				fmt.Println("employee already exists:", e.ID)
				continue
			}
			if err := db.Exec("INSERT INTO employees (employee_id, department_code, created_at) VALUES (?, ?, now())", e.ID, e.Dept).Error; err != nil {
				log.Fatalf("failed to insert employee %s: %v", e.ID, err)
			}
			fmt.Println("Seeded employee:", e.ID)
		}

		today := time.Now().UTC().Truncate(24 * time.Hour)
		additions := []struct {
			Employee  string
			Dept      string
			Hours     int
			Minutes   int
			Effective time.Time
			Reason    string
		}{
			{"EMP-001", "HR", 8, 0, today.AddDate(0, -8, 0), "weekend deployment"},
			{"EMP-001", "HR", 2, 30, today.AddDate(0, -2, 0), "late incident call"},
			{"EMP-002", "HR", 4, 0, today.AddDate(-1, 0, 5), "holiday coverage"},
			{"EMP-003", "IT", 12, 0, today.AddDate(0, -1, 0), "datacenter migration"},
		}

		for _, a := range additions {
			var exists int
			row := db.Raw(
				"SELECT 1 FROM records WHERE employee_id = ? AND effective_date = ? AND operation_type = 'addition'",
				a.Employee, a.Effective,
			).Row()
			if err := row.Scan(&exists); err == nil {
				continue
			}
			expiry := a.Effective.AddDate(0, 0, 365)
			if err := db.Exec(
				`INSERT INTO records (department_code, employee_id, operation_type, hours, minutes, effective_date, expiry_date, reason, created_by, created_at)
				 VALUES (?, ?, 'addition', ?, ?, ?, ?, ?, ?, now())`,
				a.Dept, a.Employee, a.Hours, a.Minutes, a.Effective, expiry, a.Reason, a.Dept,
			).Error; err != nil {
				log.Fatalf("failed to insert addition for %s: %v", a.Employee, err)
			}
			fmt.Printf("Seeded addition: %s %d:%02d effective %s\n", a.Employee, a.Hours, a.Minutes, a.Effective.Format("2006-01-02"))
		}

		fmt.Println("Seed data inserted successfully")
	},
}
