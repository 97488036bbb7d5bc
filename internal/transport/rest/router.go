package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/ariachen2020/timerecord/internal/comptime"
	"github.com/ariachen2020/timerecord/internal/department"
	"github.com/ariachen2020/timerecord/internal/employee"
	"github.com/ariachen2020/timerecord/internal/transport/middleware"
	"github.com/ariachen2020/timerecord/internal/transport/swagger"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// RegisterAllRoutes wires the full HTTP surface. Every record and employee
// route runs behind the department auth middleware; the acting department is
// always resolved there and never from ambient state.
func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	allowedOrigins string,
	departmentHandler *department.Handler,
	comptimeHandler *comptime.Handler,
	employeeHandler *employee.Handler,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS(allowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", departmentHandler.Login)
			sr.Post("/refresh", departmentHandler.RefreshToken)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(departmentHandler.AuthMiddleware)

			pr.Get("/auth/me", departmentHandler.Me)

			pr.Route("/records", func(rr chi.Router) {
				rr.Post("/", comptimeHandler.SubmitRecord)
				rr.Get("/overview", comptimeHandler.GetOverview)
				rr.Get("/employee/{employeeID}", comptimeHandler.GetEmployeeRecords)
			})

			pr.Route("/employees", func(er chi.Router) {
				er.Get("/", employeeHandler.ListEmployees)
				er.Delete("/{employeeID}", employeeHandler.DeleteEmployee)
			})
		})
	})
}
