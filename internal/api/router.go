package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mohamed54683/pm-sub003/internal/auth"
	"github.com/mohamed54683/pm-sub003/internal/panel"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	// Admin UI (embedded single-page app)
	r.Handle("/admin/*", http.StripPrefix("/admin", panel.Handler(s.cfg.UIDir)))
	r.Handle("/admin", http.RedirectHandler("/admin/", http.StatusMovedPermanently))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.rateLimitMiddleware)

		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)
		r.Post("/auth/logout", s.handleLogout)

		// WebSocket (auth via ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Use(s.csrfMiddleware)

			s.authRoutes(r)
			s.userRoutes(r)
			s.departmentRoutes(r)
			s.projectRoutes(r)
			s.workRoutes(r)
			s.assetRoutes(r)
			s.timeRoutes(r)

			r.Get("/dashboard", s.handleDashboard)
			r.With(s.requirePermission(auth.PermReportExport)).Get("/reports/timesheet.xlsx", s.handleTimesheetExport)
			r.With(s.requirePermission(auth.PermAuditRead)).Get("/audit", s.handleListAuditLogs)
		})
	})

	return r
}

func (s *Server) authRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Get("/me", s.handleMe)
		r.Get("/csrf", s.handleCSRF)
		r.Post("/change-password", s.handleChangePassword)
		r.Get("/sessions", s.handleListSessions)
		r.Delete("/sessions/{id}", s.handleDeleteSession)
		r.Post("/ws-ticket", s.handleWSTicket)
		r.Get("/tokens", s.handleListAPITokens)
		r.Post("/tokens", s.handleCreateAPIToken)
		r.Delete("/tokens/{id}", s.handleRevokeAPIToken)
	})
}

func (s *Server) userRoutes(r chi.Router) {
	r.Get("/users/directory", s.handleUserDirectory)

	r.Route("/users", func(r chi.Router) {
		r.Use(s.requirePermission(auth.PermUserManage))
		r.Get("/", s.handleListUsers)
		r.Post("/", s.handleCreateUser)
		r.Get("/{id}", s.handleGetUser)
		r.Patch("/{id}", s.handleUpdateUser)
		r.Delete("/{id}", s.handleDeleteUser)
		r.Post("/{id}/reset-password", s.handleResetPassword)
	})
}

func (s *Server) departmentRoutes(r chi.Router) {
	r.Route("/departments", func(r chi.Router) {
		r.Get("/", s.handleListDepartments)
		r.Get("/{id}", s.handleGetDepartment)

		r.Group(func(r chi.Router) {
			r.Use(s.requirePermission(auth.PermDepartmentManage))
			r.Post("/", s.handleCreateDepartment)
			r.Patch("/{id}", s.handleUpdateDepartment)
			r.Delete("/{id}", s.handleDeleteDepartment)
		})
	})
}

func (s *Server) projectRoutes(r chi.Router) {
	r.Route("/projects", func(r chi.Router) {
		r.Use(s.requirePermission(auth.PermProjectRead))
		r.Get("/", s.handleListProjects)
		r.With(s.requirePermission(auth.PermProjectCreate)).Post("/", s.handleCreateProject)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetProject)
			r.Get("/summary", s.handleProjectSummary)
			r.Get("/members", s.handleListMembers)

			r.Group(func(r chi.Router) {
				r.Use(s.requirePermission(auth.PermProjectManage))
				r.Patch("/", s.handleUpdateProject)
				r.Delete("/", s.handleDeleteProject)
				r.Put("/members/{userID}", s.handlePutMember)
				r.Delete("/members/{userID}", s.handleRemoveMember)
			})

			r.Get("/sprints", s.handleListSprints)
			r.With(s.requirePermission(auth.PermSprintManage)).Post("/sprints", s.handleCreateSprint)

			r.Get("/tasks", s.handleListProjectTasks)
			r.With(s.requirePermission(auth.PermTaskWrite)).Post("/tasks", s.handleCreateTask)

			r.Get("/risks", s.handleListRisks)
			r.Get("/risks/matrix", s.handleRiskMatrix)
			r.With(s.requirePermission(auth.PermRiskWrite)).Post("/risks", s.handleCreateRisk)
			r.With(s.requirePermission(auth.PermReportExport)).Get("/risks/export.xlsx", s.handleRiskExport)

			r.Get("/changes", s.handleListChanges)
			r.With(s.requirePermission(auth.PermChangeCreate)).Post("/changes", s.handleCreateChange)

			r.Group(func(r chi.Router) {
				r.Use(s.requirePermission(auth.PermBudgetRead))
				r.Get("/budget", s.handleListBudget)
				r.With(s.requirePermission(auth.PermBudgetManage)).Post("/budget", s.handleCreateBudgetItem)
				r.With(s.requirePermission(auth.PermReportExport)).Get("/budget/export.xlsx", s.handleBudgetExport)
			})
		})
	})
}

// workRoutes covers project children addressed by their own id.
func (s *Server) workRoutes(r chi.Router) {
	r.Route("/sprints/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetSprint)
		r.Group(func(r chi.Router) {
			r.Use(s.requirePermission(auth.PermSprintManage))
			r.Patch("/", s.handleUpdateSprint)
			r.Delete("/", s.handleDeleteSprint)
			r.Post("/start", s.handleStartSprint)
			r.Post("/complete", s.handleCompleteSprint)
		})
	})

	r.Get("/tasks/mine", s.handleMyTasks)
	r.Route("/tasks/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetTask)
		r.With(s.requirePermission(auth.PermTaskWrite)).Patch("/", s.handleUpdateTask)
		r.With(s.requirePermission(auth.PermTaskWrite)).Delete("/", s.handleDeleteTask)
	})

	r.Route("/risks/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetRisk)
		r.With(s.requirePermission(auth.PermRiskWrite)).Patch("/", s.handleUpdateRisk)
		r.With(s.requirePermission(auth.PermRiskWrite)).Delete("/", s.handleDeleteRisk)
	})

	r.Route("/changes/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetChange)
		r.Group(func(r chi.Router) {
			r.Use(s.requirePermission(auth.PermChangeCreate))
			r.Patch("/", s.handleUpdateChange)
			r.Delete("/", s.handleDeleteChange)
			r.Post("/transition", s.handleTransitionChange)
		})
	})

	r.Route("/budget-items/{id}", func(r chi.Router) {
		r.Use(s.requirePermission(auth.PermBudgetManage))
		r.Patch("/", s.handleUpdateBudgetItem)
		r.Delete("/", s.handleDeleteBudgetItem)
	})
}

func (s *Server) assetRoutes(r chi.Router) {
	r.Route("/assets", func(r chi.Router) {
		r.Use(s.requirePermission(auth.PermAssetRead))
		r.Get("/", s.handleListAssets)
		r.Get("/{id}", s.handleGetAsset)

		r.Group(func(r chi.Router) {
			r.Use(s.requirePermission(auth.PermAssetManage))
			r.Post("/", s.handleCreateAsset)
			r.Patch("/{id}", s.handleUpdateAsset)
			r.Delete("/{id}", s.handleDeleteAsset)
			r.Post("/{id}/assign", s.handleAssignAsset)
			r.Post("/{id}/release", s.handleReleaseAsset)
		})
	})
}

func (s *Server) timeRoutes(r chi.Router) {
	r.Route("/time-entries", func(r chi.Router) {
		r.Use(s.requirePermission(auth.PermTimeLog))
		r.Get("/", s.handleListTimeEntries)
		r.Post("/", s.handleCreateTimeEntry)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetTimeEntry)
			r.Patch("/", s.handleUpdateTimeEntry)
			r.Delete("/", s.handleDeleteTimeEntry)
			r.Post("/submit", s.handleSubmitTimeEntry)
			r.With(s.requirePermission(auth.PermTimeApprove)).Post("/approve", s.handleApproveTimeEntry)
			r.With(s.requirePermission(auth.PermTimeApprove)).Post("/reject", s.handleRejectTimeEntry)
		})
	})
}

// handleHealth reports server and database health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	checks := map[string]string{"database": "ok"}

	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			checks["database"] = "unavailable"
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	if s.mqtt != nil {
		checks["mqtt"] = connState(s.mqtt.IsConnected())
	}
	if s.influx != nil {
		checks["influxdb"] = connState(s.influx.IsConnected())
	}

	writeJSON(w, code, map[string]any{
		"status":  status,
		"version": s.version,
		"checks":  checks,
	})
}

func connState(ok bool) string {
	if ok {
		return "connected"
	}
	return "disconnected"
}
