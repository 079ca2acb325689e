package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrms/internal/domain/announcements"
	"hrms/internal/domain/assets"
	"hrms/internal/domain/attendance"
	"hrms/internal/domain/audit"
	"hrms/internal/domain/auth"
	"hrms/internal/domain/compliance"
	"hrms/internal/domain/employees"
	"hrms/internal/domain/holidays"
	"hrms/internal/domain/leave"
	"hrms/internal/domain/masterdata"
	"hrms/internal/domain/notifications"
	"hrms/internal/domain/payroll"
	"hrms/internal/domain/reports"
	"hrms/internal/domain/tickets"
	"hrms/internal/domain/timesheets"
	"hrms/internal/domain/users"
	"hrms/internal/domain/workupdates"
	"hrms/internal/platform/cache"
	"hrms/internal/platform/config"
	cryptoutil "hrms/internal/platform/crypto"
	"hrms/internal/platform/db"
	"hrms/internal/platform/email"
	"hrms/internal/platform/errreport"
	"hrms/internal/platform/jobs"
	"hrms/internal/platform/metrics"
	"hrms/internal/platform/queue"
	"hrms/internal/transport/http/api"
	adminhandler "hrms/internal/transport/http/handlers/admin"
	announcementshandler "hrms/internal/transport/http/handlers/announcements"
	assetshandler "hrms/internal/transport/http/handlers/assets"
	attendancehandler "hrms/internal/transport/http/handlers/attendance"
	audithandler "hrms/internal/transport/http/handlers/audit"
	authhandler "hrms/internal/transport/http/handlers/auth"
	compliancehandler "hrms/internal/transport/http/handlers/compliance"
	employeeshandler "hrms/internal/transport/http/handlers/employees"
	holidayshandler "hrms/internal/transport/http/handlers/holidays"
	leavehandler "hrms/internal/transport/http/handlers/leave"
	masterdatahandler "hrms/internal/transport/http/handlers/masterdata"
	notificationshandler "hrms/internal/transport/http/handlers/notifications"
	payrollhandler "hrms/internal/transport/http/handlers/payroll"
	reportshandler "hrms/internal/transport/http/handlers/reports"
	ticketshandler "hrms/internal/transport/http/handlers/tickets"
	timesheetshandler "hrms/internal/transport/http/handlers/timesheets"
	usershandler "hrms/internal/transport/http/handlers/users"
	workupdateshandler "hrms/internal/transport/http/handlers/workupdates"
	"hrms/internal/transport/http/middleware"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

type App struct {
	Config   config.Config
	DB       *pgxpool.Pool
	Router   http.Handler
	Jobs     *jobs.Service
	Metrics  *metrics.Collector
	Reporter *errreport.Reporter
	Redis    *cache.Redis
}

// New connects to the database, prepares the schema when configured to, and
// builds the router. Background jobs are registered but not started.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.RunMigrations {
		if _, err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	cryptoSvc, err := cryptoutil.New(cfg.DataEncryptionKey, cfg.RetiredEncryptionKeys...)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	if !cryptoSvc.Configured() {
		slog.Warn("DATA_ENCRYPTION_KEY not set; sensitive fields and payslips are stored in plain text")
	}

	app := &App{
		Config:   cfg,
		DB:       pool,
		Reporter: errreport.New(cfg.RollbarToken, cfg.Environment, Version),
	}
	if cfg.MetricsEnabled {
		app.Metrics = metrics.New()
	}

	var locker cache.Locker = cache.NewMemoryLocker()
	var jobQueue queue.Queue = queue.NewInMemory(128)
	if cfg.RedisAddr != "" {
		app.Redis = cache.NewRedis(cfg.RedisAddr)
		locker = app.Redis
		if cfg.QueueBackend == "redis" {
			jobQueue = queue.NewRedisQueue(app.Redis.Client, "hrms:jobs")
		}
	}

	app.Jobs = jobs.New(pool, jobQueue)
	app.Jobs.Metrics = app.Metrics
	app.Jobs.Reporter = app.Reporter

	hour, minute, err := cfg.OfficeStartClock()
	if err != nil {
		app.Close()
		return nil, err
	}
	rules := attendance.Rules{
		OfficeStartHour:   hour,
		OfficeStartMinute: minute,
		LateGrace:         cfg.LateGrace,
		HalfDayHours:      cfg.HalfDayHours,
		FullDayHours:      cfg.FullDayHours,
		Location:          time.Local,
	}

	mailer := email.New(cfg)
	auditSvc := audit.New(pool)
	authStore := auth.NewStore(pool)
	authSvc := auth.NewService(authStore, cryptoSvc, cfg.JWTSecret, cfg.JWTTTL)

	notificationsSvc := notifications.New(notifications.NewStore(pool), mailer)
	notificationsSvc.DefaultFrom = cfg.EmailFrom
	holidaysSvc := holidays.NewService(holidays.NewStore(pool))
	employeesSvc := employees.NewService(employees.NewStore(pool, cryptoSvc))
	masterdataSvc := masterdata.NewService(masterdata.NewStore(pool))
	usersSvc := users.NewService(users.NewStore(pool))

	attendanceSvc := attendance.NewService(attendance.NewStore(pool), holidaysSvc, locker, rules, cfg.CheckInDedupWindow)
	attendanceSvc.Metrics = app.Metrics
	leaveSvc := leave.NewService(leave.NewStore(pool), holidaysSvc, notificationsSvc)
	leaveSvc.Metrics = app.Metrics
	timesheetsSvc := timesheets.NewService(timesheets.NewStore(pool), notificationsSvc)
	workupdatesSvc := workupdates.NewService(workupdates.NewStore(pool))
	complianceSvc := compliance.NewService(compliance.NewStore(pool), holidaysSvc, notificationsSvc)
	assetsSvc := assets.NewService(assets.NewStore(pool))
	assetsSvc.Metrics = app.Metrics
	announcementsSvc := announcements.NewService(announcements.NewStore(pool), notificationsSvc)
	announcementsSvc.Metrics = app.Metrics
	payrollSvc := payroll.NewService(payroll.NewStore(pool), holidaysSvc, notificationsSvc, payroll.NewPayslipFiles(cfg.StorageDir, cryptoSvc))
	payrollSvc.Metrics = app.Metrics
	ticketsSvc := tickets.NewService(tickets.NewStore(pool), notificationsSvc)
	ticketsSvc.Metrics = app.Metrics
	reportsSvc := reports.NewService(reports.NewStore(pool), attendanceSvc, leaveSvc, app.Jobs)

	app.Jobs.Register(jobs.JobLeaveAccrual, cfg.LeaveAccrualInterval, func(ctx context.Context) (any, error) {
		return leaveSvc.RunAccruals(ctx)
	})
	app.Jobs.Register(jobs.JobComplianceReminder, cfg.ComplianceReminderInterval, func(ctx context.Context) (any, error) {
		return complianceSvc.SendReminders(ctx)
	})
	app.Jobs.Register(jobs.JobAnnouncementExpiry, cfg.AnnouncementExpiryInterval, func(ctx context.Context) (any, error) {
		return announcementsSvc.ExpireDue(ctx)
	})

	idem := middleware.NewIdempotencyStore(pool)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer(app.Reporter))
	if app.Metrics != nil {
		router.Use(middleware.Metrics(app.Metrics))
	}
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret, authSvc))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.FailStatus(w, http.StatusNotFound, middleware.GetRequestID(r.Context()))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		api.FailStatus(w, http.StatusMethodNotAllowed, middleware.GetRequestID(r.Context()))
	})

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, map[string]string{"status": "ok", "version": Version}, middleware.GetRequestID(r.Context()))
	})
	router.Get("/readyz", app.handleReady)
	if app.Metrics != nil {
		router.Handle("/metrics", app.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

		authhandler.NewHandler(authSvc, mailer, cfg.EmailFrom, cfg.AppBaseURL, auditSvc).RegisterRoutes(r)
		usershandler.NewHandler(usersSvc, authStore, auditSvc).RegisterRoutes(r)
		employeeshandler.NewHandler(employeesSvc, authStore, auditSvc).RegisterRoutes(r)
		masterdatahandler.NewHandler(masterdataSvc, authStore, auditSvc).RegisterRoutes(r)
		holidayshandler.NewHandler(holidaysSvc, authStore, auditSvc).RegisterRoutes(r)
		attendancehandler.NewHandler(attendanceSvc, employeesSvc, authStore, auditSvc).RegisterRoutes(r)
		leavehandler.NewHandler(leaveSvc, employeesSvc, app.Jobs, authStore, auditSvc).RegisterRoutes(r)
		timesheetshandler.NewHandler(timesheetsSvc, authStore, auditSvc).RegisterRoutes(r)
		workupdateshandler.NewHandler(workupdatesSvc, authStore, auditSvc).RegisterRoutes(r)
		compliancehandler.NewHandler(complianceSvc, authStore).RegisterRoutes(r)
		assetshandler.NewHandler(assetsSvc, authStore, auditSvc).RegisterRoutes(r)
		announcementshandler.NewHandler(announcementsSvc, authStore, auditSvc).RegisterRoutes(r)
		payrollhandler.NewHandler(payrollSvc, authStore, auditSvc, idem).RegisterRoutes(r)
		ticketshandler.NewHandler(ticketsSvc, authStore, auditSvc).RegisterRoutes(r)
		notificationshandler.NewHandler(notificationsSvc, authStore, auditSvc).RegisterRoutes(r)
		reportshandler.NewHandler(reportsSvc, authStore).RegisterRoutes(r)
		audithandler.NewHandler(auditSvc, authStore).RegisterRoutes(r)
		adminhandler.NewHandler(func(ctx context.Context) (db.Diagnosis, error) {
			return db.Diagnose(ctx, pool, cfg.MigrationsDir)
		}, app.Jobs, app.Metrics, authStore, auditSvc).RegisterRoutes(r)
	})

	app.Router = router
	return app, nil
}

func (a *App) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	reqID := middleware.GetRequestID(r.Context())
	if err := a.DB.Ping(ctx); err != nil {
		slog.Warn("readiness db ping failed", "err", err)
		api.FailStatus(w, http.StatusServiceUnavailable, reqID)
		return
	}
	if a.Redis != nil && !a.Redis.Healthy(ctx) {
		slog.Warn("readiness redis ping failed")
		api.FailStatus(w, http.StatusServiceUnavailable, reqID)
		return
	}
	api.Success(w, map[string]string{"status": "ready"}, reqID)
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			slog.Warn("redis close failed", "err", err)
		}
	}
	a.Reporter.Flush(2 * time.Second)
	a.DB.Close()
}

// Run serves the API until SIGINT or SIGTERM, then drains in-flight requests.
func Run() error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Jobs.Start(ctx); err != nil {
		return fmt.Errorf("start jobs: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("hrms server listening", "addr", cfg.Addr, "env", cfg.Environment, "version", Version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	slog.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
