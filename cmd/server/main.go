package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/timekeeper/migrations"
	"github.com/iota-uz/timekeeper/modules/attendance/domain/aggregates/attendancerecord"
	attendancehandlers "github.com/iota-uz/timekeeper/modules/attendance/handlers"
	attendancepersistence "github.com/iota-uz/timekeeper/modules/attendance/infrastructure/persistence"
	attendanceservices "github.com/iota-uz/timekeeper/modules/attendance/services"
	"github.com/iota-uz/timekeeper/modules/core/domain/aggregates/user"
	corepersistence "github.com/iota-uz/timekeeper/modules/core/infrastructure/persistence"
	coreservices "github.com/iota-uz/timekeeper/modules/core/services"
	"github.com/iota-uz/timekeeper/modules/leave/domain/aggregates/leaverequest"
	leavehandlers "github.com/iota-uz/timekeeper/modules/leave/handlers"
	leavepersistence "github.com/iota-uz/timekeeper/modules/leave/infrastructure/persistence"
	leaveservices "github.com/iota-uz/timekeeper/modules/leave/services"
	loggingpersistence "github.com/iota-uz/timekeeper/modules/logging/infrastructure/persistence"
	loggingservices "github.com/iota-uz/timekeeper/modules/logging/services"
	"github.com/iota-uz/timekeeper/modules/notification/channels"
	"github.com/iota-uz/timekeeper/modules/notification/domain/entities/notification"
	notificationpersistence "github.com/iota-uz/timekeeper/modules/notification/infrastructure/persistence"
	notificationservices "github.com/iota-uz/timekeeper/modules/notification/services"
	"github.com/iota-uz/timekeeper/modules/workflow/domain/definition"
	workflowpersistence "github.com/iota-uz/timekeeper/modules/workflow/infrastructure/persistence"
	workflowservices "github.com/iota-uz/timekeeper/modules/workflow/services"
	"github.com/iota-uz/timekeeper/pkg/composables"
	"github.com/iota-uz/timekeeper/pkg/configuration"
	"github.com/iota-uz/timekeeper/pkg/eskiz"
	"github.com/iota-uz/timekeeper/pkg/eventbus"
	"github.com/iota-uz/timekeeper/pkg/httpapi"
	"github.com/iota-uz/timekeeper/pkg/intl"
)

func main() {
	conf := configuration.Use()
	logger := conf.Logger()

	if err := run(conf, logger); err != nil {
		logger.WithError(err).Fatal("server exited with error")
	}
}

func run(conf *configuration.Configuration, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := migrate(ctx, conf); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}

	pool, err := pgxpool.New(ctx, conf.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}
	defer pool.Close()

	registry, err := loadRegistry(ctx, pool)
	if err != nil {
		return fmt.Errorf("failed to load workflow definitions: %w", err)
	}
	logger.WithField("entity_types", registry.EntityTypes()).Info("workflow registry loaded")

	bus := eventbus.NewEventPublisher(logger)
	engine := workflowservices.NewWorkflowEngine(registry)

	userRepo := corepersistence.NewUserRepository()
	attendanceRepo := attendancepersistence.NewAttendanceRepository()
	leaveRepo := leavepersistence.NewLeaveRequestRepository()
	workflowLogRepo := workflowpersistence.NewWorkflowLogRepository()
	auditRepo := loggingpersistence.NewAuditLogRepository()
	notificationRepo := notificationpersistence.NewNotificationRepository()

	auditService := loggingservices.NewAuditService(auditRepo)
	workflowLogService := workflowservices.NewWorkflowLogService(workflowLogRepo)
	notificationService := notificationservices.NewNotificationService(notificationRepo, userRepo, logger)
	ws := registerChannels(conf, notificationService, logger)

	attendance := attendanceservices.NewAttendanceService(attendanceRepo, userRepo, engine, bus)
	leave := leaveservices.NewLeaveRequestService(leaveRepo, userRepo, engine, bus)
	users := coreservices.NewUserQueryService(userRepo)

	bundle, err := intl.NewBundle()
	if err != nil {
		return fmt.Errorf("failed to load locale bundle: %w", err)
	}
	attendancehandlers.RegisterAttendanceEventsHandler(bus, pool, auditService, workflowLogService, notificationService, bundle, logger)
	leavehandlers.RegisterLeaveEventsHandler(bus, pool, auditService, workflowLogService, notificationService, bundle, logger)

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		_ = httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			_ = httpapi.WriteError(w, http.StatusServiceUnavailable, "DB_UNAVAILABLE", err.Error(), nil)
			return
		}
		_ = httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}).Methods(http.MethodGet)
	router.HandleFunc("/ops/stats", func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := uuid.Parse(r.URL.Query().Get("tenant_id"))
		if err != nil {
			_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_TENANT_ID", "tenant_id must be a uuid", nil)
			return
		}
		opsCtx := composables.WithTenantID(composables.WithPool(r.Context(), pool), tenantID)
		attendanceTotal, err := attendance.Count(opsCtx, &attendancerecord.FindParams{})
		if err != nil {
			_ = httpapi.WriteServiceError(w, http.StatusInternalServerError, "STATS_FAILED", err)
			return
		}
		leaveTotal, err := leave.Count(opsCtx, &leaverequest.FindParams{})
		if err != nil {
			_ = httpapi.WriteServiceError(w, http.StatusInternalServerError, "STATS_FAILED", err)
			return
		}
		userTotal, err := users.Count(opsCtx, &user.FindParams{})
		if err != nil {
			_ = httpapi.WriteServiceError(w, http.StatusInternalServerError, "STATS_FAILED", err)
			return
		}
		_ = httpapi.WriteJSON(w, http.StatusOK, map[string]int64{
			"attendance_records": attendanceTotal,
			"leave_requests":     leaveTotal,
			"users":              userTotal,
		})
	}).Methods(http.MethodGet)
	if ws != nil {
		router.Handle("/ws/notifications", ws)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", conf.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", server.Addr).Info("server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func migrate(ctx context.Context, conf *configuration.Configuration) error {
	db, err := sql.Open("pgx", conf.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return migrations.Run(ctx, db)
}

func loadRegistry(ctx context.Context, pool *pgxpool.Pool) (*definition.Registry, error) {
	repo := workflowpersistence.NewDefinitionRepository()
	definitions, err := repo.GetAll(composables.WithPool(ctx, pool))
	if err != nil {
		return nil, err
	}
	return definition.NewRegistry(definitions), nil
}

// registerChannels wires every enabled delivery channel. The dummy channel
// always registers so unit-level smoke checks have a guaranteed sink.
func registerChannels(conf *configuration.Configuration, svc *notificationservices.NotificationService, logger *logrus.Logger) *channels.WebsocketChannel {
	svc.RegisterChannel(notification.TypeDummy, channels.NewDummyChannel())

	if conf.Notifications.EmailEnabled && conf.SMTP.Configured() {
		svc.RegisterChannel(notification.TypeEmail, channels.NewEmailChannel(conf.SMTP))
	}

	var ws *channels.WebsocketChannel
	if conf.Notifications.WebsocketEnabled {
		ws = channels.NewWebsocketChannel(logger)
		svc.RegisterChannel(notification.TypeWebsocket, ws)
	}

	if conf.Notifications.SMSEnabled && conf.Eskiz.Configured() {
		sender := eskiz.NewSender(eskiz.NewConfig(conf.Eskiz.Email, conf.Eskiz.Password, conf.Eskiz.Sender))
		svc.RegisterChannel(notification.TypeSMS, channels.NewSMSChannel(sender))
	}
	return ws
}
