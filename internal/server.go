package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Shoshin-Dev-Ivy/portfolio-backend/internal/auth"
	"github.com/Shoshin-Dev-Ivy/portfolio-backend/internal/config"
	"github.com/Shoshin-Dev-Ivy/portfolio-backend/internal/contact"
	"github.com/Shoshin-Dev-Ivy/portfolio-backend/internal/db"
	"github.com/Shoshin-Dev-Ivy/portfolio-backend/internal/instrumentation"
	"github.com/Shoshin-Dev-Ivy/portfolio-backend/internal/maintenance"
	"github.com/Shoshin-Dev-Ivy/portfolio-backend/internal/middleware"
	"github.com/Shoshin-Dev-Ivy/portfolio-backend/pkg"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config *config.Config
	dbPool *pgxpool.Pool

	redisClient *redis.Client
	authService *auth.Service

	contactVerifier *contact.Verifier
	contactSender   contact.Sender

	instr        *instrumentation.Instrumentation
	promRegistry *prometheus.Registry
}

type NewServerParams struct {
	Config      *config.Config
	VersionInfo string

	// admin gate secrets, read from the environment by main
	AdminKeyHash       string
	TokenSigningSecret []byte

	RecaptchaSecret string

	EmailUsername  string
	EmailPassword  string
	RecipientEmail string
	BCCEmail       string

	RedisPassword string
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost: params.Config.PostgresHost,
		DBPort: params.Config.PostgresPort,
		DBName: params.Config.PostgresDBName,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": params.Config.PostgresDBName},
	)
	promRegistry := instrumentation.SetupPrometheus(pgxpoolCollector)
	instr := instrumentation.New("portfolio", "backend", promRegistry)
	instr.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	verifyURL := params.Config.CaptchaVerifyURL
	if verifyURL == "" {
		verifyURL = contact.DefaultVerifyURL
	}

	s := &Server{
		config:      params.Config,
		versionInfo: params.VersionInfo,
		dbPool:      dbPool,
		redisClient: rdb,

		authService: auth.NewService(params.AdminKeyHash, params.TokenSigningSecret),

		contactVerifier: contact.NewVerifier(verifyURL, params.RecaptchaSecret, http.DefaultClient),
		contactSender: contact.NewSMTPSender(contact.SMTPSenderParams{
			Host:      params.Config.SMTPHost,
			Port:      params.Config.SMTPPort,
			Username:  params.EmailUsername,
			Password:  params.EmailPassword,
			Recipient: params.RecipientEmail,
			BCC:       params.BCCEmail,
		}),

		instr:        instr,
		promRegistry: promRegistry,
	}

	return s, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleRoot).Methods("GET", "OPTIONS").Name("root")

	adminGuard := middleware.NewAuthMiddlewareHandler(auth.CookieName, s.authService).AuthCheck()

	authHandler := auth.NewHandler(s.authService, s.config.IsProduction())
	authHandler.SetupRoutes(r, adminGuard)

	maintenanceHandler := maintenance.NewHandler(maintenance.NewRepo(s.dbPool))
	maintenanceHandler.SetupRoutes(r, adminGuard)

	contactRateLimit := middleware.RateLimitPerClient(
		redis_rate.NewLimiter(s.redisClient),
		s.instr,
		middleware.RateLimitParams{
			KeyPrefix:      "contact",
			MaxRequests:    s.config.ContactRateLimitMax,
			Window:         time.Duration(s.config.ContactRateLimitWindowMins) * time.Minute,
			BypassLoopback: !s.config.IsProduction(),
		},
	)
	contactHandler := contact.NewHandler(
		s.contactVerifier,
		s.contactSender,
		s.config.CaptchaHostnames,
		s.instr,
	)
	contactHandler.SetupRoutes(r, contactRateLimit)

	// all the rest - unhandled paths
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		pkg.WriteJSONError(w, "ROUTE_NOT_FOUND", "route not found", http.StatusNotFound)
	})

	r.Use(middleware.PanicRecovery(s.instr))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.instr))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	info := struct {
		Name      string   `json:"name"`
		Status    string   `json:"status"`
		Version   string   `json:"version"`
		Endpoints []string `json:"endpoints"`
	}{
		Name:    "portfolio-backend",
		Status:  "ok",
		Version: s.versionInfo,
		Endpoints: []string{
			"GET /",
			"GET /maintenance",
			"POST /maintenance/toggle",
			"POST /admin/login",
			"GET /admin/check",
			"POST /admin/logout",
			"POST /contact",
		},
	}

	infoJson, err := json.Marshal(info)
	if err != nil {
		log.Errorf("handle root, marshal info: %s", err)
		pkg.WriteJSONError(w, "SERVER_ERROR", "internal error", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, string(infoJson))
}

func (s *Server) Serve(_ context.Context, host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.instr.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.instr.GaugeLifeSignal.Set(0)

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.instr.GaugeRequests.Add(1)
	case http.StateClosed:
		s.instr.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
