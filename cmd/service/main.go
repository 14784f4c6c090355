package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Shoshin-Dev-Ivy/portfolio-backend/internal"
	"github.com/Shoshin-Dev-Ivy/portfolio-backend/internal/config"
	"github.com/Shoshin-Dev-Ivy/portfolio-backend/internal/logging"

	log "github.com/sirupsen/logrus"
)

func main() {
	fmt.Println("starting ...")

	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	flag.Parse()

	log.Warnf("---->> running in [%s] environment", *env)

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		panic(err)
	}

	sentryDSN := os.Getenv("SENTRY_DSN")
	logging.Setup(logging.LoggerSetupParams{
		LogFileName:      cfg.LogsPath,
		LogToStdout:      cfg.LogToStdout,
		LogLevel:         cfg.LogLevel,
		LogFormatJSON:    false,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        sentryDSN,
		SentryServerName: "portfolio-backend",
	})

	log.Debugf("using port: %d", cfg.Port)
	log.Debugf("using server logs path: [%s]", cfg.LogsPath)

	// the admin gate cannot run without these two, refuse to start
	adminKeyHash := os.Getenv("PORTFOLIO_ADMIN_KEY_HASH")
	if adminKeyHash == "" {
		log.Fatalf("admin key hash not set, use PORTFOLIO_ADMIN_KEY_HASH env var to set it")
	}
	tokenSigningSecret := os.Getenv("PORTFOLIO_JWT_SECRET")
	if tokenSigningSecret == "" {
		log.Fatalf("token signing secret not set, use PORTFOLIO_JWT_SECRET env var to set it")
	}

	recaptchaSecret := os.Getenv("PORTFOLIO_RECAPTCHA_SECRET")
	if recaptchaSecret == "" {
		log.Errorf("recaptcha secret not set, use PORTFOLIO_RECAPTCHA_SECRET; contact form will refuse submissions")
	}

	emailUsername := os.Getenv("PORTFOLIO_EMAIL_USER")
	emailPassword := os.Getenv("PORTFOLIO_EMAIL_PASS")
	recipientEmail := os.Getenv("PORTFOLIO_RECIPIENT_EMAIL")
	if emailUsername == "" || emailPassword == "" || recipientEmail == "" {
		log.Errorf("mail transport not fully set, use PORTFOLIO_EMAIL_USER, PORTFOLIO_EMAIL_PASS and PORTFOLIO_RECIPIENT_EMAIL")
	}
	bccEmail := os.Getenv("PORTFOLIO_BCC_EMAIL")

	redisPassword := os.Getenv("PORTFOLIO_REDIS_PASS")
	if redisPassword == "" {
		log.Errorf("redis password not set, use PORTFOLIO_REDIS_PASS")
	}

	versionInfo, err := tryGetLastCommitHash()
	if err != nil {
		log.Tracef("failed to get last commit hash / version info: %s", err)
	} else {
		log.Tracef("running version: %s", versionInfo)
	}

	chOsInterrupt := make(chan os.Signal, 1)
	signal.Notify(chOsInterrupt, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())

	server, err := internal.NewServer(
		ctx,
		internal.NewServerParams{
			Config:             cfg,
			VersionInfo:        versionInfo,
			AdminKeyHash:       adminKeyHash,
			TokenSigningSecret: []byte(tokenSigningSecret),
			RecaptchaSecret:    recaptchaSecret,
			EmailUsername:      emailUsername,
			EmailPassword:      emailPassword,
			RecipientEmail:     recipientEmail,
			BCCEmail:           bccEmail,
			RedisPassword:      redisPassword,
		},
	)
	if err != nil {
		log.Fatalf("new server: %s", err)
	}

	server.Serve(ctx, cfg.Host, cfg.Port)

	receivedSig := <-chOsInterrupt
	log.Warnf("signal [%s] received, shutting down ...", receivedSig)
	cancel()

	server.GracefulShutdown()
}

// tryGetLastCommitHash assumes the built executable runs from the
// project root of a git checkout
func tryGetLastCommitHash() (string, error) {
	cmd := exec.Command("/usr/bin/git", "rev-parse", "HEAD")
	stdout, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(stdout)), nil
}
