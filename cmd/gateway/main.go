package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coursedeck/authgate/backend"
	"github.com/coursedeck/authgate/internal/config"
	"github.com/coursedeck/authgate/server"
	"github.com/coursedeck/authgate/sessions"
	"github.com/coursedeck/authgate/token"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("error running gateway")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("gateway stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	if os.Getenv("ENCRYPTION_KEY") == "" {
		log.Warn().Msg("ENCRYPTION_KEY unset; using the built-in fallback key (not for production)")
	}

	cookies := sessions.NewCookieStore(
		c.GetSessionCookieName(),
		sessionCodec(c),
		c.GetEnv() == "PROD",
		int(c.GetSessionMaxAge().Seconds()),
	)
	tokens := token.NewCodec(c.GetJWTSecret(), log.Logger)
	api := backend.NewClient(c.GetBackendURL(), nil, log.Logger)
	rules := server.ParseGuardRules(c.GetProtectedRoutes())

	gateway := &http.Server{Addr: c.GetPort(), Handler: server.New(c, api, tokens, cookies, rules, log.Logger)}
	go listenAndServe(gateway)
	waitForStopSignal()
	return shutdown(gateway)
}

func sessionCodec(c config.Config) sessions.Codec {
	if c.GetSessionCodec() == "aead" {
		return sessions.NewAEADCodec(c.GetEncryptionKey())
	}
	return sessions.NewXORCodec(c.GetEncryptionKey())
}

func setupLogging(c config.Config) {
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("gateway listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
