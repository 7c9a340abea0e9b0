// tls-watcher polls a Gmail mailbox for TLScontact appointment emails and
// forwards alerts to a Telegram chat.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/gmail/v1"

	"github.com/VIGABANC/tls-gmail-watcher/internal/auth"
	"github.com/VIGABANC/tls-gmail-watcher/internal/config"
	"github.com/VIGABANC/tls-gmail-watcher/internal/gservice"
	"github.com/VIGABANC/tls-gmail-watcher/internal/notify"
	"github.com/VIGABANC/tls-gmail-watcher/internal/store"
	"github.com/VIGABANC/tls-gmail-watcher/internal/watch"
	"github.com/VIGABANC/tls-gmail-watcher/internal/web"
)

func main() {
	httpAddr := flag.String("http-addr", "", "HTTP server listen addr (defaults to 0.0.0.0:$PORT)")
	oauthTokenFile := flag.String("oauth-token-file", "", "Path to cache google oauth token; enables the interactive consent flow when GOOGLE_REFRESH_TOKEN is not set")
	envFileParam := flag.String("env-file", "", "Path to env file")
	runOnce := flag.Bool("once", false, "Run a single poll cycle, print its stats and exit")

	flag.Parse()

	if *envFileParam != "" {
		if err := godotenv.Load(*envFileParam); err != nil {
			panic(fmt.Errorf("godotenv.Load failed: %w", err))
		}
	}

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("config.Load failed: %w", err))
	}

	logger := setupLogger(cfg.LogLevel)

	addr := *httpAddr
	if addr == "" {
		addr = fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	}
	ln := mustListen(addr)

	oauthCfg := mustCreateOauthCfg(cfg, ln.Addr().String())

	tok, err := newToken(cfg, oauthCfg, *oauthTokenFile)
	if err != nil {
		panic(fmt.Errorf("newToken failed: %w", err))
	}

	defer func() {
		if err := tok.Persist(); err != nil {
			logger.Error().Err(err).Msg("tok.Persist failed")
		}
	}()

	st, err := store.NewSQLite(cfg.StorePath, logger)
	if err != nil {
		panic(fmt.Errorf("store.NewSQLite failed: %w", err))
	}
	defer func() { _ = st.Close() }()

	if err := cfg.ValidateTelegram(); err != nil {
		panic(err)
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RateRefillPerSec), cfg.RateCapacity)

	tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, limiter, logger)
	if err != nil {
		panic(fmt.Errorf("notify.NewTelegram failed: %w", err))
	}

	gm := gservice.NewGmail(oauthCfg, tok, cfg.GoogleUserEmail)

	watcher := watch.New(gm, tg, st, watch.Options{
		Query:            cfg.PollQuery,
		Limit:            cfg.PollLimit,
		MaxSendsPerRun:   cfg.PollMaxSendsPerRun,
		SearchInAnywhere: cfg.SearchInAnywhere,
		QueryExtra:       cfg.SearchQueryExtra,
		RetentionDays:    cfg.RetentionDays,
	}, logger)

	if *runOnce {
		stats, err := watcher.RunCycle(context.Background())
		if err != nil {
			logger.Fatal().Err(err).Msg("poll cycle failed")
		}
		out, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(out))
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/oauth", auth.NewHTTPHandler(tok))
	web.NewHandler(watcher, tg, logger).Register(mux)

	srv := &http.Server{Handler: mux}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGTERM, syscall.SIGINT)

	if _, err := tok.OAuthToken(); errors.Is(err, auth.ErrTokenNotSet) {
		openBrowser(fmt.Sprintf("http://%s/oauth", ln.Addr().String()), logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.EnableContinuous {
		go func() {
			interval := time.Duration(cfg.PollIntervalMinutes) * time.Minute
			_ = watcher.Run(ctx, interval)
		}()
	}

	stopHTTP, errHTTPCh := serveHTTP(srv, ln, logger)
	defer stopHTTP()

	select {
	case err := <-errHTTPCh:
		logger.Error().Err(err).Msg("http server error")
	case <-shutdown:
		logger.Info().Msg("shutdown signal received")
	}
}

func newToken(cfg *config.Config, oauthCfg *oauth2.Config, tokenFile string) (*auth.Token, error) {
	if tokenFile != "" {
		return auth.NewToken(oauthCfg, tokenFile)
	}
	if err := cfg.ValidateGoogle(); err != nil {
		return nil, fmt.Errorf("%w (or pass -oauth-token-file for the interactive consent flow)", err)
	}

	return auth.NewTokenFromRefresh(oauthCfg, cfg.GoogleRefreshToken)
}

func serveHTTP(srv *http.Server, ln net.Listener, logger zerolog.Logger) (func(), <-chan error) {
	errHTTPCh := make(chan error, 1)
	go func() {
		defer close(errHTTPCh)

		logger.Info().Str("addr", ln.Addr().String()).Msg("starting http server")

		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			err = fmt.Errorf("srv.Serve failed: %w", err)
			logger.Error().Err(err).Msg("http server stopped")
			errHTTPCh <- err
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("srv.Shutdown failed")
		}

		<-errHTTPCh
		logger.Info().Msg("http server stopped")
	}, errHTTPCh
}

func mustListen(addr string) net.Listener {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		panic(fmt.Errorf("net.Listen failed: %w", err))
	}

	return ln
}

func mustCreateOauthCfg(cfg *config.Config, lnAddr string) *oauth2.Config {
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		panic("Env variables GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set")
	}

	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  fmt.Sprintf("http://%s/oauth", lnAddr),
		Scopes:       []string{gmail.GmailReadonlyScope},
		Endpoint:     google.Endpoint,
	}
}

func setupLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(lvl)
	zlog.Logger = logger

	return logger
}

func openBrowser(url string, logger zerolog.Logger) {
	url = fmt.Sprintf("%s?redirect=1", url)
	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform")
	}

	if err != nil {
		logger.Warn().Err(err).Str("url", url).Msg("could not open browser automatically; open the link manually")
	}
}
