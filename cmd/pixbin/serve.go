package main

import (
	"encoding/base64"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pixbin/pixbin/pkg/authn"
	"github.com/pixbin/pixbin/pkg/blob"
	"github.com/pixbin/pixbin/pkg/config"
	"github.com/pixbin/pixbin/pkg/saml"
	"github.com/pixbin/pixbin/pkg/session"
	"github.com/pixbin/pixbin/pkg/util"
	"github.com/pixbin/pixbin/pkg/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the service provider",
	Run: func(cmd *cobra.Command, args []string) {
		godotenv.Load()

		cfg, err := config.Load(util.GetEnv("PIXBIN_CONFIG_PATH", "pixbin.yaml"))
		if err != nil {
			log.Fatal(err)
		}

		verifier, err := newVerifier(cfg)
		if err != nil {
			log.Fatal(err)
		}

		tokens, err := newTokenPolicy(cfg)
		if err != nil {
			log.Fatal(err)
		}

		store, err := blob.NewDir(cfg.DataDir)
		if err != nil {
			log.Fatal(err)
		}

		sessions := authn.NewMemorySessionStore(
			cfg.MaxSessions,
			time.Duration(cfg.PendingTTLSeconds)*time.Second,
			session.CookieTTL,
		)
		broker := authn.NewBroker(verifier, sessions)
		gateway := session.NewGateway(broker, tokens)

		e := echo.New()
		e.HideBanner = true
		e.Validator = &CustomValidator{validator: validator.New()}
		e.Use(middleware.Recover())
		e.Use(middleware.Logger())
		e.Renderer = web.NewRenderer()

		web.NewHandlers(gateway, store).MountRoutes(e)

		slog.Info("Starting pixbin", "addr", cfg.Address, "verifier", cfg.Verifier)
		log.Fatal(e.Start(cfg.Address))
	},
}

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func newVerifier(cfg *config.Config) (saml.Verifier, error) {
	if cfg.Verifier == config.VerifierAcceptAll {
		return saml.NewInsecureAcceptAllVerifier(cfg.SAML)
	}
	return saml.NewServiceProviderVerifier(cfg.SAML)
}

func newTokenPolicy(cfg *config.Config) (session.TokenPolicy, error) {
	if cfg.TokenPolicy != config.TokenPolicySigned {
		return session.PlainTokens{}, nil
	}
	secret, err := base64.RawURLEncoding.DecodeString(cfg.TokenSecret)
	if err != nil {
		return nil, err
	}
	return session.NewSignedTokens(secret)
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
