package main

import (
	"context"
	"net/http"

	apis "github.com/antinvestor/apis/go/common"
	profilev1 "github.com/antinvestor/apis/go/profile/v1"
	"github.com/antinvestor/service-account/config"
	"github.com/antinvestor/service-account/hydra"
	"github.com/antinvestor/service-account/service/business"
	"github.com/antinvestor/service-account/service/handlers"
	"github.com/antinvestor/service-account/service/repository"
	"github.com/pitabwire/frame"
	"github.com/pitabwire/util"
)

func main() {

	ctx := context.Background()
	serviceName := "service_account"

	cfg, err := frame.ConfigLoadWithOIDC[config.AccountConfig](ctx)
	if err != nil {
		util.Log(ctx).WithError(err).Fatal("could not process configs")
		return
	}

	ctx, svc := frame.NewServiceWithContext(ctx, serviceName, frame.WithConfig(&cfg))
	log := svc.Log(ctx)

	serviceOptions := []frame.Option{frame.WithDatastore()}

	// Handle database migration if requested
	if handleDatabaseMigration(ctx, svc, cfg, log) {
		return
	}

	err = svc.RegisterForJwt(ctx)
	if err != nil {
		log.WithError(err).Fatal("main -- could not register for jwt")
	}

	profileCli, err := profilev1.NewProfileClient(ctx,
		apis.WithEndpoint(cfg.ProfileServiceURI),
		apis.WithTokenEndpoint(cfg.GetOauth2TokenEndpoint()),
		apis.WithTokenUsername(svc.JwtClientID()),
		apis.WithTokenPassword(svc.JwtClientSecret()),
		apis.WithScopes(frame.ConstInternalSystemScope),
		apis.WithAudiences("service_profile"))
	if err != nil {
		log.WithError(err).Fatal("could not setup profile service client")
	}

	idpCli := hydra.NewDefaultHydra(http.DefaultClient, cfg.GetOauth2ServiceAdminURI())

	codeSender := business.NewWebhookCodeSender(cfg.CodeDeliveryURI, http.DefaultClient)

	srv := handlers.NewAccountServer(ctx, svc, &cfg, profileCli, idpCli, codeSender)

	defaultServer := frame.WithHTTPHandler(srv.SetupRouterV1())
	serviceOptions = append(serviceOptions, defaultServer)

	svc.Init(ctx, serviceOptions...)

	log.WithField("server http port", cfg.HTTPPort()).
		WithField("server grpc port", cfg.GrpcPort()).
		Info(" Initiating server operations")
	err = svc.Run(ctx, "")
	if err != nil {
		log.WithError(err).Error("could not run service")
	}
}

// handleDatabaseMigration performs database migration if configured to do so.
func handleDatabaseMigration(
	ctx context.Context,
	svc *frame.Service,
	cfg config.AccountConfig,
	log *util.LogEntry,
) bool {
	serviceOptions := []frame.Option{frame.WithDatastore()}

	if cfg.DoDatabaseMigrate() {
		svc.Init(ctx, serviceOptions...)

		err := repository.Migrate(ctx, svc, cfg.GetDatabaseMigrationPath())
		if err != nil {
			log.WithError(err).Fatal("main -- Could not migrate successfully")
		}
		return true
	}
	return false
}
