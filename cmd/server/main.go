package main

import (
	"context"
	"log"
	"os"
	"runtime/debug"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"github.com/storekit/platform/internal/server"
	"github.com/storekit/platform/modules"
	"github.com/storekit/platform/modules/hosting"
	awsinfra "github.com/storekit/platform/modules/hosting/infrastructure/aws"
	"github.com/storekit/platform/modules/hosting/services"
	"github.com/storekit/platform/pkg/application"
	"github.com/storekit/platform/pkg/composables"
	"github.com/storekit/platform/pkg/configuration"
	"github.com/storekit/platform/pkg/constants"
	"github.com/storekit/platform/pkg/eventbus"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}

	gateways, err := awsinfra.NewGateways(conf)
	if err != nil {
		log.Fatalf("failed to create cloud gateways: %v", err)
	}

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})

	if err := modules.Load(app, hosting.Gateways{
		ObjectStore: gateways.ObjectStore,
		CDN:         gateways.CDN,
		DNS:         gateways.DNSZone,
		Certs:       gateways.Certs,
	}); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}

	if conf.CertReconciler.Enabled {
		certService := app.Service(services.CertificateService{}).(*services.CertificateService)
		reconcilerCtx := composables.WithPool(context.Background(), pool)
		reconcilerCtx = context.WithValue(reconcilerCtx, constants.LoggerKey, logger.WithField("component", "cert-reconciler"))
		go certService.RunReconciler(reconcilerCtx)
	}

	serverInstance, err := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Pool:          pool,
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	logger.Infof("starting server on %s", conf.SocketAddress)
	if err := serverInstance.Start(conf.SocketAddress); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
