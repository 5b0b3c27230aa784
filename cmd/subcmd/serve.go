package subcmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aceeric/imgmgr/api"
	"github.com/aceeric/imgmgr/impl"
	"github.com/aceeric/imgmgr/impl/config"
	"github.com/aceeric/imgmgr/impl/globals"
	"github.com/aceeric/imgmgr/impl/importer"
	"github.com/aceeric/imgmgr/impl/metrics"
	"github.com/aceeric/imgmgr/impl/notify"

	"github.com/labstack/echo/v4"
	middleware "github.com/oapi-codegen/echo-middleware"
	log "github.com/sirupsen/logrus"
)

const startupBanner = `----------------------------------------------------------------------
Image Manager: firmware image ingestion and version registry
Version: %s, build date: %s
Started: %s (port %d)
Running as (uid:gid) %d:%d
Process id: %d
Upload path: %s
Active version: %s
Notifications: %s
Command line: %v
----------------------------------------------------------------------
`

// listener will be initialized with the Echo listener once the Echo server
// is started.
var listener net.Listener

// Serve runs the image manager, blocking until stopped with CTRL-C or via the
// command REST API.
func Serve(buildVer string, buildDtm string) error {
	swagger, err := api.GetSwagger()
	if err != nil {
		return fmt.Errorf("error loading swagger spec: %s", err)
	}

	// clear out the servers array in the swagger spec, that skips validating
	// that server names match. We don't know how this thing will be run.
	swagger.Servers = nil

	notifier, closeNotifier, err := newNotifier()
	if err != nil {
		return fmt.Errorf("error connecting to NATS at %s: %s", config.GetNatsUrl(), err)
	}
	defer closeNotifier()

	mgr, err := newManager(notifier)
	if err != nil {
		return err
	}

	shutdownCh := make(chan bool)
	imgMgr := impl.NewImgMgr(mgr, config.GetPnorFile(), shutdownCh)

	// Echo router
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Use our validation middleware to check all requests against the OpenAPI schema.
	e.Use(middleware.OapiRequestValidator(swagger))

	api.RegisterHandlers(e, imgMgr)

	e.Use(globals.GetEchoLoggingFunc())

	metrics.InitMetrics(int(config.GetMetrics()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	importerStopped := make(chan bool)
	if config.GetNoWatch() {
		close(importerStopped)
	} else {
		go func() {
			defer close(importerStopped)
			if err := importer.Importer(ctx, mgr.UploadPath(), mgr); err != nil {
				log.Errorf("error running the importer: %s", err)
			}
		}()
	}

	fmt.Fprintf(os.Stderr, startupBanner, buildVer, buildDtm, time.Unix(0, time.Now().UnixNano()), config.GetPort(),
		os.Getuid(), os.Getgid(), os.Getpid(), config.GetUploadPath(), activeMsg(), natsMsg(), strings.Join(os.Args, " "))

	go health()

	// start the API server
	go func() {
		addr := net.JoinHostPort("0.0.0.0", strconv.Itoa(int(config.GetPort())))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server. error:", err)
		}
	}()
	err = waitForEchoListener(e)
	if err != nil {
		return errors.New("timed out waiting for Echo listener")
	}
	listener = getEchoListener(e)
	log.Info("server is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	select {
	case <-shutdownCh:
		log.Infof("received stop command - stopping")
	case sig := <-sigCh:
		log.Infof("received signal %s - stopping", sig)
	}
	cancel()
	<-importerStopped
	e.Server.Shutdown(context.Background())
	log.Infof("stopped")
	return nil
}

// newNotifier returns a notifier that logs and, if a NATS URL is configured,
// also publishes to NATS. The returned func closes the NATS connection.
func newNotifier() (notify.Notifier, func(), error) {
	if config.GetNatsUrl() == "" {
		return notify.LogNotifier{}, func() {}, nil
	}
	nn, err := notify.NewNatsNotifier(config.GetNatsUrl(), config.GetSubjectPrefix())
	if err != nil {
		return nil, nil, err
	}
	return notify.Multi{notify.LogNotifier{}, nn}, nn.Close, nil
}

// activeMsg formats the active version configuration for the startup banner
func activeMsg() string {
	if config.GetActiveVersion() != "" {
		return config.GetActiveVersion() + " (from configuration)"
	}
	return "from " + config.GetReleaseFile()
}

// natsMsg formats the notification configuration for the startup banner
func natsMsg() string {
	if config.GetNatsUrl() == "" {
		return "log"
	}
	return fmt.Sprintf("log, nats=%s, subject prefix=%s", config.GetNatsUrl(), config.GetSubjectPrefix())
}

// health handles the /health endpoint always on plain HTTP and is not part of the
// server itself, hence a separate goroutine running an http server.
func health() {
	if config.GetHealth() != 0 {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		http.ListenAndServe(fmt.Sprintf(":%d", config.GetHealth()), mux)
	}
}

// getEchoListener gets the Echo listener. Supports unit testing.
func getEchoListener(e *echo.Echo) net.Listener {
	return e.Listener
}

// waitForEchoListener waits for the Listener in the Echo server to be initialized. This
// is only used in unit testing so that the unit tests can start the server on ":0" and let
// the http package assign a random port number. Supports unit testing.
func waitForEchoListener(e *echo.Echo) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if getEchoListener(e) != nil {
				return nil
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// GetListener supports unit testing.
func GetListener() net.Listener {
	return listener
}

// InitListener supports unit testing.
func InitListener() {
	listener = nil
}
