package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dascally/skills-getting-started-with-github-copilot/internal/api"
	"github.com/dascally/skills-getting-started-with-github-copilot/internal/catalog"
	"github.com/dascally/skills-getting-started-with-github-copilot/internal/config"
	"github.com/dascally/skills-getting-started-with-github-copilot/internal/domain"
	"github.com/dascally/skills-getting-started-with-github-copilot/internal/i18n"
	"github.com/dascally/skills-getting-started-with-github-copilot/internal/observability"
	"github.com/dascally/skills-getting-started-with-github-copilot/internal/outbox"
	"github.com/dascally/skills-getting-started-with-github-copilot/internal/store"
	httptransport "github.com/dascally/skills-getting-started-with-github-copilot/internal/transport/http"
	"github.com/dascally/skills-getting-started-with-github-copilot/web"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cfg := config.Load()

	seed, err := catalog.LoadFile(cfg.SeedFile)
	if err != nil {
		log.Fatalf("failed to load activity catalog: %v", err)
	}
	repo := store.NewMemoryStore(seed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var publisher domain.Publisher = domain.NoopPublisher{}
	var dispatcher *outbox.Dispatcher
	if cfg.EventsEnabled() {
		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()

		dispatcher = outbox.NewDispatcher(producer, outbox.Config{
			Topic:        cfg.ParticipantEventsTopic,
			PollInterval: cfg.OutboxPollInterval,
			BatchSize:    cfg.OutboxBatchSize,
			QueueSize:    cfg.OutboxQueueSize,
		})
		go dispatcher.Start(ctx)
		publisher = dispatcher
		log.Printf("participant events enabled (topic=%s, brokers=%v)", cfg.ParticipantEventsTopic, cfg.KafkaBrokers)
	}

	var opts []domain.Option
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
		metrics.SeedParticipants(seed)
		opts = append(opts, domain.WithObserver(metrics))
		metricsHandler = promhttp.Handler()
	}

	service := domain.NewService(repo, publisher, opts...)
	handler := api.NewHandler(service, i18n.NewTranslator(cfg.DefaultLocale))
	router := api.NewRouter(handler, api.RouterConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Static:         web.Static(),
		Metrics:        metricsHandler,
	})

	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress), router)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("activities api listening on %s (%d activities)", cfg.HTTPAddress, len(seed))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	// Stop the outbox only after in-flight requests have published their events.
	cancel()
	if dispatcher != nil {
		dispatcher.Wait()
	}
}
