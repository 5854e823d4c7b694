package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/extendi/gitlab-mirror-pull/internal/config"
	"github.com/extendi/gitlab-mirror-pull/internal/daemon"
	"github.com/extendi/gitlab-mirror-pull/internal/dontpanic"
	"github.com/extendi/gitlab-mirror-pull/internal/gitlab"
	internallog "github.com/extendi/gitlab-mirror-pull/internal/log"
	"github.com/extendi/gitlab-mirror-pull/internal/mirror"
	"github.com/extendi/gitlab-mirror-pull/internal/notify"
	"github.com/extendi/gitlab-mirror-pull/internal/pipeline"
	"github.com/extendi/gitlab-mirror-pull/internal/sentry"
	"github.com/extendi/gitlab-mirror-pull/internal/version"
	"github.com/extendi/gitlab-mirror-pull/internal/webhook"
)

var (
	flagVersion = flag.Bool("version", false, "Print version and exit")
	flagOnce    = flag.Bool("once", false, "Run a single mirror pass and exit")
)

func loadConfig(configPath string) (config.Cfg, error) {
	cfgFile, err := os.Open(configPath)
	if err != nil {
		return config.Cfg{}, err
	}
	defer cfgFile.Close()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Cfg{}, err
	}

	if err := cfg.Validate(); err != nil {
		return config.Cfg{}, err
	}

	return cfg, nil
}

// registerBuildInfoPromGauge registers a label with the current build version
// making it easy to see what versions are running across a fleet of mirrors
func registerBuildInfoPromGauge() {
	buildInfoGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gitlab_mirror_pull_build_info",
		Help: "Current build info for this gitlab-mirror-pull instance",
		ConstLabels: prometheus.Labels{
			"version": version.GetVersion(),
			"built":   version.GetBuildTime(),
		},
	})

	prometheus.MustRegister(buildInfoGauge)
	buildInfoGauge.Set(1)
}

func flagUsage() {
	fmt.Println(version.GetVersionString())
	fmt.Printf("Usage: %v [OPTIONS] configfile\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = flagUsage
	flag.Parse()

	// If invoked with -version
	if *flagVersion {
		fmt.Println(version.GetVersionString())
		os.Exit(0)
	}

	if flag.NArg() != 1 || flag.Arg(0) == "" {
		flag.Usage()
		os.Exit(2)
	}

	configPath := flag.Arg(0)
	cfg, err := loadConfig(configPath)
	if err != nil {
		log.WithError(err).WithField("config_path", configPath).Fatal("load config")
	}

	internallog.Configure(internallog.Loggers, cfg.Logging.Format, cfg.Logging.Level)
	sentry.ConfigureSentry(version.GetVersion(), cfg.Logging.SentryDSN, cfg.Logging.SentryEnvironment)
	registerBuildInfoPromGauge()

	log.WithField("version", version.GetVersionString()).Info("Starting gitlab-mirror-pull")

	orchestrator := mirror.NewOrchestrator(mirror.NewGitFetcher(), cfg.Fetch.Providers, cfg.Fetch.Workers)
	notifier := notify.ForConfig(cfg.Notifications)

	var pipelineClient gitlab.Client
	if len(cfg.Pipeline.Triggers) > 0 {
		pipelineClient, err = gitlab.NewHTTPClient(cfg.Pipeline)
		if err != nil {
			log.WithError(err).Fatal("create pipeline API client")
		}
	}
	trigger := pipeline.NewTrigger(pipelineClient, cfg.Pipeline.Triggers)

	d := daemon.New(cfg.Mirror, cfg.Fetch.Interval.Duration(), orchestrator, trigger, notifier)

	if *flagOnce {
		report := d.RunOnce(context.Background())
		if len(report.Failures()) > 0 {
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if addr := cfg.PrometheusListenAddr; addr != "" {
		log.WithField("address", addr).Info("starting prometheus listener")

		promMux := http.NewServeMux()
		promMux.Handle("/metrics", promhttp.Handler())

		dontpanic.Go(func() {
			if err := http.ListenAndServe(addr, promMux); err != nil {
				log.WithError(err).Fatal("Unable to serve prometheus")
			}
		})
	}

	if addr := cfg.Webhook.ListenAddr; addr != "" {
		log.WithField("address", addr).Info("starting webhook listener")

		server := &http.Server{
			Addr:    addr,
			Handler: webhook.NewHandler(cfg.Mirror.Root, orchestrator, trigger, notifier),
		}

		go func() {
			<-ctx.Done()
			server.Close()
		}()

		dontpanic.Go(func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Fatal("Unable to serve webhooks")
			}
		})
	}

	d.Run(ctx)

	log.Info("shutting down")
}
