package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/battlesnakeio/autosnake/api"
	"github.com/battlesnakeio/autosnake/config"
	"github.com/battlesnakeio/autosnake/controller"
	"github.com/battlesnakeio/autosnake/rules"
	"github.com/battlesnakeio/autosnake/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

var (
	apiListen          = ":3005"
	workerThreads      = 10
	workerPollInterval = 1 * time.Second
	promEnable         = true
	promListen         = ":9000"
)

func init() {
	serverCmd.Flags().StringVarP(&apiListen, "listen", "l", apiListen, "api address to listen on")
	serverCmd.Flags().IntVarP(&workerThreads, "threads", "t", workerThreads, "worker processor threads, this is the amount of concurrent episodes a server can run")
	serverCmd.Flags().DurationVarP(&workerPollInterval, "poll-interval", "p", workerPollInterval, "worker poll interval")
	serverCmd.Flags().BoolVar(&promEnable, "prometheus", promEnable, "enable prometheus metrics")
	serverCmd.Flags().StringVar(&promListen, "prometheus-listen", promListen, "prometheus http endpoint")
	serverCmd.Flags().AddFlagSet(backendFlags())
}

var serverCmd = &cobra.Command{
	Use:    "server",
	Short:  "serves the episode api and runs started episodes",
	PreRun: func(c *cobra.Command, args []string) { prometheus() },
	Run: func(c *cobra.Command, args []string) {
		store, closer, err := openStore(storeBackend, storeBackendArgs, scoresDB)
		if err != nil {
			log.WithError(err).WithField("backend", storeBackend).Fatal("unable to start up backend store")
		}
		defer func() {
			if err := closer.Close(); err != nil {
				log.WithError(err).Error("unable to close store")
			}
		}()

		ctrl := controller.New(controller.InstrumentStore(store))
		ctrl.Size = config.GridSize

		srv := api.New(apiListen, ctrl)
		go srv.WaitForExit()

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			s := <-sig
			log.WithField("signal", s).Info("shutting down")
			cancel()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Warn("api shutdown failed")
			}
		}()

		w := &worker.Worker{
			Controller:   ctrl,
			PollInterval: workerPollInterval,
			PopLimiter:   rate.NewLimiter(config.PopRate, config.PopBurstRate),
			Options: worker.Options{
				TicksPerSecond: config.TicksPerSecond,
				MaxTurns:       config.MaxTurns,
				ExpansionBound: config.ExpansionBound,
				Renderer:       rules.LogRenderer{Logger: log.StandardLogger()},
				Cues:           rules.LogCues{Logger: log.StandardLogger()},
			},
		}

		wg := &sync.WaitGroup{}
		wg.Add(workerThreads)
		for i := 0; i < workerThreads; i++ {
			go func(i int) {
				log.WithField("worker", i).Info("autosnake worker starting")
				w.Run(ctx, i)
				wg.Done()
			}(i)
		}
		wg.Wait()
	},
}

func prometheus() {
	if !promEnable {
		log.Info("prometheus exporter not enabled")
		return
	}

	log.WithField("addr", promListen).Info("starting prometheus exporter")
	go func() {
		r := http.NewServeMux()
		r.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(promListen, r); err != nil {
			log.WithError(err).Warn("prometheus fails to listen")
		}
	}()
}
