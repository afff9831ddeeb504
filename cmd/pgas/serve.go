package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/dep2p/go-pgas/config"
	"github.com/dep2p/go-pgas/internal/core/metrics"
	"github.com/dep2p/go-pgas/internal/core/rendezvous"
	"github.com/dep2p/go-pgas/internal/core/storage"
)

// serveOptions serve 命令参数
type serveOptions struct {
	configFile  string
	listen      string
	npes        int
	namespace   string
	dataDir     string
	backend     string
	maxWait     time.Duration
	metricsAddr string
	exitDone    bool
}

// newServeCommand 创建 serve 命令
func newServeCommand() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a rendezvous service for one job",
		Long: `Run a rendezvous service that assigns ranks, stores published keys and
implements barriers for a job of --npes processes.

Example:
  pgas serve --listen :7070 --npes 8
  pgas serve --npes 8 --backend badger --data-dir ./data --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts, cmd)
		},
	}

	def := rendezvous.DefaultPointConfig()
	cmd.Flags().StringVar(&opts.configFile, "config", "", "config file (storage section is used)")
	cmd.Flags().StringVar(&opts.listen, "listen", def.ListenAddr, "listen address")
	cmd.Flags().IntVar(&opts.npes, "npes", 0, "number of processes in the job (required)")
	cmd.Flags().StringVar(&opts.namespace, "namespace", "", "job namespace (default: random)")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "data directory for the badger backend")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "storage backend (memory|badger)")
	cmd.Flags().DurationVar(&opts.maxWait, "max-wait", def.MaxServerWait, "longest server-side wait per blocking request")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	cmd.Flags().BoolVar(&opts.exitDone, "exit-when-done", false, "exit after every process has left the job")
	_ = cmd.MarkFlagRequired("npes")

	return cmd
}

// storageOptions 合并配置文件与命令行参数
func (o *serveOptions) storageOptions() (storage.Options, error) {
	sc := config.DefaultStorageConfig()
	if o.configFile != "" {
		cfg, err := config.Load(o.configFile)
		if err != nil {
			return storage.Options{}, err
		}
		sc = cfg.Storage
	}
	if o.backend != "" {
		sc.Backend = o.backend
	}
	if o.dataDir != "" {
		sc.DataDir = o.dataDir
		if o.backend == "" {
			sc.Backend = string(storage.BackendBadger)
		}
	}
	if err := sc.Validate(); err != nil {
		return storage.Options{}, err
	}
	return storage.Options{
		Backend:    storage.Backend(sc.Backend),
		DataDir:    sc.DataDir,
		SyncWrites: sc.SyncWrites,
	}, nil
}

// server 运行中的 rendezvous 服务
type server struct {
	point       *rendezvous.Point
	store       *rendezvous.Store
	metricsAddr string
	closers     []func() error
}

// startServer 打开存储并启动 rendezvous point
func startServer(ctx context.Context, opts *serveOptions) (*server, error) {
	if opts.npes <= 0 {
		return nil, fmt.Errorf("--npes must be positive, got %d", opts.npes)
	}
	pc := rendezvous.PointConfig{ListenAddr: opts.listen, MaxServerWait: opts.maxWait}
	if err := pc.Validate(); err != nil {
		return nil, err
	}
	so, err := opts.storageOptions()
	if err != nil {
		return nil, err
	}

	eng, err := storage.Open(so)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	s := &server{closers: []func() error{eng.Close}}

	s.store, err = rendezvous.NewStore(eng, opts.npes, rendezvous.WithNamespace(opts.namespace))
	if err != nil {
		return nil, multierr.Append(err, s.close())
	}

	collectors := metrics.NewCollectors(metrics.DefaultNamespace)
	traffic := metrics.NewTrafficCounter(nil)
	if err := collectors.RegisterTraffic(traffic); err != nil {
		return nil, multierr.Append(err, s.close())
	}

	s.point = rendezvous.NewPoint(s.store, pc,
		rendezvous.WithPointReporter(traffic),
		rendezvous.WithPointCollectors(collectors),
	)
	if err := s.point.Start(ctx); err != nil {
		return nil, multierr.Append(fmt.Errorf("start rendezvous point: %w", err), s.close())
	}
	s.closers = append(s.closers, s.point.Stop)

	if opts.metricsAddr != "" {
		ln, err := net.Listen("tcp", opts.metricsAddr)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("listen metrics: %w", err), s.close())
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(collectors.Registry(), promhttp.HandlerOpts{}))
		srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("metrics server stopped", "err", err)
			}
		}()
		s.closers = append(s.closers, func() error {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
		s.metricsAddr = ln.Addr().String()
		log.Info("serving metrics", "addr", s.metricsAddr)
	}
	return s, nil
}

// close 按启动的逆序关闭
func (s *server) close() error {
	var errs error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, s.closers[i]())
	}
	s.closers = nil
	return errs
}

func runServe(ctx context.Context, opts *serveOptions, cmd *cobra.Command) error {
	s, err := startServer(ctx, opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "rendezvous listening on %s (namespace %s, %d processes)\n",
		s.point.Addr(), s.store.Namespace(), s.store.JobSize())

	var done <-chan struct{}
	if opts.exitDone {
		done = s.store.Done()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down on signal")
	case <-done:
		log.Info("all processes left the job")
	}
	return s.close()
}
