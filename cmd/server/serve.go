package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/rl1809/guild-bag/internal/adapter/handler"
	bagerrors "github.com/rl1809/guild-bag/internal/errors"
	"github.com/rl1809/guild-bag/internal/logging"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		httpAddr string
		grpcAddr string
		wsAddr   string
		console  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot on every enabled transport until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			t := &opts.cfg.Server
			if cmd.Flags().Changed("http") {
				t.HTTPAddr = httpAddr
			}
			if cmd.Flags().Changed("grpc") {
				t.GRPCAddr = grpcAddr
			}
			if cmd.Flags().Changed("ws") {
				t.WSAddr = wsAddr
			}
			if cmd.Flags().Changed("console") {
				t.Console = console
			}
			if !t.Console && t.HTTPAddr == "" && t.GRPCAddr == "" && t.WSAddr == "" {
				return bagerrors.ConfigInvalid("no transport enabled; set transport.console or one of http_addr, grpc_addr, ws_addr")
			}
			return serve(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http", "", "HTTP listen address, e.g. :8080")
	cmd.Flags().StringVar(&grpcAddr, "grpc", "", "gRPC listen address, e.g. :50051")
	cmd.Flags().StringVar(&wsAddr, "ws", "", "Chat gateway listen address, e.g. :8081")
	cmd.Flags().BoolVar(&console, "console", false, "Read messages from stdin")
	return cmd
}

func serve(ctx context.Context, opts *rootOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := opts.cfg
	log := logging.NewLogger("server")

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var servers []*http.Server
	startHTTP := func(addr string, h http.Handler, name string) {
		srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
		servers = append(servers, srv)
		go func() {
			log.WithField("addr", addr).Infof("%s listening", name)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Errorf("%s server error", name)
				cancel()
			}
		}()
	}

	gateway := handler.NewWSGateway(a.dispatcher, cfg.Token, logging.NewLogger("ws"))
	if cfg.Server.HTTPAddr != "" {
		mux := handler.NewHTTPHandler(a.dispatcher, cfg.Token).Routes()
		if cfg.Server.WSAddr == cfg.Server.HTTPAddr {
			mux.HandleFunc(handler.ChatPath, gateway.Handler())
		}
		startHTTP(cfg.Server.HTTPAddr, mux, "HTTP")
	}
	if cfg.Server.WSAddr != "" && cfg.Server.WSAddr != cfg.Server.HTTPAddr {
		mux := http.NewServeMux()
		mux.HandleFunc(handler.ChatPath, gateway.Handler())
		startHTTP(cfg.Server.WSAddr, mux, "chat gateway")
	}

	var grpcServer *grpc.Server
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return err
		}
		grpcServer = grpc.NewServer(grpc.UnaryInterceptor(handler.TokenInterceptor(cfg.Token)))
		handler.RegisterCommandServiceServer(grpcServer, handler.NewGRPCHandler(a.dispatcher))
		go func() {
			log.WithField("addr", cfg.Server.GRPCAddr).Info("gRPC server listening")
			if err := grpcServer.Serve(lis); err != nil {
				log.WithError(err).Error("gRPC server error")
				cancel()
			}
		}()
	}

	if cfg.Server.Console {
		go func() {
			if err := handler.NewConsole(a.dispatcher, os.Stdin, os.Stdout, "console").Run(ctx); err != nil {
				log.WithError(err).Warn("console stopped")
			}
			// End of input shuts the bot down when the console is the only transport.
			if len(servers) == 0 && grpcServer == nil {
				cancel()
			}
		}()
	}

	<-ctx.Done()
	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("HTTP shutdown")
		}
	}
	gateway.Close()
	if grpcServer != nil {
		grpcServer.GracefulStop()
		log.Info("gRPC server stopped")
	}

	a.Close()
	log.Info("dispatcher drained, connections closed")
	return nil
}
