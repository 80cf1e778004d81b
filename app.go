/*
Package kestrel implements the core of a lightweight, asynchronous HTTP
server framework: a serialized path trie router, a middleware ("gas")
pipeline, a per-request context, a lazy response body stream, static
file delivery with conditional/range support, a date cache, and a
service-group lifecycle with graceful shutdown.

Registering a route looks like:

	app := kestrel.New("my-service")
	app.GET(
		"/users/:UserID/posts/:PostID/assets/**",
		func(req *kestrel.Request, res *kestrel.Response) error {
			userID := req.Param("UserID")
			postID := req.Param("PostID")
			assetPath := req.Param("*")

			return res.WriteJSON(map[string]interface{}{
				"user_id":    userID,
				"post_id":    postID,
				"asset_path": assetPath,
			})
		},
	)

	app.Serve()
*/
package kestrel

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Handler serves one request, reading from req and writing into res. A
// non-nil return short-circuits the gas chain's return path with the
// error-handling policy in `errors.go`.
type Handler func(*Request, *Response) error

// Application binds a router, a gas stack, a codec registry, a date
// cache, and a service group into one runnable unit, per `spec.md` §4.7.
// It is the top-level struct of this framework, analogous to the
// teacher's `Air`.
type Application struct {
	*RouteGroup

	Config    *Config
	Logger    *Logger
	Router    *Router
	Codecs    *CodecRegistry
	DateCache *DateCache
	Gases     []Gas

	// Services are extra `Service`s (e.g. database pools, background
	// workers) run alongside the HTTP server and date cache.
	Services []Service

	// ProcessesRunBeforeServerStart are callbacks that must all
	// complete before the HTTP server accepts its first connection,
	// while Services are already running -- the `Precursor` use case
	// from `spec.md` §4.6.
	ProcessesRunBeforeServerStart []func(ctx context.Context) error

	// OnServerRunning, if set, is invoked once the listener is bound
	// and before it starts accepting, receiving the bound address.
	OnServerRunning func(address string)

	listenerOptions ListenerOptions

	shuttingDown atomic.Bool
}

// New returns an `Application` named appName, configured with
// `DefaultConfig`, a fresh `Router`, the default `CodecRegistry`, and
// the `WithErrorRecovery` gas installed outermost.
func New(appName string) *Application {
	cfg := DefaultConfig(appName)
	return NewWithConfig(cfg)
}

// NewWithConfig is like New but takes an already-loaded `Config` (e.g.
// from `Load`).
func NewWithConfig(cfg *Config) *Application {
	router := NewRouter()
	logger := NewLogger(cfg.AppName)
	logger.Level = ParseLogLevel(cfg.LogLevel)
	logger.applyLogLevelEnv()

	if cfg.LogOutputPath != "" {
		logger.Output = &lumberjack.Logger{
			Filename:   cfg.LogOutputPath,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   cfg.LogCompressOld,
		}
	}

	a := &Application{
		Config:    cfg,
		Logger:    logger,
		Router:    router,
		Codecs:    NewCodecRegistry(),
		DateCache: NewDateCache(),
		Gases:     []Gas{WithErrorRecovery()},
	}

	a.RouteGroup = NewRouteGroup(router, "")

	return a
}

// Use appends gases to the application-wide gas stack, applied to every
// route registered afterward through a.
func (a *Application) Use(gases ...Gas) {
	a.Gases = append(a.Gases, gases...)
	a.RouteGroup = NewRouteGroup(a.Router, "", a.Gases...)
}

// AddService registers an extra `Service` to run alongside the HTTP
// server and date cache.
func (a *Application) AddService(s Service) {
	a.Services = append(a.Services, s)
}

// AddShutdownJob registers fn as a `Service` whose `Run` blocks until
// the service group's context is cancelled and then performs cleanup --
// the `spec.md` §4.7 "shutdown jobs" folded into the `Service`
// vocabulary per `SPEC_FULL.md` §4.
func (a *Application) AddShutdownJob(fn func(ctx context.Context) error) {
	a.AddService(ServiceFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return fn(context.Background())
	}))
}

// HealthzHandler is a readiness probe `Handler`: it reports 200 while
// the application is serving and 503 once shutdown has been signalled,
// matching `go-mizu-mizu`'s `HealthzHandler` pattern per `SPEC_FULL.md`
// §4.
func (a *Application) HealthzHandler() Handler {
	return func(req *Request, res *Response) error {
		if a.shuttingDown.Load() {
			res.Status = http.StatusServiceUnavailable
			return res.WriteString("shutting down")
		}

		res.Status = http.StatusOK
		return res.WriteString("ok")
	}
}

// Serve builds the HTTP server, date cache, and configured services into
// a `ServiceGroup` and blocks until graceful shutdown completes, per
// `spec.md` §4.7's `run`.
func (a *Application) Serve() error {
	a.Router.Build()

	ln := newListener(a.Config, a.listenerOptions)
	if err := ln.listen(a.Config.Address); err != nil {
		return err
	}

	h1 := &http.Server{
		Handler:      http.HandlerFunc(a.serveHTTP),
		ReadTimeout:  a.Config.IdleTimeoutConfiguration.ReadTimeout,
		WriteTimeout: a.Config.IdleTimeoutConfiguration.WriteTimeout,
	}

	h2s := &http2.Server{}
	h1.Handler = h2c.NewHandler(h1.Handler, h2s)

	if a.Config.TLSCertFile != "" && a.Config.TLSKeyFile != "" {
		if err := http2.ConfigureServer(h1, h2s); err != nil {
			return err
		}
	}

	server := &serverService{
		httpServer: h1,
		listener:   ln,
		tlsCert:    a.Config.TLSCertFile,
		tlsKey:     a.Config.TLSKeyFile,
	}

	serverWithPrelude := &Precursor{
		Pre: func(ctx context.Context) error {
			for _, fn := range a.ProcessesRunBeforeServerStart {
				if err := fn(ctx); err != nil {
					return err
				}
			}

			return nil
		},
		Inner: server,
	}

	if a.OnServerRunning != nil {
		a.OnServerRunning(ln.Addr().String())
	}

	services := append(append([]Service{}, a.Services...), a.DateCache, serverWithPrelude)

	group := &ServiceGroup{
		Services:        services,
		ShutdownSignals: a.Config.signals(),
	}

	shutdownWatcher := ServiceFunc(func(ctx context.Context) error {
		<-ctx.Done()
		a.shuttingDown.Store(true)
		return nil
	})
	group.Services = append(group.Services, shutdownWatcher)

	return group.Run(context.Background())
}

// serveHTTP is the `net/http` entry point: it adapts the wire-level
// `*http.Request`/`http.ResponseWriter` pair into a `Request`/`Response`,
// creates a per-request context, invokes the responder tree, and flushes
// the result -- the dispatcher described in `spec.md` §4.7's `run`.
func (a *Application) serveHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := newRequestContext(a.Logger, r.Method, r.URL.Path)

	req := newRequest(r, ctx)
	res := newResponse(ctx)

	ctx.decoder = a.Codecs.Decoder(req.Headers.First("Content-Type"))
	for _, mt := range req.acceptedMediaTypes() {
		if e := a.Codecs.Encoder(mt); e != nil {
			ctx.encoder = e
			break
		}
	}

	err := a.Router.Respond(req, res)
	if err != nil {
		he := translateError(err)
		if he.Internal != nil {
			ctx.Logger.Debugf("request failed: %v", he.Internal)
		}

		res.applyError(he)
	}

	res.Headers.Set("Date", []string{a.DateCache.Current()})
	if a.Config.ServerName != "" {
		if _, ok := res.Headers["server"]; !ok {
			res.Headers.Set("Server", []string{a.Config.ServerName})
		}
	}

	if err := writeResponse(w, res); err != nil {
		ctx.Logger.Errorf("writing response: %v", err)
	}
}

// serverService adapts the assembled `http.Server` + `listener` pair
// into a `Service`, so graceful shutdown is just another cancellation
// the service group already knows how to propagate.
type serverService struct {
	httpServer *http.Server
	listener   *listener
	tlsCert    string
	tlsKey     string
}

// Run implements `Service`: it serves on s.listener until ctx is
// cancelled, then drains in-flight requests within a bounded deadline
// before forcing the listener closed, matching the "in-flight responses
// allowed to complete until a configured deadline" semantics of
// `spec.md` §5.
func (s *serverService) Run(ctx context.Context) error {
	errc := make(chan error, 1)

	go func() {
		var err error
		if s.tlsCert != "" && s.tlsKey != "" {
			err = s.httpServer.ServeTLS(s.listener, s.tlsCert, s.tlsKey)
		} else {
			err = s.httpServer.Serve(s.listener)
		}

		if err != nil && err != http.ErrServerClosed {
			errc <- err
			return
		}

		errc <- nil
	}()

	select {
	case err := <-errc:
		return err

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.httpServer.Close()
		}

		<-errc

		return nil
	}
}
