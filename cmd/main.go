// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	"turnout/internal/api"
	"turnout/internal/app"
	"turnout/internal/config"
	"turnout/internal/dispatch"
	"turnout/internal/geo"
	"turnout/internal/logger"
	"turnout/internal/metrics"
	"turnout/internal/middleware"
	"turnout/internal/migrate"
	"turnout/internal/store"
	"turnout/internal/utils"
	"turnout/internal/web"
)

func main() {
	config.LoadDotEnv()
	// 日志初始化
	l := logger.Setup()
	l.Debug("log_init_ok")
	cfg := config.FromEnv()
	l.Debug("config_api_base", "base", cfg.APIBase)
	if m := cfg.Creds.Missing(); len(m) > 0 {
		l.Warn("search_credentials_missing", "vars", strings.Join(m, ","))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 用量计数：仅在配置 PG_HOST 时启用，失败不阻止服务启动
	var st *store.Store
	var stats api.StatsSource
	var counter dispatch.Counter
	if cfg.UseStore {
		db, err := utils.OpenPostgresFromEnv(ctx)
		if err != nil {
			l.Error("db_open_error", "err", err)
		} else if err := migrate.EnsureSchema(db); err != nil {
			l.Error("schema_error", "err", err)
			_ = db.Close()
		} else {
			l.Info("db_open_ok")
			st = store.AttachDB(db, electionLabels()...)
			defer st.Close()
			stats, counter = st, st
		}
	} else {
		l.Info("store_disabled")
	}

	var limiter middleware.Limiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewTokenBucket(cfg.RateLimit.QPS)
		if cfg.UseRedis {
			rc, err := utils.OpenRedisFromEnv(ctx)
			switch {
			case err != nil:
				l.Error("redis_ping_error", "err", err)
			case rc != nil:
				defer rc.Close()
				limiter = middleware.NewRedisWindow(rc, cfg.RateLimit.PerIP, cfg.RateLimit.Window)
				l.Info("redis_ping_ok")
			}
		}
		l.Info("ratelimit_enabled", "limiter", limiter.Name())
	}
	proxies, err := middleware.ParseProxies(cfg.RateLimit.TrustedProxies)
	if err != nil {
		l.Error("trusted_proxies_error", "err", err)
		os.Exit(1)
	}
	if proxies == nil {
		l.Warn("trusted_proxies_unset", "note", "forwarding headers are trusted from any peer")
	}

	var locators []geo.Locator
	if cfg.GeoIPPath != "" {
		if g, err := geo.OpenGeoIP(cfg.GeoIPPath, "en"); err == nil {
			defer g.Close()
			locators = append(locators, g)
			l.Info("geoip_ready", "path", cfg.GeoIPPath)
		} else {
			l.Error("geoip_error", "err", err)
		}
	}
	if cfg.IP2RegionPath != "" {
		if c, err := geo.OpenIP2Region(cfg.IP2RegionPath); err == nil {
			defer c.Close()
			locators = append(locators, c)
			l.Info("ip2region_ready", "path", cfg.IP2RegionPath)
		} else {
			l.Error("ip2region_error", "err", err)
		}
	}
	var locator geo.Locator
	if chain := geo.NewChain(locators...); chain.Len() > 0 {
		locator = chain
	}

	d := app.NewDispatcher(ctx, cfg, counter)

	mux := http.NewServeMux()
	apiMux := api.BuildRoutes(api.Deps{Dispatcher: d, Geo: locator, Stats: stats, Limiter: limiter, Proxies: proxies})
	mux.Handle(cfg.APIBase+"/", http.StripPrefix(cfg.APIBase, apiMux))
	mux.Handle(cfg.APIBase+"/metrics", metrics.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/plain; charset=utf-8")
		w.Header().Set("cache-control", "no-store")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/", web.New(d, locator, limiter, proxies).Routes())

	handler := logger.AccessMiddleware(l)(mux)
	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// 摘要开启时一次提交可能串行下载并询问多份文档
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	listen := func() error {
		l.Info("listening", "addr", cfg.Addr)
		return s.ListenAndServe()
	}
	var others []*http.Server
	if cfg.TLS.Enabled {
		if err := utils.EnsureSelfSignedCert(cfg.TLS.CertPath, cfg.TLS.KeyPath, "turnout.local"); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		// 可选：启动HTTP重定向到HTTPS（不改变HTTPS运行端口）
		if cfg.TLS.RedirectAddr != "" {
			rs := newRedirectServer(cfg.TLS.RedirectAddr, cfg.Addr)
			others = append(others, rs)
			go func() {
				l.Info("http_redirect_listening", "addr", rs.Addr, "to", "https"+cfg.Addr)
				if err := rs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					l.Error("http_redirect_error", "err", err)
				}
			}()
		}
		listen = func() error {
			l.Info("listening_tls", "addr", cfg.Addr, "cert", cfg.TLS.CertPath)
			return s.ListenAndServeTLS(cfg.TLS.CertPath, cfg.TLS.KeyPath)
		}
	}

	if err := serve(ctx, cfg.ShutdownTimeout, s, listen, others...); err != nil {
		l.Error("listen_error", "err", err)
		os.Exit(1)
	}
	l.Info("shutdown_done")
}

// serve：启动主服务并阻塞到退出
// 约束：ctx 取消后对所有服务器执行 Shutdown，等待在途请求完成（最多 timeout）再返回，
// 调用方的 defer 关闭数据库与 Redis 时已无处理器在使用
func serve(ctx context.Context, timeout time.Duration, s *http.Server, listen func() error, others ...*http.Server) error {
	l := logger.L()
	errc := make(chan error, 1)
	go func() { errc <- listen() }()

	select {
	case err := <-errc:
		for _, o := range others {
			_ = o.Close()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	l.Info("shutdown_begin", "timeout", timeout.String())
	sctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	var errs []error
	for _, srv := range append([]*http.Server{s}, others...) {
		if err := srv.Shutdown(sctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func electionLabels() []string {
	out := make([]string, 0, len(dispatch.ElectionTypes))
	for _, e := range dispatch.ElectionTypes {
		out = append(out, e.Label())
	}
	return out
}

func newRedirectServer(redirAddr, httpsAddr string) *http.Server {
	l := logger.L()
	httpRedir := http.NewServeMux()
	httpRedir.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// 替换目标端口为HTTPS服务端口
		httpsPort := strings.TrimPrefix(httpsAddr, ":")
		baseHost := r.Host
		if i := strings.LastIndex(baseHost, ":"); i != -1 {
			baseHost = baseHost[:i]
		}
		targetHost := baseHost
		if httpsPort != "" && httpsPort != "443" {
			targetHost = baseHost + ":" + httpsPort
		}
		target := "https://" + targetHost + r.URL.RequestURI()
		http.Redirect(w, r, target, http.StatusMovedPermanently)
		l.Debug("http_redirect", "from", r.Host, "to", target)
	})
	return &http.Server{
		Addr:              redirAddr,
		Handler:           logger.AccessMiddleware(l)(httpRedir),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
