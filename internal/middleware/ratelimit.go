// 包 middleware：查询入口限流与客户端 IP 解析
package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
	"turnout/internal/logger"
	"turnout/internal/metrics"

	"github.com/redis/go-redis/v9"
)

// Limiter：按 key 判定是否放行
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Name() string
}

// TokenBucket：进程内每秒令牌桶，不区分来源
// 约束：不排队，超出即拒绝
type TokenBucket struct {
	capacity int
	tokens   int
	lastSec  int64
	now      func() time.Time
	mu       sync.Mutex
}

func NewTokenBucket(qps int) *TokenBucket {
	if qps <= 0 {
		qps = 20
	}
	return &TokenBucket{capacity: qps, tokens: qps, lastSec: time.Now().Unix(), now: time.Now}
}

func (tb *TokenBucket) Name() string { return "token_bucket" }

func (tb *TokenBucket) Allow(context.Context, string) (bool, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	nowSec := tb.now().Unix()
	if tb.lastSec != nowSec {
		tb.lastSec = nowSec
		tb.tokens = tb.capacity
	}
	if tb.tokens > 0 {
		tb.tokens--
		return true, nil
	}
	return false, nil
}

// RedisWindow：多实例共享的按 IP 固定窗口计数
type RedisWindow struct {
	rc     *redis.Client
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

func NewRedisWindow(rc *redis.Client, limit int, window time.Duration) *RedisWindow {
	if limit <= 0 {
		limit = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisWindow{rc: rc, limit: limit, window: window, prefix: "turnout:rl:", now: time.Now}
}

func (w *RedisWindow) Name() string { return "redis_window" }

// Key：同一窗口内的请求落在同一个键上
func (w *RedisWindow) Key(ip string) string {
	slot := w.now().UnixNano() / int64(w.window)
	return w.prefix + ip + ":" + strconv.FormatInt(slot, 10)
}

func (w *RedisWindow) Allow(ctx context.Context, ip string) (bool, error) {
	key := w.Key(ip)
	pipe := w.rc.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, w.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, err
	}
	return incr.Val() <= int64(w.limit), nil
}

// Limit：包装查询处理器；限流器出错时放行并记录日志
// 约束：限流键取 p.ClientIP；p 为 nil 时信任客户端提供的转发头，轮换 X-Forwarded-For 即可绕过按 IP 窗口，
// 直接暴露在公网时应配置 RATE_LIMIT_TRUSTED_PROXIES
func Limit(l Limiter, p *Proxies, next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, err := l.Allow(r.Context(), p.ClientIP(r))
		if err != nil {
			logger.FromContext(r.Context()).Warn("ratelimit_error", "limiter", l.Name(), "err", err)
		}
		if !ok {
			metrics.RateLimitedTotal.WithLabelValues(l.Name()).Inc()
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too many requests, please slow down.", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Proxies：可信反向代理列表；nil 表示信任所有转发头
type Proxies struct {
	nets []*net.IPNet
}

// ParseProxies：接受 CIDR 或单个 IP；列表为空返回 nil
func ParseProxies(list []string) (*Proxies, error) {
	if len(list) == 0 {
		return nil, nil
	}
	p := &Proxies{}
	for _, s := range list {
		if !strings.Contains(s, "/") {
			ip := net.ParseIP(s)
			if ip == nil {
				return nil, fmt.Errorf("trusted proxy %q: invalid address", s)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			p.nets = append(p.nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(s)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", s, err)
		}
		p.nets = append(p.nets, n)
	}
	return p, nil
}

func (p *Proxies) trusts(ip string) bool {
	if p == nil {
		return true
	}
	a := net.ParseIP(ip)
	if a == nil {
		return false
	}
	for _, n := range p.nets {
		if n.Contains(a) {
			return true
		}
	}
	return false
}

// ClientIP：对端可信时依次读取常见反向代理头，否则直接使用 RemoteAddr；结果不含端口
// 约束：配置了可信列表时 X-Forwarded-For 从右向左取第一个不可信地址
func (p *Proxies) ClientIP(r *http.Request) string {
	peer := stripPort(r.RemoteAddr)
	if !p.trusts(peer) {
		return peer
	}
	h := r.Header
	if x := h.Get("X-Forwarded-For"); x != "" {
		hops := strings.Split(x, ",")
		if p == nil {
			return stripPort(strings.TrimSpace(hops[0]))
		}
		for i := len(hops) - 1; i >= 0; i-- {
			hop := stripPort(strings.TrimSpace(hops[i]))
			if hop != "" && (i == 0 || !p.trusts(hop)) {
				return hop
			}
		}
	}
	for _, k := range []string{"CF-Connecting-IP", "X-Real-IP", "X-Client-IP"} {
		if x := h.Get(k); x != "" {
			return stripPort(strings.TrimSpace(x))
		}
	}
	if x := h.Get("Forwarded"); x != "" {
		if i := strings.Index(strings.ToLower(x), "for="); i >= 0 {
			y := x[i+4:]
			if j := strings.IndexAny(y, ";,"); j >= 0 {
				y = y[:j]
			}
			return stripPort(strings.Trim(y, "\" "))
		}
	}
	return peer
}

// stripPort：去掉端口与 IPv6 方括号，"[2001:db8::1]:4711" 与 "[2001:db8::1]" 均得到 2001:db8::1
func stripPort(s string) string {
	if host, _, err := net.SplitHostPort(s); err == nil {
		return host
	}
	return strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
}
