// 包 config：集中读取环境变量，主入口与命令行工具共用同一份配置
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Credentials：搜索 API 凭据三元组
type Credentials struct {
	APIKey    string // SEARCH_API_KEY
	EngineID  string // SEARCH_ENGINE_ID
	ProjectID string // GCP_PROJECT_ID
}

// Search：搜索调用参数
type Search struct {
	Endpoint   string
	NumResults int
	Timeout    time.Duration
	FileTypes  []string
}

// Summarize：文档下载与模型问答参数；ProjectID 为空时整段关闭
type Summarize struct {
	Enabled         bool
	Location        string
	Model           string
	Endpoint        string
	Question        string
	FetchTimeout    time.Duration
	ModelTimeout    time.Duration
	MaxDocumentSize int64
}

// RateLimit：入口限流；Redis 可用时使用共享窗口，否则进程内令牌桶
type RateLimit struct {
	Enabled bool
	QPS     int
	PerIP   int
	Window  time.Duration
	// TrustedProxies：允许提供转发头的对端地址或网段；为空时信任所有转发头
	TrustedProxies []string
}

// TLS：证书路径与跳转
type TLS struct {
	Enabled      bool
	CertPath     string
	KeyPath      string
	RedirectAddr string
}

// Config：服务整体配置
type Config struct {
	Addr            string
	APIBase         string
	ShutdownTimeout time.Duration
	Creds           Credentials
	Search          Search
	Summarize       Summarize
	RateLimit       RateLimit
	TLS             TLS

	GeoIPPath     string
	IP2RegionPath string
	UseStore      bool
	UseRedis      bool
}

// LoadDotEnv：依次加载 .env 与 data/env/.env；文件缺失时忽略
func LoadDotEnv() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
}

// FromEnv：从环境变量构建配置，未设置的项使用默认值
func FromEnv() Config {
	c := Config{
		Addr:            envOr("ADDR", ":8080"),
		APIBase:         apiBase(os.Getenv("API_BASE")),
		ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		Creds: Credentials{
			APIKey:    strings.TrimSpace(os.Getenv("SEARCH_API_KEY")),
			EngineID:  strings.TrimSpace(os.Getenv("SEARCH_ENGINE_ID")),
			ProjectID: strings.TrimSpace(os.Getenv("GCP_PROJECT_ID")),
		},
		Search: Search{
			Endpoint:   os.Getenv("SEARCH_ENDPOINT"),
			NumResults: envInt("SEARCH_NUM_RESULTS", 5),
			Timeout:    envDuration("SEARCH_TIMEOUT", 10*time.Second),
			FileTypes:  envList("SEARCH_FILE_TYPES"),
		},
		Summarize: Summarize{
			Location:        envOr("GCP_LOCATION", "us-central1"),
			Model:           envOr("SUMMARIZE_MODEL", "gemini-1.5-flash-001"),
			Endpoint:        os.Getenv("SUMMARIZE_ENDPOINT"),
			Question:        envOr("SUMMARIZE_QUESTION", "What is the voter turnout?"),
			FetchTimeout:    envDuration("SUMMARIZE_FETCH_TIMEOUT", 30*time.Second),
			ModelTimeout:    envDuration("SUMMARIZE_MODEL_TIMEOUT", 60*time.Second),
			MaxDocumentSize: int64(envInt("SUMMARIZE_MAX_BYTES", 20<<20)),
		},
		RateLimit: RateLimit{
			Enabled:        os.Getenv("RATE_LIMIT_ENABLED") == "true",
			QPS:            envInt("RATE_LIMIT_QPS", 20),
			PerIP:          envInt("RATE_LIMIT_PER_IP", 30),
			Window:         envDuration("RATE_LIMIT_WINDOW", time.Minute),
			TrustedProxies: envList("RATE_LIMIT_TRUSTED_PROXIES"),
		},
		TLS: TLS{
			Enabled:      os.Getenv("TLS_ENABLE") == "true",
			CertPath:     envOr("TLS_CERT_PATH", filepath.Join("data", "certs", "server.crt")),
			KeyPath:      envOr("TLS_KEY_PATH", filepath.Join("data", "certs", "server.key")),
			RedirectAddr: os.Getenv("TLS_REDIRECT_ADDR"),
		},
		GeoIPPath:     os.Getenv("GEOIP_MMDB_PATH"),
		IP2RegionPath: os.Getenv("IP2REGION_V4_PATH"),
		UseStore:      os.Getenv("PG_HOST") != "",
		UseRedis:      os.Getenv("REDIS_HOST") != "",
	}
	// 模型问答默认跟随项目凭据；SUMMARIZE_ENABLED=false 可强制关闭
	c.Summarize.Enabled = c.Creds.ProjectID != "" && os.Getenv("SUMMARIZE_ENABLED") != "false"
	return c
}

// Missing：返回缺失的搜索凭据环境变量名
func (c Credentials) Missing() []string {
	var out []string
	if c.APIKey == "" {
		out = append(out, "SEARCH_API_KEY")
	}
	if c.EngineID == "" {
		out = append(out, "SEARCH_ENGINE_ID")
	}
	return out
}

// apiBase：规范为以 / 开头、不以 / 结尾的非根路径；空值与 "/" 回退到 /api，避免与页面路由冲突
func apiBase(s string) string {
	s = strings.Trim(strings.TrimSpace(s), "/")
	if s == "" {
		return "/api"
	}
	return "/" + s
}

// envList：逗号分隔，去除空白与空项
func envList(k string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(k), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// envInt：解析失败或非正数时回退默认值
func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// envDuration：接受 time.ParseDuration 格式或纯秒数
func envDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}
