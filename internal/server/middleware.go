package server

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const healthPath = "/api/health"

// Options tune the middleware stack.
type Options struct {
	AllowedOrigins []string
	// RatePerMinute is the per-client request budget; the health probe is exempt.
	RatePerMinute int
	Logger        *log.Logger
}

func useMiddleware(e *echo.Echo, opts Options) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	perMinute := max(1, opts.RatePerMinute)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURIPath: true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			trace := traceID(c.Request())
			if trace == "" {
				trace = "-"
			}
			if v.Error != nil {
				logger.Printf("%s %s %d %s trace=%s err=%v", v.Method, v.URIPath, v.Status, v.Latency.Round(time.Millisecond), trace, v.Error)
				return nil
			}
			logger.Printf("%s %s %d %s trace=%s", v.Method, v.URIPath, v.Status, v.Latency.Round(time.Millisecond), trace)
			return nil
		},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' data:; media-src 'self' data:",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))
	e.Use(permissionsPolicy)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderContentType},
	}))
	e.Use(middleware.BodyLimit("64K"))
	e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == healthPath
		},
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(float64(perMinute) / 60),
			Burst:     perMinute,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return errorJSON(c, http.StatusForbidden, "unable to identify client")
		},
		DenyHandler: func(c echo.Context, id string, err error) error {
			return errorJSON(c, http.StatusTooManyRequests, "too many requests, slow down")
		},
	}))
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{MinLength: 500}))
}

func permissionsPolicy(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		return next(c)
	}
}

// traceID reads the W3C traceparent header, falling back to Google's
// X-Cloud-Trace-Context.
func traceID(r *http.Request) string {
	if tp := r.Header.Get("traceparent"); tp != "" {
		if parts := strings.Split(tp, "-"); len(parts) == 4 {
			return parts[1]
		}
	}
	if ct := r.Header.Get("X-Cloud-Trace-Context"); ct != "" {
		id, _, _ := strings.Cut(ct, "/")
		return id
	}
	return ""
}
