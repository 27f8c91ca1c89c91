package server

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/42-Bangkok/gateway/internal/database"
	"github.com/42-Bangkok/gateway/internal/model"
	"github.com/42-Bangkok/gateway/internal/server/middlewares"
	"github.com/42-Bangkok/gateway/internal/server/service"
	"github.com/42-Bangkok/gateway/internal/server/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultRefreshRateLimit is the number of refresh requests per second allowed for a client.
const DefaultRefreshRateLimit = 10

// An IOC is an Iversion Of Control pattern used to init the server package.
type IOC struct {
	Version  string
	Database database.Client
	Logger   logrus.FieldLogger
	// Accepted external identity providers.
	Providers []string
	// Argon2 hashes of the trusted service tokens.
	ServiceTokenHashes []string
	// Session params
	AccessTokenExpirationTime  time.Duration
	RefreshTokenExpirationTime time.Duration
	TokenLength                int
	// RefreshRateLimit is the allowed refresh requests per second per client IP.
	RefreshRateLimit float64
	AllowOrigins     []string
}

// EchoEngine instantiates the wep server.
func EchoEngine(ctrl IOC) *echo.Echo {
	if ctrl.Logger == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		ctrl.Logger = logger
	}
	if ctrl.RefreshRateLimit <= 0 {
		ctrl.RefreshRateLimit = DefaultRefreshRateLimit
	}
	cors := middleware.DefaultCORSConfig
	if len(ctrl.AllowOrigins) > 0 {
		cors.AllowOrigins = ctrl.AllowOrigins
	}

	engine := echo.New()
	engine.HideBanner = true
	engine.HidePort = true
	engine.Use(middleware.Recover())
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(cors))
	engine.Use(middleware.Gzip())
	engine.Use(middlewares.Logger(ctrl.Logger))

	engine.Binder = middlewares.NewBinder()
	engine.Validator = middlewares.NewValidator()
	// Error handler
	engine.HTTPErrorHandler = middlewares.HTTPErrorHandler(ctrl.Logger)

	engine.Pre(middleware.Rewrite(map[string]string{
		"^/": "/version", // Rules are suffixed by "$", only the root is matched.
	}))
	engine.Pre(middleware.AddTrailingSlash())

	////////////
	// Router //
	////////////

	sessions := session.NewManager(
		ctrl.Database,
		ctrl.AccessTokenExpirationTime,
		ctrl.RefreshTokenExpirationTime,
		ctrl.TokenLength,
	)
	services := middlewares.NewServiceAuthenticator(ctrl.ServiceTokenHashes)
	users := service.NewUser(ctrl.Database, sessions, ctrl.Providers)

	router := engine.Group("")

	// generic handlers
	//
	router.GET("/version/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"version": ctrl.Version,
		})
	})

	//
	// account handlers
	//
	account := router.Group("/api/account")
	restricted := account.Group("")
	restricted.Use(middlewares.Session(sessions))

	auth := &auth{
		users:    users,
		sessions: sessions,
	}
	account.POST("/auths/login/", auth.Login, middlewares.Service(services))
	account.POST("/auths/refresh/", auth.Refresh, middleware.RateLimiter(
		middleware.NewRateLimiterMemoryStore(rate.Limit(ctrl.RefreshRateLimit)),
	))
	restricted.POST("/auths/logout/", auth.Logout)

	user := &user{
		users: users,
	}
	restricted.GET("/users/me/", user.Me)
	restricted.PATCH("/users/me/", user.Update)
	restricted.DELETE("/users/me/", user.Delete)

	sess := &sess{
		db:       ctrl.Database,
		sessions: sessions,
	}
	restricted.GET("/sessions/", sess.List)
	restricted.DELETE("/sessions/", sess.DeleteAll)
	restricted.DELETE("/sessions/:id/", sess.Delete)

	//
	// data handlers
	//
	data := router.Group("/api/data")
	data.Use(middlewares.Service(services))

	cadetmeta := &cadetmeta{
		db: ctrl.Database,
	}
	data.GET("/cadetmeta/latest/", cadetmeta.Latest)
	data.GET("/cadetmeta/:login/", cadetmeta.Get)
	data.PATCH("/cadetmeta/:login/", cadetmeta.Patch)

	intra := &intra{
		db: ctrl.Database,
	}
	data.GET("/intra/profiles/", intra.List)
	data.POST("/intra/profiles/", intra.Upsert)
	data.GET("/intra/profiles/:login/", intra.Show)
	data.PATCH("/intra/profiles/:login/", intra.Patch)
	data.DELETE("/intra/profiles/:login/", intra.Delete)
	data.GET("/intra/profiles/:login/history/", intra.History)
	data.POST("/intra/profiles/:login/history/", intra.AppendHistory)

	//
	// task handlers
	//
	tasks := router.Group("/api/tasks")
	tasks.Use(middlewares.Service(services))

	webhook := &webhook{
		db: ctrl.Database,
	}
	tasks.GET("/webhooks/", webhook.List)
	tasks.POST("/webhooks/", webhook.Create)
	tasks.GET("/webhooks/:name/", webhook.Show)
	tasks.PATCH("/webhooks/:name/", webhook.Patch)
	tasks.DELETE("/webhooks/:name/", webhook.Delete)

	return engine
}

// PrintRoutes prints the Echo engin exposed routes.
func PrintRoutes(e *echo.Echo) {
	ignored := map[string]bool{
		"":   true,
		".":  true,
		"/*": true,
	}

	routes := e.Routes()
	sort.Slice(routes, func(i int, j int) bool {
		return routes[i].Path < routes[j].Path
	})

	fmt.Println("Routes:")
	for _, route := range routes {
		if ignored[route.Path] {
			continue
		}
		fmt.Printf("%6s %s\n", route.Method, route.Path)
	}
}

func currentUser(c echo.Context) *model.User {
	user, ok := c.Get(middlewares.CurrentUserContextKey).(*model.User)
	if ok {
		return user
	}
	return nil
}

func currentSession(c echo.Context) *model.Session {
	session, ok := c.Get(middlewares.CurrentSessionContextKey).(*model.Session)
	if ok {
		return session
	}
	return nil
}
