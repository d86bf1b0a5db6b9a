package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewRouter(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	assert.NotNil(t, r)
	assert.Equal(t, "v1", r.apiVersion)
	assert.Equal(t, "/api/v1", r.BasePath())
	assert.Empty(t, r.registrars)
}

func TestRouterWithAPIVersion(t *testing.T) {
	r := NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "/api/v2", r.BasePath())
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Use(func(c *gin.Context) {
		c.Header("X-API", "yes")
		c.Next()
	})

	group := NewDomainGroup("sync", "/sync")
	group.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	r.Register(group)
	r.Setup()

	engine.GET("/outside", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sync/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Equal(t, "yes", w.Header().Get("X-API"))

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/outside", nil))
	assert.Empty(t, w.Header().Get("X-API"))
}

func TestDomainGroup(t *testing.T) {
	t.Run("creates group with name and prefix", func(t *testing.T) {
		g := NewDomainGroup("customers", "/customers")
		assert.Equal(t, "customers", g.Name())
		assert.Equal(t, "/customers", g.Prefix())
	})

	methods := []struct {
		method   string
		register func(g *DomainGroup, path string, h gin.HandlerFunc)
	}{
		{http.MethodGet, func(g *DomainGroup, p string, h gin.HandlerFunc) { g.GET(p, h) }},
		{http.MethodPost, func(g *DomainGroup, p string, h gin.HandlerFunc) { g.POST(p, h) }},
		{http.MethodPut, func(g *DomainGroup, p string, h gin.HandlerFunc) { g.PUT(p, h) }},
		{http.MethodDelete, func(g *DomainGroup, p string, h gin.HandlerFunc) { g.DELETE(p, h) }},
	}
	for _, m := range methods {
		t.Run("registers "+m.method+" route", func(t *testing.T) {
			engine := gin.New()
			g := NewDomainGroup("orders", "/orders")
			m.register(g, "/:id", func(c *gin.Context) {
				c.String(http.StatusOK, c.Param("id"))
			})
			g.RegisterRoutes(engine.Group("/api/v1"))

			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(m.method, "/api/v1/orders/42", nil))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "42", w.Body.String())
		})
	}

	t.Run("applies middleware", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("orders", "/orders")
		g.Use(func(c *gin.Context) {
			c.Header("X-Test-Middleware", "applied")
			c.Next()
		})
		g.GET("", func(c *gin.Context) { c.Status(http.StatusOK) })
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
		assert.Equal(t, "applied", w.Header().Get("X-Test-Middleware"))
	})

	t.Run("creates subgroups", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("sync", "/sync")
		jobs := g.Group("jobs", "/jobs")
		jobs.GET("", func(c *gin.Context) { c.String(http.StatusOK, "jobs") })
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sync/jobs", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "jobs", w.Body.String())
	})

	t.Run("static and param siblings coexist", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("customers", "/customers")
		g.DELETE("/:id", func(c *gin.Context) { c.String(http.StatusOK, "one") })
		g.DELETE("/store/:storeId", func(c *gin.Context) { c.String(http.StatusOK, "store") })
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/customers/store/s1", nil))
		assert.Equal(t, "store", w.Body.String())

		w = httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/customers/c1", nil))
		assert.Equal(t, "one", w.Body.String())
	})
}
