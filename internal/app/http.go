package app

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"merchantdash/internal/dashboard"
	"merchantdash/internal/session"
	"merchantdash/internal/util"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	gatherer   prometheus.Gatherer
}

// NewHTTPServer builds the local facade. A nil gatherer disables /metrics.
func NewHTTPServer(service *Service, corsOrigin string, gatherer prometheus.Gatherer) *HTTPServer {
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	return &HTTPServer{service: service, corsOrigin: corsOrigin, gatherer: gatherer}
}

func (s *HTTPServer) App() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          handleError,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           60 * time.Second,
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: s.corsOrigin,
		AllowHeaders: "Content-Type, Authorization, X-Request-ID",
		AllowMethods: "GET,POST,OPTIONS",
	}))
	app.Use(requestLog)

	api := app.Group("/api")
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	api.Get("/ready", s.handleReady)
	api.Get("/session", s.handleSession)
	api.Post("/auth/signin", s.handleSignIn)
	api.Post("/auth/signout", s.handleSignOut)
	api.Get("/snapshot", s.handleSnapshot)
	api.Post("/sync", s.handleSync)
	api.Post("/sales", s.handleRecordSale)
	api.Post("/restock", s.handleRestock)
	api.Post("/retrain", s.handleRetrain)

	if s.gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
	return app
}

func (s *HTTPServer) handleReady(c *fiber.Ctx) error {
	status := http.StatusOK
	check := fiber.Map{"status": "ok"}
	if err := s.service.Ping(c.UserContext()); err != nil {
		status = http.StatusServiceUnavailable
		check = fiber.Map{"status": "error", "error": err.Error()}
	}
	return c.Status(status).JSON(fiber.Map{
		"ok":     status == http.StatusOK,
		"checks": fiber.Map{"sessionStore": check},
	})
}

func (s *HTTPServer) handleSession(c *fiber.Ctx) error {
	id := s.service.Identity()
	if id == nil {
		return c.JSON(fiber.Map{"authenticated": false, "userId": nil})
	}
	return c.JSON(identityBody(*id))
}

func (s *HTTPServer) handleSignIn(c *fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Mode     string `json:"mode"`
	}
	if err := decodeBody(c, &body); err != nil {
		return err
	}
	res, err := s.service.SignIn(c.UserContext(), body.Email, body.Password, session.ParseMode(body.Mode))
	if err != nil {
		return err
	}
	out := identityBody(res.Identity)
	if res.SyncErr != nil {
		_, code, message, _ := mapError(res.SyncErr)
		out["sync"] = fiber.Map{"code": code, "error": message}
	}
	return c.JSON(out)
}

func (s *HTTPServer) handleSignOut(c *fiber.Ctx) error {
	if err := s.service.SignOut(c.UserContext()); err != nil {
		log.Printf("app: sign out: %v", err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (s *HTTPServer) handleSnapshot(c *fiber.Ctx) error {
	snap, loading, err := s.service.Snapshot()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"loading": loading, "snapshot": snap})
}

func (s *HTTPServer) handleSync(c *fiber.Ctx) error {
	snap, err := s.service.Sync(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"snapshot": snap})
}

func (s *HTTPServer) handleRecordSale(c *fiber.Ctx) error {
	var in dashboard.SaleInput
	if err := decodeBody(c, &in); err != nil {
		return err
	}
	if err := s.service.RecordSale(c.UserContext(), in); err != nil {
		return err
	}
	return s.writeCurrent(c, fiber.Map{"ok": true})
}

func (s *HTTPServer) handleRestock(c *fiber.Ctx) error {
	var in dashboard.RestockInput
	if err := decodeBody(c, &in); err != nil {
		return err
	}
	if err := s.service.Restock(c.UserContext(), in); err != nil {
		return err
	}
	return s.writeCurrent(c, fiber.Map{"ok": true})
}

func (s *HTTPServer) handleRetrain(c *fiber.Ctx) error {
	var body struct {
		Confirm bool `json:"confirm"`
	}
	if err := decodeBody(c, &body); err != nil {
		return err
	}
	res, err := s.service.Retrain(c.UserContext(), dashboard.Confirmed(body.Confirm))
	if err != nil {
		return err
	}
	return s.writeCurrent(c, fiber.Map{"accuracy": res.Accuracy, "totalData": res.TotalData})
}

func (s *HTTPServer) writeCurrent(c *fiber.Ctx, payload fiber.Map) error {
	snap, loading, err := s.service.Snapshot()
	if err != nil {
		return err
	}
	payload["loading"] = loading
	payload["snapshot"] = snap
	return c.JSON(payload)
}

func identityBody(id session.Identity) fiber.Map {
	return fiber.Map{
		"authenticated": true,
		"userId":        id.UserID,
		"email":         id.Email,
		"role":          id.Role,
	}
}

// requestLog writes one JSON line per request. Errors are rendered here so the
// logged status is the one the client saw.
func requestLog(c *fiber.Ctx) error {
	requestID := strings.TrimSpace(c.Get("X-Request-ID"))
	if requestID == "" {
		requestID = util.ShortID("")
	}
	started := time.Now()
	c.Set("X-Request-ID", requestID)
	c.Set("Cache-Control", "no-store")

	if err := c.Next(); err != nil {
		if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(http.StatusInternalServerError)
		}
	}

	log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
		requestID,
		c.Method(),
		c.Path(),
		c.Response().StatusCode(),
		time.Since(started).Milliseconds(),
	)
	return nil
}

func handleError(c *fiber.Ctx, err error) error {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		log.Printf("app: %s %s: %v", c.Method(), c.Path(), err)
	}
	return writeError(c, status, code, message, details)
}

func writeError(c *fiber.Ctx, status int, code, message string, details any) error {
	response := fiber.Map{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	return c.Status(status).JSON(response)
}

func decodeBody(c *fiber.Ctx, target any) error {
	raw := c.Body()
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return domainError(http.StatusBadRequest, "INVALID_BODY", "invalid JSON body", nil)
	}
	return nil
}
