package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/ShakthiNandan/overlay-geotag/internal/geotag"
	"github.com/ShakthiNandan/overlay-geotag/internal/store"
)

// NewApp creates the Fiber app serving the ingestion and query endpoints.
func NewApp(service *geotag.Service, log zerolog.Logger) *fiber.App {
	log = log.With().Str("module", "http").Logger()

	app := fiber.New(fiber.Config{
		AppName:               "overlay-geotag",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(requestLogger(log))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "overlay-geotag",
		})
	})

	RegisterRoutes(app, service)
	return app
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app fiber.Router, service *geotag.Service) {
	app.Post("/log", ingestHandler(service, "logged", true))
	app.Get("/log", ingestHandler(service, "logged", false))
	app.Post("/location", ingestHandler(service, "received", true))

	app.Get("/location", func(c *fiber.Ctx) error {
		pos, err := service.GetLatest()
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read location")
		}
		return c.JSON(pos)
	})
}

func ingestHandler(service *geotag.Service, ack string, withBody bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body geotag.Fields
		if withBody {
			body = bodyFields(c)
		}

		_, err := service.Ingest(geotag.MergeReport(queryFields(c), body))
		if err != nil {
			switch {
			case errors.Is(err, geotag.ErrMissingCoordinate), errors.Is(err, geotag.ErrInvalidCoordinate):
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			default:
				return fiber.NewError(fiber.StatusInternalServerError, "failed to store location")
			}
		}

		return c.JSON(fiber.Map{"status": ack})
	}
}

func queryFields(c *fiber.Ctx) geotag.Fields {
	f := geotag.Fields{}
	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		key := string(k)
		if _, seen := f[key]; !seen {
			f[key] = string(v)
		}
	})
	return f
}

// bodyFields reads a JSON object or a form body. Anything else, including
// malformed JSON, is treated as an empty body.
func bodyFields(c *fiber.Ctx) geotag.Fields {
	f := geotag.Fields{}
	raw := c.Body()
	if len(bytes.TrimSpace(raw)) == 0 {
		return f
	}

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationForm) {
		c.Context().PostArgs().VisitAll(func(k, v []byte) {
			f[string(k)] = string(v)
		})
		return f
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return f
	}
	for k, v := range obj {
		switch v := v.(type) {
		case string:
			f[k] = v
		case json.Number:
			f[k] = v.String()
		case bool:
			f[k] = fmt.Sprint(v)
		}
	}
	return f
}

func requestLogger(log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var e *fiber.Error
		if errors.As(err, &e) {
			status = e.Code
		}

		ev := log.Debug()
		switch {
		case status >= fiber.StatusInternalServerError:
			ev = log.Error()
		case status >= fiber.StatusBadRequest:
			ev = log.Warn()
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.IP()).
			Msg("request")
		return err
	}
}
