// Package server assembles the Fiber application: global middleware, the
// error handler and every route of the Golf Scorekeeper API.
// It is kept apart from cmd/ so tests can build the exact same app and drive
// it with app.Test without opening a socket.
package server

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	// cors handles Cross-Origin Resource Sharing, so the SPA served from another
	// origin can call the API with an Authorization header.
	"github.com/gofiber/fiber/v2/middleware/cors"
	// logger prints request details (method, path, status, duration)
	"github.com/gofiber/fiber/v2/middleware/logger"
	// recover turns a panic inside a handler into a 500 instead of crashing the process
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/trentd187/golf-scorekeeper/internal/auth"
	"github.com/trentd187/golf-scorekeeper/internal/config"
	"github.com/trentd187/golf-scorekeeper/internal/handlers"
	"github.com/trentd187/golf-scorekeeper/internal/live"
	"github.com/trentd187/golf-scorekeeper/internal/middleware"
)

// Deps are the long-lived objects the routes are built from.
type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	Auth   *auth.Service
	Hub    *live.Hub
	Now    func() time.Time // "today" for tournament status; defaults to Config.Now()

	// RequestLog enables the per-request access log. Tests leave it off.
	RequestLog bool
}

// New builds the Fiber app with all middleware and routes registered.
func New(d Deps) *fiber.App {
	now := d.Now
	if now == nil {
		now = d.Config.Now()
	}
	clock := handlers.Clock(now)
	db := d.DB

	app := fiber.New(fiber.Config{
		AppName:      "Golf Scorekeeper API",
		ErrorHandler: errorHandler,
	})

	// --- Global middleware ---
	// These run on every request before any route handler, in this order.
	app.Use(recover.New())
	if d.RequestLog {
		app.Use(logger.New(logger.Config{Output: log.StandardLogger().Out}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: d.Config.AllowedOrigin,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
	// Paths are rewritten before any route is matched, so the routes below
	// only ever see the canonical /api/... form.
	app.Use(middleware.NormalizePath())

	// --- Public routes (no auth required) ---
	app.Get("/health", handlers.HealthCheck(db))

	api := app.Group("/api")
	api.Post("/auth/signup", handlers.SignUp(db, d.Auth))
	api.Post("/auth/signin", handlers.SignIn(db, d.Auth))
	api.Get("/courses", handlers.GetCourses(db))
	api.Get("/courses/:id", handlers.GetCourse(db))

	// --- Authenticated routes ---
	// authed is attached per route rather than with api.Use, so an unknown
	// /api path is a 404 even without a token.
	authed := middleware.Auth(d.Auth, db)
	admin := middleware.RequireAdmin()

	// Profile of the signed-in player
	api.Get("/profile", authed, handlers.GetProfile())
	api.Put("/profile", authed, handlers.UpdateProfile(db, d.Auth))

	// Users. DELETE checks "admin or self" itself.
	api.Get("/users", authed, admin, handlers.GetUsers(db))
	api.Get("/users/:id", authed, admin, handlers.GetUser(db))
	api.Put("/users/:id", authed, admin, handlers.UpdateUser(db, d.Auth))
	api.Delete("/users/:id", authed, handlers.DeleteUser(db, d.Auth))

	// Courses (reads are public, above)
	api.Post("/courses", authed, admin, handlers.CreateCourse(db))
	api.Put("/courses/:id", authed, admin, handlers.UpdateCourse(db))
	api.Delete("/courses/:id", authed, admin, handlers.DeleteCourse(db))

	// Scores. Ownership is checked inside the handlers.
	api.Get("/scores", authed, handlers.GetScores(db))
	api.Post("/scores", authed, handlers.CreateScore(db, d.Hub))
	api.Put("/scores/:id", authed, handlers.UpdateScore(db, d.Hub))
	api.Delete("/scores/:id", authed, handlers.DeleteScore(db, d.Hub))
	api.Get("/tournament-scores/:id", authed, handlers.GetTournamentScores(db))

	// Tournaments
	api.Get("/tournaments", authed, handlers.GetTournaments(db, clock))
	api.Get("/tournaments/:id", authed, handlers.GetTournament(db, clock))
	api.Post("/tournaments", authed, admin, handlers.CreateTournament(db, clock))
	api.Put("/tournaments/:id", authed, admin, handlers.UpdateTournament(db, clock))
	api.Delete("/tournaments/:id", authed, admin, handlers.DeleteTournament(db))

	// Tournament participants. GET /:id takes a tournament id, DELETE /:id a row id.
	api.Get("/tournament-participants", authed, admin, handlers.GetParticipants(db))
	api.Get("/tournament-participants/:id", authed, admin, handlers.GetTournamentParticipants(db))
	api.Post("/tournament-participants", authed, admin, handlers.AddParticipant(db))
	api.Delete("/tournament-participants/:id", authed, admin, handlers.DeleteParticipant(db))

	// Tournament courses. GET /:id takes a tournament id, PUT and DELETE /:id a row id.
	api.Get("/tournament-courses", authed, admin, handlers.GetAllTournamentCourses(db))
	api.Get("/tournament-courses/:id", authed, admin, handlers.GetTournamentCourses(db))
	api.Post("/tournament-courses", authed, admin, handlers.AddTournamentCourse(db))
	api.Put("/tournament-courses/:id", authed, admin, handlers.UpdateTournamentCourse(db))
	api.Delete("/tournament-courses/:id", authed, admin, handlers.DeleteTournamentCourse(db))

	api.Get("/leaderboards", authed, handlers.GetLeaderboards(db, clock))

	// Live score feed. The token arrives as ?token= on the handshake.
	api.Get("/ws/tournaments/:id", authed, handlers.LiveUpgrade(db), handlers.LiveFeed(d.Hub))

	// Anything else under /api is a JSON 404, never the SPA.
	api.Use(handlers.NotFound)

	if d.Config.StaticDir != "" {
		serveSPA(app, d.Config.StaticDir)
	}

	return app
}

// serveSPA serves the built single-page app from dir and falls back to its
// index.html so client-side routes survive a reload.
func serveSPA(app *fiber.App, dir string) {
	index := filepath.Join(dir, "index.html")
	if _, err := os.Stat(index); err != nil {
		log.WithError(err).WithField("static_dir", dir).Warn("STATIC_DIR has no index.html, not serving the SPA")
		return
	}
	app.Static("/", dir)
	app.Get("/*", func(c *fiber.Ctx) error {
		return c.SendFile(index)
	})
}

// errorHandler renders every error returned from a handler as {"error": "..."}.
// *fiber.Error carries its own status; anything else is an unexpected 500
// whose text is logged rather than sent.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	log.WithError(err).WithFields(log.Fields{
		"method": c.Method(),
		"path":   c.Path(),
	}).Error("Unhandled error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}
