package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"testcase-assistant/internal/handlers"
	"testcase-assistant/internal/middleware"
	"testcase-assistant/internal/websocket"
)

func New(
	generateHandler *handlers.GenerateHandler,
	uploadHandler *handlers.UploadHandler,
	storyHandler *handlers.StoryHandler,
	schedulerHandler *handlers.SchedulerHandler,
	wsHub *websocket.Hub,
	apiLimiter *middleware.RateLimiter,
	metrics *middleware.Metrics,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(middleware.CORS(frontendURL))
	if metrics != nil {
		r.Use(metrics.Middleware)
	}

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	if metrics != nil {
		r.Handle("/metrics", metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		if apiLimiter != nil {
			r.Use(apiLimiter.Middleware)
		}

		// ──── Chat proxy ────
		r.Post("/generate", generateHandler.Generate)
		r.Post("/upload", uploadHandler.Upload)

		r.Route("/api", func(r chi.Router) {
			// Paths the dashboard used before the proxy moved here
			r.Post("/generate-test-cases", generateHandler.Generate)
			r.Post("/upload-story", uploadHandler.Upload)

			// ──── Story Routes ────
			r.Route("/stories", func(r chi.Router) {
				r.Get("/", storyHandler.List)
				r.Post("/search", storyHandler.Search)
				r.Get("/projects", storyHandler.Projects)
				r.Get("/testcases/download/{id}", storyHandler.Download)
				r.Get("/{id}", storyHandler.Get)
				r.Get("/{id}/testcases", storyHandler.TestCases)
				r.Get("/{id}/test-cases/{testCaseID}", storyHandler.TestCase)

				r.Route("/impacts", func(r chi.Router) {
					r.Get("/story/{id}", storyHandler.StoryImpacts)
					r.Get("/details/{id}", storyHandler.ImpactDetails)
					r.Get("/summary/{projectID}", storyHandler.ImpactSummary)
					r.Get("/story-test-cases/{id}", storyHandler.StoryTestCaseImpacts)
				})
			})

			// ──── Scheduler Routes ────
			r.Route("/scheduler", func(r chi.Router) {
				r.Get("/next-reload", schedulerHandler.NextReload)
				r.Post("/trigger", schedulerHandler.Trigger)
			})

			// ──── Mock content ────
			r.Route("/mock", func(r chi.Router) {
				r.Get("/test-cases", handlers.MockTestCases)
				r.Get("/qa", handlers.MockQASupport)
			})

			// ──── WebSocket ────
			r.Get("/ws/chat", wsHub.HandleWebSocket)
		})
	})

	return r
}
