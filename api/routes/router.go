package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/gallery-backend/api/controllers"
	"github.com/angelmondragon/gallery-backend/api/middleware"
	"github.com/angelmondragon/gallery-backend/api/responses"
	"github.com/angelmondragon/gallery-backend/internal/images"
	"github.com/angelmondragon/gallery-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/gallery-backend/pkg/errors"
	"github.com/angelmondragon/gallery-backend/pkg/logger"
)

// Dependencies are the collaborators the router hands to controllers. Optional
// pingers must be left nil, not set to a nil pointer, when not configured.
type Dependencies struct {
	Images  images.Service
	DB      controllers.Pinger
	Redis   controllers.Pinger
	Metrics http.Handler
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), nil, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": deps.DB,
			"redis":    deps.Redis,
		}))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/images", controllers.ListImages(deps.Images, logg))
		r.With(middleware.BodyLimit(cfg.Media.MaxUploadBytes(), logg)).
			Post("/upload", controllers.UploadImage(deps.Images, logg))

		r.Route("/public", func(r chi.Router) {
			r.Get("/client-config", controllers.ClientConfig(cfg.Supabase))
		})
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	return r
}
