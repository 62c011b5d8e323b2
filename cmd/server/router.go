package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/voltlab/voltlab-api/internal/api"
	apiMiddleware "github.com/voltlab/voltlab-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	authHandler := api.NewAuthHandler(
		app.userStore,
		app.codes,
		app.smsSender,
		app.jwtService,
		app.passwordHasher,
		app.passwordVerifier,
		app.quota,
		app.config.Auth,
		app.logger,
	)
	uploadHandler := api.NewUploadHandler(
		app.userStore,
		app.quota,
		app.admission,
		app.orchestrator,
		app.analyzer,
		app.preloader,
		app.config.Upload,
		app.logger,
	)
	animationHandler := api.NewAnimationHandler(
		app.animationStore,
		app.userStore,
		app.quota,
		app.config.Server,
		app.logger,
	)
	feedbackHandler := api.NewFeedbackHandler(app.feedbackStore, app.logger)
	membershipHandler := api.NewMembershipHandler(app.userStore, app.quota, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/send-code", authHandler.SendCode)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/reset-password", authHandler.ResetPassword)

		// Public animation views and feedback. Feedback links to the
		// account when a valid token happens to be present.
		r.Get("/plaza/animations", animationHandler.Plaza)
		r.Get("/play/{shareCode}", animationHandler.Play)
		r.With(authMiddleware.AuthenticateOptional).Post("/feedback", feedbackHandler.Submit)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Get("/auth/me", authHandler.Me)
			r.Post("/circuits/upload", uploadHandler.Upload)

			r.Post("/animations", animationHandler.Create)
			r.Get("/animations/mine", animationHandler.Mine)
			r.Get("/animations/{animationID}", animationHandler.Detail)
			r.Delete("/animations/{animationID}", animationHandler.Delete)
			r.Post("/animations/{animationID}/publish", animationHandler.Publish)
			r.Post("/animations/{animationID}/unpublish", animationHandler.Unpublish)
			r.Post("/animations/{animationID}/share-link", animationHandler.ShareLink)
			r.Post("/plaza/animations/{animationID}/fork", animationHandler.Fork)

			r.Get("/membership/status", membershipHandler.Status)
			r.Get("/membership/check-limit", membershipHandler.CheckLimit)
			r.Post("/membership/grant", membershipHandler.Grant)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
