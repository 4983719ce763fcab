package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/scoreboard/internal/handler/bridge"
	"github.com/playperu/scoreboard/internal/handler/health"
)

func addRoutes(r chi.Router, logger *slog.Logger, h *handlers, deps Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Scoreboard API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(logger, deps.Checks, "broadcast").Routes())
	r.Mount("/ws", bridge.NewHandler(logger, deps.Channel).Routes())

	r.Route("/api/state", func(r chi.Router) {
		r.Get("/", h.handleGetState())
		r.Put("/", h.handlePutState())
		r.Patch("/", h.handlePatchState())
		r.Get("/value", h.handleGetValue())
		r.Put("/value", h.handlePutValue())
		r.Get("/view", h.handleGetView())
		r.Get("/events", h.handleEvents(topicView))
	})
	r.Post("/api/reset", h.handleReset())
	r.Patch("/api/match", h.handlePatchMatch())

	// {player} is resolved to seat 1 or 2 by seatMiddleware.
	r.Route("/api/players/{player}", func(r chi.Router) {
		r.Use(seatMiddleware)
		r.Patch("/", h.handlePatchPlayer())
		r.Put("/score", h.handleSetScore())
		r.Post("/score/increment", h.handleScoreStep(true))
		r.Post("/score/decrement", h.handleScoreStep(false))
		r.Post("/extensions", h.handleAddExtension())
		r.Delete("/extensions", h.handleRemoveExtension())
		r.Put("/ballset", h.handleSetBallSet())
	})

	r.Route("/api/shotclock", func(r chi.Router) {
		r.Patch("/", h.handlePatchShotClock())
		r.Post("/start", h.handleClockAction(h.state.StartShotClock))
		r.Post("/stop", h.handleClockAction(h.state.StopShotClock))
		r.Post("/reset", h.handleClockAction(h.state.ResetShotClock))
		r.Post("/visibility", h.handleClockAction(h.state.ToggleShotClockVisibility))
	})

	r.Route("/api/logos/{slot}", func(r chi.Router) {
		r.Use(slotMiddleware)
		r.Put("/", h.handlePutLogoSlot())
		r.Delete("/", h.handleClearLogoSlot())
	})

	r.Route("/api/billiards", func(r chi.Router) {
		r.Patch("/", h.handlePatchBallTracker())
		r.Post("/balls/{ball}", h.handleToggleBall())
		r.Delete("/balls", h.handleClearBalls())
	})

	r.Route("/api/settings", func(r chi.Router) {
		r.Put("/ui", h.handlePutUISettings())
		r.Put("/ads", h.handlePutAdvertising())
		r.Put("/ads/background", h.handlePutAdsBackground())
	})

	r.Route("/api/assets", func(r chi.Router) {
		r.Get("/", h.handleListAssets())
		r.Post("/", h.handleUploadAsset())
		r.Get("/events", h.handleEvents(topicAssets))
		r.Get("/{id}", h.handleGetAsset())
		r.Get("/{id}/blob", h.handleAssetBlob())
		r.Put("/{id}/tags", h.handleSetAssetTags())
		r.Delete("/{id}", h.handleDeleteAsset())
	})

	r.Route("/api/roster", func(r chi.Router) {
		r.Get("/", h.handleSearchRoster())
		r.Post("/", h.handleAddRoster())
		r.Post("/import", h.handleImportRoster())
		r.Get("/events", h.handleEvents(topicRoster))
		r.Get("/{id}", h.handleGetRoster())
		r.Put("/{id}", h.handleUpdateRoster())
		r.Delete("/{id}", h.handleDeleteRoster())
		r.Post("/{id}/load", h.handleLoadRoster())
	})

	if deps.SPADir != "" {
		if info, err := os.Stat(deps.SPADir); err == nil && info.IsDir() {
			logger.Info("serving control panel and overlays", "dir", deps.SPADir)
			r.NotFound(handleSPA(deps.SPADir))
		}
	}
}
