package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/scoreboard/internal/assets"
	"github.com/playperu/scoreboard/internal/handler/health"
	"github.com/playperu/scoreboard/internal/roster"
	"github.com/playperu/scoreboard/internal/scoreboard"
	"github.com/playperu/scoreboard/internal/view"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

type seatPath struct {
	Player int `path:"player" minimum:"1" maximum:"2"`
}

type slotPath struct {
	Slot string `path:"slot"`
}

type idPath struct {
	ID string `path:"id"`
}

type assetListQuery struct {
	Type  string `query:"type"`
	Tag   string `query:"tag"`
	Limit int    `query:"limit"`
}

type rosterSearchQuery struct {
	Q     string `query:"q"`
	Sport string `query:"sport"`
	Sort  string `query:"sort" enum:"name,rating,recent"`
	Limit int    `query:"limit"`
}

type uploadForm struct {
	File []byte `formData:"file" format:"binary" required:"true"`
	ID   string `formData:"id"`
	Type string `formData:"type"`
	Tags string `formData:"tags"`
}

// mutation documents an operation that answers with the full MatchState.
func mutation(r *openapi3.Reflector, method, path, summary, description string, req any) {
	op, _ := r.NewOperationContext(method, path)
	op.SetSummary(summary)
	op.SetDescription(description)
	if req != nil {
		op.AddReqStructure(req)
	}
	op.AddRespStructure(scoreboard.MatchState{}, openapi.WithHTTPStatus(http.StatusOK))
	op.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	op.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(op)
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Scoreboard API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Control API for the live scoreboard overlay.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Reports the store and broadcast transport. A broadcast failure only degrades the report.")
	getHealthz.AddRespStructure(health.Report{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(health.Report{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /ws/broadcast
	getBroadcast, _ := r.NewOperationContext(http.MethodGet, "/ws/broadcast")
	getBroadcast.SetSummary("Broadcast bridge")
	getBroadcast.SetDescription("Upgrades to a WebSocket carrying trigger message envelopes in both directions.")
	getBroadcast.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	getBroadcast.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getBroadcast)

	// GET /api/state
	getState, _ := r.NewOperationContext(http.MethodGet, "/api/state")
	getState.SetSummary("Get match state")
	getState.SetDescription("Returns the full live MatchState document.")
	getState.AddRespStructure(scoreboard.MatchState{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getState)

	mutation(r, http.MethodPut, "/api/state", "Replace match state",
		"Replaces the whole document. Values of the wrong type are rejected.", scoreboard.MatchState{})
	mutation(r, http.MethodPatch, "/api/state", "Merge match state",
		"Merges a partial document: objects merge recursively, arrays replace.", map[string]any{})

	// GET /api/state/value
	getValue, _ := r.NewOperationContext(http.MethodGet, "/api/state/value")
	getValue.SetSummary("Read a value")
	getValue.SetDescription("Reads a dot-separated path such as matchData.player1.score.")
	getValue.AddReqStructure(struct {
		Path string `query:"path" required:"true"`
	}{})
	getValue.AddRespStructure(ValueResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getValue.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getValue)

	mutation(r, http.MethodPut, "/api/state/value", "Write a value",
		"Writes a value at an existing dot-separated path.", ValueResponse{})

	// GET /api/state/view
	getView, _ := r.NewOperationContext(http.MethodGet, "/api/state/view")
	getView.SetSummary("Overlay snapshot")
	getView.SetDescription("Returns the render snapshot overlays draw from.")
	getView.AddRespStructure(view.View{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getView)

	// GET /api/state/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/state/events")
	getEvents.SetSummary("Overlay snapshot stream")
	getEvents.SetDescription("Server-Sent Events stream of render snapshots, starting with the current one.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	mutation(r, http.MethodPost, "/api/reset", "Reset",
		"Resets the match (scores, counters, clock, rack), only the scores, or everything.", ResetRequest{})
	mutation(r, http.MethodPatch, "/api/match", "Edit match info",
		"Sets the info tabs and the active sport.", MatchInfoRequest{})

	mutation(r, http.MethodPatch, "/api/players/{player}", "Edit player",
		"Sets name, ratings, color, photo or timeouts of seat 1 or 2.", struct {
			seatPath
			PlayerRequest
		}{})
	mutation(r, http.MethodPut, "/api/players/{player}/score", "Set score",
		"Sets the score; negative values store 0.", struct {
			seatPath
			ScoreRequest
		}{})
	mutation(r, http.MethodPost, "/api/players/{player}/score/increment", "Increment score",
		"Adds amount (default 1) to the score.", struct {
			seatPath
			AmountRequest
		}{})
	mutation(r, http.MethodPost, "/api/players/{player}/score/decrement", "Decrement score",
		"Subtracts amount (default 1), never below 0.", struct {
			seatPath
			AmountRequest
		}{})
	mutation(r, http.MethodPost, "/api/players/{player}/extensions", "Call extension",
		"Grants an extension and adds its time to the clock. Past the maximum it does nothing.", seatPath{})
	mutation(r, http.MethodDelete, "/api/players/{player}/extensions", "Revoke extension",
		"Takes an extension back; refund=true also removes its time.", struct {
			seatPath
			Refund bool `query:"refund"`
		}{})
	mutation(r, http.MethodPut, "/api/players/{player}/ballset", "Assign ball set",
		"Assigns solids or stripes; the opponent gets the other set.", struct {
			seatPath
			BallSetRequest
		}{})

	mutation(r, http.MethodPatch, "/api/shotclock", "Shot clock settings",
		"Sets duration, extension duration, maximum extensions or remaining time.", ShotClockRequest{})
	mutation(r, http.MethodPost, "/api/shotclock/start", "Start shot clock",
		"Starts the clock; an expired clock restarts from the full duration.", nil)
	mutation(r, http.MethodPost, "/api/shotclock/stop", "Stop shot clock", "Pauses the clock.", nil)
	mutation(r, http.MethodPost, "/api/shotclock/reset", "Reset shot clock",
		"Stops the clock and reloads the full duration.", nil)
	mutation(r, http.MethodPost, "/api/shotclock/visibility", "Toggle shot clock",
		"Shows or hides the clock.", nil)

	mutation(r, http.MethodPut, "/api/logos/{slot}", "Edit logo slot",
		"Places an asset in a slot and sets its display options.", struct {
			slotPath
			LogoSlotRequest
		}{})
	mutation(r, http.MethodDelete, "/api/logos/{slot}", "Clear logo slot",
		"Empties and deactivates a slot.", slotPath{})

	mutation(r, http.MethodPatch, "/api/billiards", "Ball tracker settings",
		"Enables the tracker or switches the game type.", BallTrackerRequest{})
	mutation(r, http.MethodPost, "/api/billiards/balls/{ball}", "Toggle ball",
		"Marks a ball as pocketed or back on the table.", struct {
			Ball int `path:"ball" minimum:"1" maximum:"15"`
		}{})
	mutation(r, http.MethodDelete, "/api/billiards/balls", "Re-rack",
		"Clears all pocketed balls.", nil)

	mutation(r, http.MethodPut, "/api/settings/ui", "UI settings",
		"Replaces skin, theme and visibility settings.", scoreboard.UISettings{})
	mutation(r, http.MethodPut, "/api/settings/ads", "Advertising settings",
		"Replaces the advertising module settings.", scoreboard.Advertising{})
	mutation(r, http.MethodPut, "/api/settings/ads/background", "Ads background",
		"Sets the advertising background color.", BackgroundRequest{})

	// GET /api/assets
	listAssets, _ := r.NewOperationContext(http.MethodGet, "/api/assets")
	listAssets.SetSummary("List assets")
	listAssets.SetDescription("Lists asset metadata, newest first.")
	listAssets.AddReqStructure(assetListQuery{})
	listAssets.AddRespStructure([]scoreboard.Asset{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listAssets)

	// POST /api/assets
	uploadAsset, _ := r.NewOperationContext(http.MethodPost, "/api/assets")
	uploadAsset.SetSummary("Upload asset")
	uploadAsset.SetDescription("Uploads a PNG, JPEG, GIF, WEBP or SVG image. The content is checked independently of the declared type.")
	uploadAsset.AddReqStructure(uploadForm{})
	uploadAsset.AddRespStructure(assets.UploadResult{}, openapi.WithHTTPStatus(http.StatusCreated))
	uploadAsset.AddRespStructure(assets.UploadResult{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	_ = r.AddOperation(uploadAsset)

	// GET /api/assets/{id}
	getAsset, _ := r.NewOperationContext(http.MethodGet, "/api/assets/{id}")
	getAsset.SetSummary("Get asset")
	getAsset.SetDescription("Returns asset metadata.")
	getAsset.AddReqStructure(idPath{})
	getAsset.AddRespStructure(scoreboard.Asset{}, openapi.WithHTTPStatus(http.StatusOK))
	getAsset.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getAsset)

	// GET /api/assets/{id}/blob
	getBlob, _ := r.NewOperationContext(http.MethodGet, "/api/assets/{id}/blob")
	getBlob.SetSummary("Download asset")
	getBlob.SetDescription("Returns the image bytes.")
	getBlob.AddReqStructure(idPath{})
	getBlob.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK), openapi.WithContentType("image/*"))
	getBlob.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getBlob)

	// PUT /api/assets/{id}/tags
	putTags, _ := r.NewOperationContext(http.MethodPut, "/api/assets/{id}/tags")
	putTags.SetSummary("Set asset tags")
	putTags.SetDescription("Replaces the tag set of an asset.")
	putTags.AddReqStructure(struct {
		idPath
		TagsRequest
	}{})
	putTags.AddRespStructure(scoreboard.Asset{}, openapi.WithHTTPStatus(http.StatusOK))
	putTags.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(putTags)

	// DELETE /api/assets/{id}
	deleteAsset, _ := r.NewOperationContext(http.MethodDelete, "/api/assets/{id}")
	deleteAsset.SetSummary("Delete asset")
	deleteAsset.SetDescription("Deletes an asset. Slots still pointing at it render empty.")
	deleteAsset.AddReqStructure(idPath{})
	deleteAsset.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	deleteAsset.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deleteAsset)

	// GET /api/roster
	searchRoster, _ := r.NewOperationContext(http.MethodGet, "/api/roster")
	searchRoster.SetSummary("Search roster")
	searchRoster.SetDescription("Searches saved players by name or country.")
	searchRoster.AddReqStructure(rosterSearchQuery{})
	searchRoster.AddRespStructure([]scoreboard.RosterEntry{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(searchRoster)

	// POST /api/roster
	addRoster, _ := r.NewOperationContext(http.MethodPost, "/api/roster")
	addRoster.SetSummary("Add player")
	addRoster.SetDescription("Saves a new player profile.")
	addRoster.AddReqStructure(roster.Entry{})
	addRoster.AddRespStructure(scoreboard.RosterEntry{}, openapi.WithHTTPStatus(http.StatusCreated))
	addRoster.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(addRoster)

	// POST /api/roster/import
	importRoster, _ := r.NewOperationContext(http.MethodPost, "/api/roster/import")
	importRoster.SetSummary("Import CSV")
	importRoster.SetDescription("Imports players from CSV. A header row with name and rating or fargo columns is detected.")
	importRoster.AddReqStructure(nil, openapi.WithContentType("text/csv"))
	importRoster.AddRespStructure(roster.ImportResult{}, openapi.WithHTTPStatus(http.StatusOK))
	importRoster.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(importRoster)

	// PUT /api/roster/{id}
	updateRoster, _ := r.NewOperationContext(http.MethodPut, "/api/roster/{id}")
	updateRoster.SetSummary("Update player")
	updateRoster.SetDescription("Replaces a saved player profile. Seats it was loaded into are not changed.")
	updateRoster.AddReqStructure(struct {
		idPath
		roster.Entry
	}{})
	updateRoster.AddRespStructure(scoreboard.RosterEntry{}, openapi.WithHTTPStatus(http.StatusOK))
	updateRoster.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(updateRoster)

	// DELETE /api/roster/{id}
	deleteRoster, _ := r.NewOperationContext(http.MethodDelete, "/api/roster/{id}")
	deleteRoster.SetSummary("Delete player")
	deleteRoster.SetDescription("Deletes a saved player profile.")
	deleteRoster.AddReqStructure(idPath{})
	deleteRoster.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	deleteRoster.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deleteRoster)

	mutation(r, http.MethodPost, "/api/roster/{id}/load", "Load into match",
		"Copies a saved player into seat 1 or 2.", struct {
			idPath
			LoadRequest
		}{})

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
