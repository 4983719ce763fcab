package server

import "net/http"

// LogoSlotRequest edits a logo slot. Setting assetId also activates the
// slot; other absent fields are left alone.
type LogoSlotRequest struct {
	AssetID *string  `json:"assetId,omitempty"`
	Active  *bool    `json:"active,omitempty"`
	Span    *int     `json:"span,omitempty"`
	Opacity *float64 `json:"opacity,omitempty"`
	Title   *string  `json:"title,omitempty"`
	Frame   *string  `json:"frame,omitempty"`
}

func (h *handlers) handlePutLogoSlot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LogoSlotRequest
		if err := readJSON(w, r, &req); err != nil {
			h.writeErr(w, r, err)
			return
		}
		ctx, slot := r.Context(), slotFrom(r)

		st, err := h.state.State(ctx)
		if err == nil && req.AssetID != nil {
			st, err = h.state.SetLogoSlot(ctx, slot, *req.AssetID)
		}
		if err == nil && req.Active != nil {
			st, err = h.state.SetLogoSlotActive(ctx, slot, *req.Active)
		}
		if err == nil && req.Span != nil {
			st, err = h.state.SetLogoSlotSpan(ctx, slot, *req.Span)
		}
		if err == nil && req.Opacity != nil {
			st, err = h.state.SetLogoSlotOpacity(ctx, slot, *req.Opacity)
		}
		if err == nil && (req.Title != nil || req.Frame != nil) {
			cur := st.LogoSlots[slot]
			title, frame := cur.Title, cur.Frame
			if req.Title != nil {
				title = *req.Title
			}
			if req.Frame != nil {
				frame = *req.Frame
			}
			st, err = h.state.SetLogoSlotTitle(ctx, slot, title, frame)
		}
		h.respondState(w, r, st, err)
	}
}

func (h *handlers) handleClearLogoSlot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := h.state.ClearLogoSlot(r.Context(), slotFrom(r))
		h.respondState(w, r, st, err)
	}
}
