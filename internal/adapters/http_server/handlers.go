// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/outrigger999/rental-recon/internal/app"
	"github.com/outrigger999/rental-recon/internal/domain"
)

type Handlers struct {
	Q *app.QueryService
	C *app.CommandService
	// DiscountPct mirrors the estimator's range discount so views with a
	// stored minutes value but a missing display (stale rows from before
	// the display column existed) re-derive the identical range.
	DiscountPct int
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Route("/v1", func(r chi.Router) {
		r.Get("/properties", h.listProperties)
		r.Post("/properties", h.createProperty)
		r.Get("/properties/{id}", h.getProperty)
		r.Put("/properties/{id}", h.updateProperty)
		r.Delete("/properties/{id}", h.deleteProperty)
		r.Post("/properties/{id}/travel-times", h.recomputeTravelTimes)
		r.Post("/properties/{id}/notes", h.addNote)
		r.Delete("/properties/{id}/notes/{noteID}", h.deleteNote)
		r.Get("/settings", h.getSettings)
		r.Put("/settings", h.updateSettings)
	})
}

// ---- DTOs ----

type propertyInput struct {
	Address           string  `json:"address"`
	PropertyType      string  `json:"property_type"`
	PricePerMonth     float64 `json:"price_per_month"`
	SquareFootage     float64 `json:"square_footage"`
	Description       *string `json:"description"`
	Contacts          *string `json:"contacts"`
	CatFriendly       bool    `json:"cat_friendly"`
	AirConditioning   bool    `json:"air_conditioning"`
	OnPremisesParking bool    `json:"on_premises_parking"`
}

type noteDTO struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// propertyDTO carries one travel_time_<slot> / travel_time_<slot>_display
// pair per slot; both null until computed, both set after.
type propertyDTO struct {
	ID                int64     `json:"id"`
	Address           string    `json:"address"`
	PropertyType      string    `json:"property_type"`
	PricePerMonth     float64   `json:"price_per_month"`
	SquareFootage     float64   `json:"square_footage"`
	Description       *string   `json:"description"`
	Contacts          *string   `json:"contacts"`
	CatFriendly       bool      `json:"cat_friendly"`
	AirConditioning   bool      `json:"air_conditioning"`
	OnPremisesParking bool      `json:"on_premises_parking"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	TravelTime830am         *int    `json:"travel_time_830am"`
	TravelTime830amDisplay  *string `json:"travel_time_830am_display"`
	TravelTime930am         *int    `json:"travel_time_930am"`
	TravelTime930amDisplay  *string `json:"travel_time_930am_display"`
	TravelTimeMidday        *int    `json:"travel_time_midday"`
	TravelTimeMiddayDisplay *string `json:"travel_time_midday_display"`
	TravelTime630pm         *int    `json:"travel_time_630pm"`
	TravelTime630pmDisplay  *string `json:"travel_time_630pm_display"`
	TravelTime730pm         *int    `json:"travel_time_730pm"`
	TravelTime730pmDisplay  *string `json:"travel_time_730pm_display"`

	Notes []noteDTO `json:"notes,omitempty"`
}

func (h *Handlers) toDTO(pv domain.PropertyView) propertyDTO {
	d := propertyDTO{
		ID:                pv.ID,
		Address:           pv.Address,
		PropertyType:      pv.PropertyType,
		PricePerMonth:     pv.PricePerMonth,
		SquareFootage:     pv.SquareFootage,
		Description:       pv.Description,
		Contacts:          pv.Contacts,
		CatFriendly:       pv.CatFriendly,
		AirConditioning:   pv.AirConditioning,
		OnPremisesParking: pv.OnPremisesParking,
		CreatedAt:         pv.CreatedAt,
		UpdatedAt:         pv.UpdatedAt,
	}
	slot := func(name string) (*int, *string) {
		est, ok := pv.TravelTimes[name]
		if !ok {
			return nil, nil
		}
		m := est.Minutes
		disp := est.Display
		if disp == "" {
			lo, hi := domain.DeriveRange(m, h.DiscountPct)
			disp = domain.FormatRange(lo, hi)
		}
		return &m, &disp
	}
	d.TravelTime830am, d.TravelTime830amDisplay = slot("830am")
	d.TravelTime930am, d.TravelTime930amDisplay = slot("930am")
	d.TravelTimeMidday, d.TravelTimeMiddayDisplay = slot("midday")
	d.TravelTime630pm, d.TravelTime630pmDisplay = slot("630pm")
	d.TravelTime730pm, d.TravelTime730pmDisplay = slot("730pm")

	for _, n := range pv.Notes {
		d.Notes = append(d.Notes, noteDTO{ID: n.ID, Content: n.Content, CreatedAt: n.CreatedAt})
	}
	return d
}

// ---- helpers ----

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON body failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func idParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// ---- properties ----

func (h *Handlers) listProperties(w http.ResponseWriter, r *http.Request) {
	var q domain.PropertiesQuery
	if t := r.URL.Query().Get("type"); t != "" {
		q.Type = &t
	}
	if ps := r.URL.Query().Get("max_price"); ps != "" {
		p, err := strconv.ParseFloat(ps, 64)
		if err != nil || p < 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid max_price", "max_price must be a non-negative number")
			return
		}
		q.MaxPrice = &p
	}
	if cs := r.URL.Query().Get("cat_friendly"); cs != "" {
		c, err := strconv.ParseBool(cs)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid cat_friendly", "cat_friendly must be a boolean")
			return
		}
		q.CatFriendly = &c
	}
	q.Sort = r.URL.Query().Get("sort")
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 500 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 500")
			return
		}
		q.Limit = l
	}

	items, err := h.Q.ListProperties(r.Context(), q)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "listing properties failed")
		return
	}
	out := make([]propertyDTO, 0, len(items))
	for _, pv := range items {
		out = append(out, h.toDTO(pv))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) createProperty(w http.ResponseWriter, r *http.Request) {
	var in propertyInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	id, err := h.C.CreateProperty(r.Context(), toDomain(0, in))
	if err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "Invalid Property", err.Error())
		return
	}
	pv, err := h.Q.GetProperty(r.Context(), id)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "property created but could not be read back")
		return
	}
	writeJSON(w, http.StatusCreated, h.toDTO(pv))
}

func toDomain(id int64, in propertyInput) domain.Property {
	return domain.Property{
		ID:                id,
		Address:           strings.TrimSpace(in.Address),
		PropertyType:      in.PropertyType,
		PricePerMonth:     in.PricePerMonth,
		SquareFootage:     in.SquareFootage,
		Description:       in.Description,
		Contacts:          in.Contacts,
		CatFriendly:       in.CatFriendly,
		AirConditioning:   in.AirConditioning,
		OnPremisesParking: in.OnPremisesParking,
	}
}

func (h *Handlers) getProperty(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	pv, err := h.Q.GetProperty(r.Context(), id)
	if err != nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "property not found")
		return
	}

	etag, body := calcETagAndBody(h.toDTO(pv))
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write getProperty body")
	}
}

func (h *Handlers) updateProperty(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	var in propertyInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.C.UpdateProperty(r.Context(), toDomain(id, in)); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "property not found")
			return
		}
		writeProblem(w, http.StatusUnprocessableEntity, "Invalid Property", err.Error())
		return
	}
	pv, err := h.Q.GetProperty(r.Context(), id)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "property updated but could not be read back")
		return
	}
	writeJSON(w, http.StatusOK, h.toDTO(pv))
}

func (h *Handlers) deleteProperty(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	if err := h.C.DeleteProperty(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "property not found")
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "delete failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- travel times ----

func (h *Handlers) recomputeTravelTimes(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	pv, err := h.C.RecomputeTravelTimes(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeProblem(w, http.StatusNotFound, "Not Found", "property not found")
		case errors.Is(err, domain.ErrTravelTimeUnavailable):
			// Explicit unavailable state; stored values are untouched.
			writeProblem(w, http.StatusBadGateway, "Travel Time Unavailable",
				"neither the route provider nor the fallback could produce an estimate")
		default:
			writeProblem(w, http.StatusUnprocessableEntity, "Recompute Failed", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, h.toDTO(pv))
}

// ---- notes ----

func (h *Handlers) addNote(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	var in struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	noteID, err := h.C.AddNote(r.Context(), domain.PropertyNote{PropertyID: id, Content: in.Content})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "property not found")
			return
		}
		writeProblem(w, http.StatusUnprocessableEntity, "Invalid Note", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": noteID})
}

func (h *Handlers) deleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	noteID, err := idParam(r, "noteID")
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "note id must be a number")
		return
	}
	if err := h.C.DeleteNote(r.Context(), id, noteID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "note not found")
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "delete failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- settings ----

func (h *Handlers) getSettings(w http.ResponseWriter, r *http.Request) {
	st, err := h.Q.GetSettings(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "reading settings failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"origin_address": st.OriginAddress})
}

func (h *Handlers) updateSettings(w http.ResponseWriter, r *http.Request) {
	var in struct {
		OriginAddress string `json:"origin_address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.C.UpdateSettings(r.Context(), domain.Settings{OriginAddress: strings.TrimSpace(in.OriginAddress)}); err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "Invalid Settings", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"origin_address": strings.TrimSpace(in.OriginAddress)})
}
