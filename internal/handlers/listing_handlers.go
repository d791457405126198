package handlers

import (
	"net/http"
	"strconv"

	"github.com/ManoharAnkathi/HUBILO/internal/domain"
	"github.com/ManoharAnkathi/HUBILO/internal/service"
)

func (h *Handlers) CreateListing(w http.ResponseWriter, r *http.Request) {
	owner := accountFrom(r.Context())

	var req service.CreateListingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
		return
	}

	listing, err := h.listings.Create(r.Context(), owner, &req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, listing)
}

func (h *Handlers) GetListing(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid listing id", "BAD_REQUEST")
		return
	}

	listing, err := h.listings.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listing)
}

// ListListings shows active listings to everyone; owners see their own,
// active or not, when the mine flag is set.
func (h *Handlers) ListListings(w http.ResponseWriter, r *http.Request) {
	account := accountFrom(r.Context())
	limit, offset := parsePagination(r)

	var listings []*domain.Listing
	var err error
	if account.Kind == domain.KindOwner && r.URL.Query().Get("mine") == "true" {
		listings, err = h.listings.ListForOwner(r.Context(), account.ID, limit, offset)
	} else {
		listings, err = h.listings.ListActive(r.Context(), limit, offset)
	}
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"listings": listings,
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *Handlers) SetListingActive(w http.ResponseWriter, r *http.Request) {
	account := accountFrom(r.Context())

	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid listing id", "BAD_REQUEST")
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
		return
	}

	if err := h.listings.SetActive(r.Context(), account, id, req.Active); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "listing updated"})
}

func (h *Handlers) ListAccounts(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown account kind", "NOT_FOUND")
		return
	}
	limit, offset := parsePagination(r)

	accounts, err := h.accounts.ListByKind(r.Context(), kind, limit, offset)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	infos := make([]*domain.AccountInfo, 0, len(accounts))
	for _, a := range accounts {
		infos = append(infos, a.ToAccountInfo())
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": infos,
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *Handlers) UpdateKYC(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid owner id", "BAD_REQUEST")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
		return
	}
	status, ok := domain.ParseKYCStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid kyc status", "BAD_REQUEST")
		return
	}

	if err := h.accounts.UpdateKYC(r.Context(), id, status); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "kyc status updated"})
}

func parseQueryID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
}
