package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/tenmo/internal/domain"
)

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) CreateTransferHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Malformed JSON body")
		return
	}

	transfer, err := h.ledger.SendFunds(r.Context(), req.FromAccountID, req.ToAccountID, req.Amount)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/transfers/%d", transfer.ID))
	h.respondJSON(w, r, http.StatusCreated, transfer)
}

func (h *Handler) GetTransferHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	transfer, err := h.queries.Detail(r.Context(), id)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, transfer)
}

func (h *Handler) GetAccountTransfersHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	history, err := h.queries.HistoryFor(r.Context(), id)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, history)
}

func (h *Handler) GetAccountUsernameHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	username, err := h.directory.UsernameForAccount(r.Context(), id)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]any{"account_id": id, "username": username})
}

func (h *Handler) SearchAccountsHandler(w http.ResponseWriter, r *http.Request) {
	matches, err := h.directory.SearchAccounts(r.Context(), r.URL.Query().Get("username"))
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, matches)
}

func (h *Handler) GetUserAccountHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	account, err := h.queries.AccountOf(r.Context(), id)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, account)
}

func (h *Handler) GetUserBalanceHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	balance, err := h.queries.BalanceOf(r.Context(), id)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]decimal.Decimal{"balance": balance})
}
