package http

import (
	"net/http"

	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
)

// mutate runs fn through the ledger service and writes its result with status.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, op string, status int, fn func(*ledger.Store) (any, error)) {
	user := userParam(r)
	var result any
	err := s.ledger.Mutate(r.Context(), user, op, func(store *ledger.Store) error {
		var err error
		result, err = fn(store)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateUser(r.Context(), user)
	if result == nil {
		writeOK(w)
		return
	}
	writeJSON(w, status, result)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := req.toTransaction(s.today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.mutate(w, r, applog.OpCreate, http.StatusCreated, func(store *ledger.Store) (any, error) {
		return store.AddTransaction(tx)
	})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mutate(w, r, applog.OpDelete, http.StatusOK, func(store *ledger.Store) (any, error) {
		return nil, store.DeleteTransaction(id)
	})
}

func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := req.Amount.parse()
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.mutate(w, r, applog.OpUpdate, http.StatusOK, func(store *ledger.Store) (any, error) {
		return store.UpsertBudget(sanitizeInput(req.Category), amount)
	})
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mutate(w, r, applog.OpDelete, http.StatusOK, func(store *ledger.Store) (any, error) {
		return nil, store.DeleteBudget(id)
	})
}

func (s *Server) handleAddDebt(w http.ResponseWriter, r *http.Request) {
	var req debtRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	debt, err := req.toDebt(s.today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.mutate(w, r, applog.OpCreate, http.StatusCreated, func(store *ledger.Store) (any, error) {
		d, err := store.AddDebt(debt)
		if err != nil {
			return nil, err
		}
		return newDebtView(d), nil
	})
}

func (s *Server) handleAddPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := req.Amount.parse()
	if err != nil {
		writeError(w, r, err)
		return
	}
	date, err := parseDateOr(req.Date, s.today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	id := r.PathValue("id")
	s.mutate(w, r, applog.OpCreate, http.StatusOK, func(store *ledger.Store) (any, error) {
		d, err := store.AddPayment(id, date, amount)
		if err != nil {
			return nil, err
		}
		return newDebtView(d), nil
	})
}

func (s *Server) handleToggleDebt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mutate(w, r, applog.OpUpdate, http.StatusOK, func(store *ledger.Store) (any, error) {
		d, err := store.ToggleDebtClosed(id)
		if err != nil {
			return nil, err
		}
		return newDebtView(d), nil
	})
}

func (s *Server) handleDeleteDebt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mutate(w, r, applog.OpDelete, http.StatusOK, func(store *ledger.Store) (any, error) {
		return nil, store.DeleteDebt(id)
	})
}

func (s *Server) handleAddRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := req.toRecurring(s.today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.mutate(w, r, applog.OpCreate, http.StatusCreated, func(store *ledger.Store) (any, error) {
		return store.AddRecurring(item)
	})
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mutate(w, r, applog.OpDelete, http.StatusOK, func(store *ledger.Store) (any, error) {
		return nil, store.DeleteRecurring(id)
	})
}

func (s *Server) handlePostRecurring(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	now := s.now()
	s.mutate(w, r, applog.OpPost, http.StatusCreated, func(store *ledger.Store) (any, error) {
		return store.PostRecurring(id, now)
	})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	s.mutate(w, r, applog.OpUpdate, http.StatusOK, func(store *ledger.Store) (any, error) {
		next, err := req.apply(store.Settings())
		if err != nil {
			return nil, err
		}
		return store.UpdateSettings(next), nil
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	user := userParam(r)
	if err := s.ledger.Reset(r.Context(), user); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateUser(r.Context(), user)
	writeOK(w)
}
