package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/engine"
	applog "fintrack/internal/log"
)

type transactionsResponse struct {
	Period       core.Period        `json:"period"`
	Transactions []core.Transaction `json:"transactions"`
}

// debtView adds the derived figures to a debt.
type debtView struct {
	core.Debt
	Paid        decimal.Decimal `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

func newDebtView(d core.Debt) debtView {
	return debtView{Debt: d, Paid: d.Paid(), Outstanding: d.Outstanding()}
}

// resolvePeriod returns the ?month period, or the current one.
func (s *Server) resolvePeriod(r *http.Request, settings core.Settings) (core.Period, error) {
	p, ok, err := periodQuery(r.URL.Query(), settings.Payday)
	if err != nil {
		return core.Period{}, err
	}
	if !ok {
		p = engine.CurrentPeriod(settings, s.now())
	}
	return p, nil
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user := userParam(r)
	store, err := s.ledger.Ledger(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.resolvePeriod(r, store.Settings())
	if err != nil {
		writeError(w, r, err)
		return
	}
	version, err := s.ledger.Version(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	today := s.today()
	if d, ok := s.dashboards.Get(dashboardKey(user, p, today, version)); ok {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Dashboard cache hit",
			applog.FieldUserID, user, applog.FieldPeriod, p.String())
		writeJSON(w, http.StatusOK, d)
		return
	}

	// The entry is stored under the version the snapshot was read at, so a
	// write landing while it is built leaves it unreachable.
	snap, version, err := s.ledger.View(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	d := engine.BuildDashboard(snap, p, s.now())
	s.dashboards.Set(dashboardKey(user, p, today, version), d)
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	store, err := s.ledger.Ledger(r.Context(), userParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	typ, err := typeQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap := store.Snapshot()
	p, err := s.resolvePeriod(r, snap.Settings)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionsResponse{
		Period:       p,
		Transactions: engine.FilterTransactions(snap.Transactions, p, typ),
	})
}

func (s *Server) handleListDebts(w http.ResponseWriter, r *http.Request) {
	store, err := s.ledger.Ledger(r.Context(), userParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	debts := engine.SortedDebts(store.Snapshot().Debts)
	views := make([]debtView, 0, len(debts))
	for _, d := range debts {
		views = append(views, newDebtView(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"debts": views})
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	store, err := s.ledger.Ledger(r.Context(), userParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"recurring": engine.UpcomingOccurrences(store.Snapshot().Recurring, s.now()),
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	store, err := s.ledger.Ledger(r.Context(), userParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": engine.CategorySuggestions(store.Snapshot().Transactions),
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	store, err := s.ledger.Ledger(r.Context(), userParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, store.Settings())
}
