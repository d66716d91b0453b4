package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yourusername/greedi-fi/internal/backtest"
	"github.com/yourusername/greedi-fi/internal/models"
)

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.strategies.Templates())
}

func (s *Server) handleCreateStrategy(w http.ResponseWriter, r *http.Request) {
	var req models.Strategy
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, models.NewValidationError("body", "invalid JSON: %v", err))
		return
	}

	created, err := s.strategies.Create(r.Context(), &req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, created)
}

func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	strategies, err := s.strategies.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, strategies)
}

func (s *Server) handleGetStrategy(w http.ResponseWriter, r *http.Request) {
	found, err := s.strategies.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, found)
}

func (s *Server) handleDeleteStrategy(w http.ResponseWriter, r *http.Request) {
	if err := s.strategies.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Strategy deleted",
	})
}

// handleUploadStrategy registers an uploaded custom strategy. The file itself
// is not executed; only its metadata is recorded.
func (s *Server) handleUploadStrategy(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		s.writeError(w, models.NewValidationError("body", "invalid multipart form: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, models.NewValidationError("file", "strategy file is required"))
		return
	}
	file.Close()

	name := r.FormValue("name")
	created, err := s.strategies.RegisterUpload(r.Context(), name, header.Filename)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"id":      created.ID,
		"name":    created.Name,
		"message": "Strategy uploaded successfully",
	})
}

func (s *Server) handleRunBacktest(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		s.writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "backtest rate limit exceeded"})
		return
	}

	var req models.BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, models.NewValidationError("body", "invalid JSON: %v", err))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			s.writeError(w, models.NewValidationError(fieldErrs[0].Field(), "failed validation rule %s", fieldErrs[0].Tag()))
			return
		}
		s.writeError(w, models.NewValidationError("body", "%v", err))
		return
	}

	result, err := s.engine.Run(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListBacktests(w http.ResponseWriter, r *http.Request) {
	results, err := s.engine.Results(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleGetBacktest(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.Result(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// handleHistoricalData serves the generated sample series for an instrument
// and date range. The fixed seed keeps the surface deterministic.
func (s *Server) handleHistoricalData(w http.ResponseWriter, r *http.Request) {
	instrument := r.PathValue("instrument")
	startDate := r.URL.Query().Get("start_date")
	endDate := r.URL.Query().Get("end_date")

	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		s.writeError(w, models.NewValidationError("start_date", "must be YYYY-MM-DD, got %q", startDate))
		return
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		s.writeError(w, models.NewValidationError("end_date", "must be YYYY-MM-DD, got %q", endDate))
		return
	}

	series := backtest.GenerateSeries(instrument, start, end, backtest.SampleDataSeed)
	s.writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.market.Symbols(r.Context()))
}

func (s *Server) handleOrderBookSnapshot(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	snapshot, err := s.market.OrderBookSnapshot(symbol)
	if err != nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "No order book data available for " + symbol,
		})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(snapshot)
}

func (s *Server) handleRecentTrades(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, models.NewValidationError("limit", "must be a positive integer, got %q", raw))
			return
		}
		limit = parsed
	}
	s.writeJSON(w, http.StatusOK, s.market.RecentTrades(symbol, limit))
}
