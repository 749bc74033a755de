package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/smartfalcon/dealer-gateway/backend/pkg/audit"
	"github.com/smartfalcon/dealer-gateway/backend/pkg/common/api"
	"github.com/smartfalcon/dealer-gateway/backend/pkg/common/metrics"
	"github.com/smartfalcon/dealer-gateway/backend/pkg/fabricclient"
	"github.com/smartfalcon/dealer-gateway/backend/services/dealer-gateway/models"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	routeCreate  = "createAsset"
	routeQuery   = "queryAsset"
	routeUpdate  = "updateAsset"
	routeExists  = "assetExists"
	routeHistory = "assetHistory"

	outcomeOK = "ok"
)

// Service relays HTTP requests to the dealer asset contract. Every ledger
// failure is answered with 500 and the error text; the error kind only shows
// up in logs, metrics and the audit trail.
type Service struct {
	connector fabricclient.Connector
	audit     audit.Recorder
	metrics   *metrics.Metrics
	log       *zap.SugaredLogger
}

func NewService(connector fabricclient.Connector, recorder audit.Recorder, m *metrics.Metrics, log *zap.SugaredLogger) *Service {
	return &Service{connector: connector, audit: recorder, metrics: m, log: log}
}

func (s *Service) CreateAssetHandler(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req models.CreateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		err = fabricclient.Validation("decode request", err)
		api.WriteText(w, http.StatusInternalServerError, "Error creating asset: %v", err)
		s.finish(r, audit.Entry{Operation: routeCreate}, started, err)
		return
	}

	_, err := s.invoke(r.Context(), true, "CreateAsset", req.Args()...)
	if err != nil {
		api.WriteText(w, http.StatusInternalServerError, "Error creating asset: %v", err)
	} else {
		api.WriteText(w, http.StatusOK, "Asset with DealerID %s created successfully", req.DealerID)
	}
	s.finish(r, audit.Entry{
		Operation:   routeCreate,
		DealerID:    req.DealerID,
		AssetStatus: req.Status,
		MPIN:        req.MPIN,
	}, started, err)
}

func (s *Service) QueryAssetHandler(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	dealerID := mux.Vars(r)["dealerID"]

	entry := audit.Entry{Operation: routeQuery, DealerID: dealerID}
	result, err := s.invoke(r.Context(), false, "QueryAsset", dealerID)
	if err != nil {
		api.WriteText(w, http.StatusInternalServerError, "Error querying asset: %v", err)
	} else {
		api.WriteText(w, http.StatusOK, "Asset data: %s", result)
		entry.AssetStatus = gjson.GetBytes(result, "status").String()
	}
	s.finish(r, entry, started, err)
}

func (s *Service) UpdateAssetHandler(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	dealerID := mux.Vars(r)["dealerID"]

	var req models.UpdateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		err = fabricclient.Validation("decode request", err)
		api.WriteText(w, http.StatusInternalServerError, "Error updating asset: %v", err)
		s.finish(r, audit.Entry{Operation: routeUpdate, DealerID: dealerID}, started, err)
		return
	}

	_, err := s.invoke(r.Context(), true, "UpdateAsset", dealerID, string(req.Balance), req.Status)
	if err != nil {
		api.WriteText(w, http.StatusInternalServerError, "Error updating asset: %v", err)
	} else {
		api.WriteText(w, http.StatusOK, "Asset with DealerID %s updated successfully", dealerID)
	}
	s.finish(r, audit.Entry{Operation: routeUpdate, DealerID: dealerID, AssetStatus: req.Status}, started, err)
}

func (s *Service) AssetExistsHandler(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	dealerID := mux.Vars(r)["dealerID"]

	result, err := s.invoke(r.Context(), false, "AssetExists", dealerID)
	if err != nil {
		api.WriteText(w, http.StatusInternalServerError, "Error checking asset: %v", err)
	} else {
		api.WriteText(w, http.StatusOK, "%s", result)
	}
	s.finish(r, audit.Entry{Operation: routeExists, DealerID: dealerID}, started, err)
}

func (s *Service) AssetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	dealerID := mux.Vars(r)["dealerID"]

	result, err := s.invoke(r.Context(), false, "GetTransactionHistory", dealerID)
	if err != nil {
		api.WriteText(w, http.StatusInternalServerError, "Error querying asset history: %v", err)
	} else {
		api.WriteText(w, http.StatusOK, "Asset history: %s", result)
		s.log.Infow("asset history", "dealerID", dealerID, "entries", gjson.GetBytes(result, "#").Int())
	}
	s.finish(r, audit.Entry{Operation: routeHistory, DealerID: dealerID}, started, err)
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	api.WriteText(w, http.StatusOK, "ok")
}

// invoke opens a ledger handle, runs one contract function on it and closes it.
func (s *Service) invoke(ctx context.Context, submit bool, fn string, args ...string) ([]byte, error) {
	started := time.Now()
	result, err := s.call(ctx, submit, fn, args...)
	s.metrics.ObserveLedgerCall(fn, s.connector.Mode(), outcomeOf(err), started)
	return result, err
}

func (s *Service) call(ctx context.Context, submit bool, fn string, args ...string) ([]byte, error) {
	ledger, err := s.connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer ledger.Close()

	if submit {
		return ledger.SubmitTransaction(fn, args...)
	}
	return ledger.EvaluateTransaction(fn, args...)
}

// finish runs after the response is written. entry carries the operation,
// dealer and request fields; outcome and timing are filled in here.
func (s *Service) finish(r *http.Request, entry audit.Entry, started time.Time, err error) {
	entry.Outcome = outcomeOf(err)
	entry.Duration = time.Since(started)
	s.metrics.ObserveRequest(entry.Operation, entry.Outcome)

	if err != nil {
		entry.ErrorText = err.Error()
		s.log.Warnw("ledger request failed", "route", entry.Operation, "dealerID", entry.DealerID,
			"kind", entry.Outcome, "duration", entry.Duration, "error", err)
	} else {
		s.log.Infow("ledger request", "route", entry.Operation, "dealerID", entry.DealerID,
			"status", entry.AssetStatus, "duration", entry.Duration)
	}

	if aerr := s.audit.Record(r.Context(), entry); aerr != nil {
		s.log.Errorw("failed to record audit entry", "route", entry.Operation, "dealerID", entry.DealerID, "error", aerr)
	}
}

func outcomeOf(err error) string {
	if err == nil {
		return outcomeOK
	}
	return string(fabricclient.KindOf(err))
}
