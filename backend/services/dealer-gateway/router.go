package main

import (
	"github.com/gorilla/mux"
	"github.com/smartfalcon/dealer-gateway/backend/pkg/common"
	"github.com/smartfalcon/dealer-gateway/backend/pkg/common/metrics"
)

// NewRouter wires the ledger routes, guarded by bearer auth when configured,
// next to the unauthenticated health and metrics endpoints.
func NewRouter(svc *Service, m *metrics.Metrics, auth common.AuthConfig) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", HealthHandler).Methods("GET")
	r.Handle("/metrics", m.Handler()).Methods("GET")

	ledger := r.NewRoute().Subrouter()
	if auth.Enabled() {
		ledger.Use(common.AuthMiddleware([]byte(auth.JWTSecret)))
	}
	ledger.HandleFunc("/createAsset", svc.CreateAssetHandler).Methods("POST")
	ledger.HandleFunc("/queryAsset/{dealerID}", svc.QueryAssetHandler).Methods("GET")
	ledger.HandleFunc("/updateAsset/{dealerID}", svc.UpdateAssetHandler).Methods("PUT")
	ledger.HandleFunc("/assetExists/{dealerID}", svc.AssetExistsHandler).Methods("GET")
	ledger.HandleFunc("/assetHistory/{dealerID}", svc.AssetHistoryHandler).Methods("GET")

	return r
}
