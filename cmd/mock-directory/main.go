// mock-directory serves canned directory, role-authority, and
// custodian responses for local development: every project is active
// and owned by the company owner wallet, every wallet is an employee,
// every transfer succeeds.
package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"
)

const ownerWallet = "wallet-owner"

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /projects/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"project_id": r.PathValue("id"),
			"company_id": "11111111-1111-1111-1111-111111111111",
			"start_date": time.Now().UTC().AddDate(0, -1, 0).Format(time.RFC3339),
			"end_date":   time.Now().UTC().AddDate(1, 0, 0).Format(time.RFC3339),
			"is_active":  true,
		})
	})

	mux.HandleFunc("GET /companies/{id}/owner", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"owner": ownerWallet})
	})

	mux.HandleFunc("GET /projects/{id}/employees/active", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]bool{"active": r.URL.Query().Get("wallet") != ""})
	})

	mux.HandleFunc("GET /roles/global", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]bool{"granted": r.URL.Query().Get("wallet") == ownerWallet})
	})

	mux.HandleFunc("GET /companies/{id}/local-admins", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]bool{"granted": false})
	})

	mux.HandleFunc("POST /transfers/pull", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "completed"})
	})
	mux.HandleFunc("POST /transfers/push", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "completed"})
	})

	addr := ":" + port
	slog.Info("mock directory started", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock directory stopped", "error", err)
		os.Exit(1)
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
