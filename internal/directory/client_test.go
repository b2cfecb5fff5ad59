package directory

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mudanzasalegre/Dripio/internal/domain"
)

func TestProjectInfo(t *testing.T) {
	projectID := uuid.New()
	companyID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects/"+projectID.String(), r.URL.Path)
		fmt.Fprintf(w, `{
			"project_id": %q,
			"company_id": %q,
			"start_date": "2026-01-01T00:00:00Z",
			"end_date": "2026-12-31T00:00:00Z",
			"is_active": true
		}`, projectID, companyID)
	}))
	defer srv.Close()

	info, err := NewClient(srv.URL).ProjectInfo(context.Background(), projectID)

	require.NoError(t, err)
	assert.Equal(t, projectID, info.ProjectID)
	assert.Equal(t, companyID, info.CompanyID)
	assert.True(t, info.IsActive)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), info.StartDate)
}

func TestProjectInfo_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).ProjectInfo(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHasGlobalRole_PassesQueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/roles/global", r.URL.Path)
		assert.Equal(t, "stream_admin", r.URL.Query().Get("role"))
		assert.Equal(t, "wallet-admin", r.URL.Query().Get("wallet"))
		fmt.Fprint(w, `{"granted": true}`)
	}))
	defer srv.Close()

	granted, err := NewClient(srv.URL).HasGlobalRole(context.Background(), domain.RoleStreamAdmin, "wallet-admin")

	require.NoError(t, err)
	assert.True(t, granted)
}

func TestIsEmployeeActive_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).IsEmployeeActive(context.Background(), uuid.New(), "wallet-employee")

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestCompanyOwner(t *testing.T) {
	companyID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/companies/"+companyID.String()+"/owner", r.URL.Path)
		fmt.Fprint(w, `{"owner": "wallet-owner"}`)
	}))
	defer srv.Close()

	owner, err := NewClient(srv.URL).CompanyOwner(context.Background(), companyID)

	require.NoError(t, err)
	assert.Equal(t, domain.Wallet("wallet-owner"), owner)
}
