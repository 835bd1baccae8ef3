package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cotador/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name           string
		version        string
		expectedStatus int
		checkResponse  func(t *testing.T, resp models.HealthResponse)
	}{
		{
			name:           "returns healthy status",
			version:        "1.0.0",
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, resp models.HealthResponse) {
				assert.Equal(t, "healthy", resp.Status)
				assert.Equal(t, "1.0.0", resp.Version)
				assert.WithinDuration(t, time.Now().UTC(), resp.Timestamp, 5*time.Second)
			},
		},
		{
			name:           "returns healthy with custom version",
			version:        "2.5.3",
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, resp models.HealthResponse) {
				assert.Equal(t, "healthy", resp.Status)
				assert.Equal(t, "2.5.3", resp.Version)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			// Execute
			handler := HealthHandler(tt.version)
			err := handler(c)

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, rec.Code)

			var response models.HealthResponse
			err = json.Unmarshal(rec.Body.Bytes(), &response)
			require.NoError(t, err)

			tt.checkResponse(t, response)
		})
	}
}

func TestDBHealthHandler(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(mock sqlmock.Sqlmock)
		nilDB          bool
		expectedStatus int
		checkResponse  func(t *testing.T, resp models.DBHealthResponse)
	}{
		{
			name: "healthy database connection",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectPing()
				mock.ExpectQuery("SELECT 1").
					WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
			},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, resp models.DBHealthResponse) {
				assert.Equal(t, "healthy", resp.Status)
				assert.True(t, resp.Connected)
				assert.Empty(t, resp.Error)
			},
		},
		{
			name:           "nil database connection",
			nilDB:          true,
			expectedStatus: http.StatusServiceUnavailable,
			checkResponse: func(t *testing.T, resp models.DBHealthResponse) {
				assert.Equal(t, "unhealthy", resp.Status)
				assert.False(t, resp.Connected)
				assert.Equal(t, "Database connection not initialized", resp.Error)
			},
		},
		{
			name: "database query failure",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectPing()
				mock.ExpectQuery("SELECT 1").WillReturnError(assert.AnError)
			},
			expectedStatus: http.StatusServiceUnavailable,
			checkResponse: func(t *testing.T, resp models.DBHealthResponse) {
				assert.Equal(t, "unhealthy", resp.Status)
				assert.False(t, resp.Connected)
				assert.Contains(t, resp.Error, "Database query failed")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/healthz/db", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			var testDB *sqlx.DB
			if !tt.nilDB {
				mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
				require.NoError(t, err)
				defer func() { _ = mockDB.Close() }()

				testDB = sqlx.NewDb(mockDB, "sqlmock")
				tt.setupMock(mock)
			}

			// Execute
			handler := DBHealthHandler(testDB)
			err := handler(c)

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, rec.Code)

			var response models.DBHealthResponse
			err = json.Unmarshal(rec.Body.Bytes(), &response)
			require.NoError(t, err)

			tt.checkResponse(t, response)
		})
	}
}

func TestRootHandler(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := RootHandler("1.2.3")(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "Cotador API", response["service"])
	assert.Equal(t, "1.2.3", response["version"])
}
