package ginserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"rentwheels/internal/domain/availability"
	domainbooking "rentwheels/internal/domain/booking"
)

func TestWriteErrorStatuses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name   string
		err    error
		status int
		reason availability.Reason
	}{
		{
			name:   "interval lost at commit",
			err:    fmt.Errorf("commit: %w", domainbooking.ErrIntervalTaken),
			status: http.StatusConflict,
			reason: availability.ReasonBooked,
		},
		{
			name:   "checker conflict",
			err:    &availability.ConflictError{Reason: availability.ReasonMaintenance},
			status: http.StatusConflict,
			reason: availability.ReasonMaintenance,
		},
		{name: "missing booking", err: domainbooking.ErrNotFound, status: http.StatusNotFound},
		{name: "unknown", err: errors.New("disk on fire"), status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodPost, "/api/bookings", nil)

			writeError(c, nil, tt.err)

			require.Equal(t, tt.status, rec.Code)
			var body struct {
				Success bool           `json:"success"`
				Data    conflictDetail `json:"data"`
				Errors  []string       `json:"errors"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.False(t, body.Success)
			if tt.reason != "" {
				require.Equal(t, tt.reason, body.Data.Reason)
				require.Equal(t, []string{string(tt.reason)}, body.Errors)
			}
		})
	}
}
