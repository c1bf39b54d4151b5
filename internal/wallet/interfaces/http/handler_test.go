package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/investplan/internal/wallet/domain"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewWalletHandler(nil)

	cases := []struct {
		err    error
		status int
	}{
		{domain.ErrWalletNotFound, http.StatusNotFound},
		{domain.ErrWithdrawRequestNotFound, http.StatusNotFound},
		{domain.ErrInvalidAmount, http.StatusBadRequest},
		{domain.ErrBelowMinWithdraw, http.StatusBadRequest},
		{domain.ErrInsufficientBalance, http.StatusBadRequest},
		{domain.ErrPayoutAccountMissing, http.StatusBadRequest},
		// 重复审核按原语义返回 400，而非 409
		{domain.ErrAlreadyProcessed, http.StatusBadRequest},
		{domain.ErrWalletConflict, http.StatusConflict},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

		h.respondError(c, tc.err)
		if w.Code != tc.status {
			t.Errorf("%v: expected status %d, got %d", tc.err, tc.status, w.Code)
		}
	}
}
