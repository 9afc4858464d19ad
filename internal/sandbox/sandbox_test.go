package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/M2labo/mm-lp-page/internal/bg"
	d "github.com/M2labo/mm-lp-page/internal/domain"
	"github.com/M2labo/mm-lp-page/internal/widget"
	"github.com/M2labo/mm-lp-page/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalcStatus(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, widget.TokenStatusOK},
		{94, widget.TokenStatusOK},
		{95, "FAILED"},
		{96, "INVALID"},
		{97, "ABORTED"},
		{98, "UNKNOWN"},
		{99, "ERROR"},
		{100, "FAILED"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, calcStatus(tt.in), "calcStatus(%d)", tt.in)
	}
}

func TestCalcDecline(t *testing.T) {
	assert.Empty(t, calcDecline(10))
	assert.Equal(t, "CARD_DECLINED", calcDecline(95))
	assert.Equal(t, "GENERIC_DECLINE", calcDecline(99))
	assert.Equal(t, "unknown reason", calcDecline(100))
}

func TestSDK_WithController(t *testing.T) {
	sdk := NewSDK(20*time.Millisecond, FixedStatus(widget.TokenStatusOK))
	_, ok := sdk.Probe()()
	assert.False(t, ok, "sdk must not be available before its load delay")

	container := widget.NewMemoryContainer("card-container")
	c := widget.NewController(widget.Config{
		AppID:        "sandbox-app",
		LocationID:   "L1",
		PollInterval: 5 * time.Millisecond,
		SDKTimeout:   time.Second,
	}, sdk.Probe(), bg.Async{}, widget.Callbacks{}, logger.Nop())

	c.Begin(container)
	<-c.Done()
	require.Equal(t, widget.StateAttached, c.State())
	assert.Equal(t, []string{"sandbox-card:L1"}, container.Children())
	assert.Equal(t, 1, sdk.LiveCards())

	token, err := c.Tokenize(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "cnon:"))

	verf, err := c.VerifyBuyer(context.Background(), token, widget.VerificationDetails{Amount: "1000", Intent: "CHARGE"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(verf, "verf:"))

	c.Teardown()
	assert.True(t, container.Empty())
	assert.Zero(t, sdk.LiveCards())
}

func TestSDK_FailedStatus(t *testing.T) {
	sdk := NewSDK(0, FixedStatus("FAILED"))
	p, err := sdk.Payments("app", "L1")
	require.NoError(t, err)
	card, err := p.Card(context.Background())
	require.NoError(t, err)
	require.NoError(t, card.Attach(context.Background(), widget.NewMemoryContainer("c")))

	res, err := card.Tokenize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "FAILED", res.Status)
	assert.Empty(t, res.Token)
}

func TestSDK_MissingCredentials(t *testing.T) {
	_, err := NewSDK(0, nil).Payments("", "L1")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func postCharge(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/square/payment", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestChargeHandler(t *testing.T) {
	h := NewChargeHandler(ApproveAll{}, "JPY", logger.Nop())

	t.Run("approved", func(t *testing.T) {
		rec := postCharge(t, h, `{"sourceId":"cnon:1","amount":1340000,"verificationToken":"verf:1"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Payment payment `json:"payment"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "COMPLETED", body.Payment.Status)
		assert.Equal(t, int64(1340000), body.Payment.AmountMoney.Amount)
		assert.Equal(t, "JPY", body.Payment.AmountMoney.Currency)
		assert.True(t, body.Payment.Verified)
	})

	t.Run("declined nonce", func(t *testing.T) {
		rec := postCharge(t, h, `{"sourceId":"`+DeclinedNonce+`","amount":1000,"verificationToken":null}`)
		assert.Equal(t, http.StatusPaymentRequired, rec.Code)
		assert.JSONEq(t, `{"message":"Payment failed: CARD_DECLINED"}`, rec.Body.String())
	})

	t.Run("bad request", func(t *testing.T) {
		rec := postCharge(t, h, `{"sourceId":"","amount":0}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		rec = postCharge(t, h, `not json`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

type declineAll struct{}

func (declineAll) Decide(d.ChargeRequest) string { return "INSUFFICIENT_FUNDS" }

func TestChargeHandler_Decider(t *testing.T) {
	rec := postCharge(t, NewChargeHandler(declineAll{}, "JPY", logger.Nop()), `{"sourceId":"cnon:1","amount":1000}`)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Contains(t, rec.Body.String(), "INSUFFICIENT_FUNDS")
}
