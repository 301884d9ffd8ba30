package payment

import (
	"encoding/json"
	"net/http"
	"testing"

	"travelbook/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestValidateCreate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{"valid", `{"bookingId":"b1"}`, "b1", false},
		{"extra fields ignored", `{"bookingId":"b1","amount":500,"note":"x"}`, "b1", false},
		{"empty object", `{}`, "", true},
		{"empty string", `{"bookingId":""}`, "", true},
		{"number", `{"bookingId":42}`, "", true},
		{"null", `{"bookingId":null}`, "", true},
		{"array", `{"bookingId":["b1"]}`, "", true},
		{"wrong key", `{"paymentIntentId":"pi_1"}`, "", true},
		{"not json", `bookingId=b1`, "", true},
		{"json array", `[{"bookingId":"b1"}]`, "", true},
		{"empty body", ``, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ValidateCreate([]byte(tt.body))
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, CreateIntentRequest{BookingID: tt.want}, req)
				return
			}
			require.Error(t, err)
			assert.Equal(t, MsgBookingIDRequired, apperr.MessageOf(err))
			assert.True(t, apperr.Is(err, apperr.KindValidation))
			assert.Equal(t, http.StatusBadRequest, apperr.StatusOf(err))
		})
	}
}

func TestValidateConfirm(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{"valid", `{"paymentIntentId":"pi_1"}`, "pi_1", false},
		{"extra fields ignored", `{"paymentIntentId":"pi_1","bookingId":"b1"}`, "pi_1", false},
		{"empty object", `{}`, "", true},
		{"empty string", `{"paymentIntentId":""}`, "", true},
		{"bool", `{"paymentIntentId":true}`, "", true},
		{"object", `{"paymentIntentId":{"id":"pi_1"}}`, "", true},
		{"wrong key", `{"bookingId":"b1"}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ValidateConfirm([]byte(tt.body))
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, ConfirmIntentRequest{PaymentIntentID: tt.want}, req)
				return
			}
			require.Error(t, err)
			assert.Equal(t, MsgPaymentIntentIDRequired, apperr.MessageOf(err))
			assert.Equal(t, http.StatusBadRequest, apperr.StatusOf(err))
		})
	}
}

func TestValidateAcceptsAnyNonEmptyString(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		id := rapid.StringMatching(`[A-Za-z0-9_ -]{1,64}`).Draw(rt, "id")
		extra := rapid.MapOf(rapid.StringMatching(`x[a-z]{0,6}`), rapid.Int()).Draw(rt, "extra")

		create := map[string]any{"bookingId": id}
		confirm := map[string]any{"paymentIntentId": id}
		for k, v := range extra {
			create[k] = v
			confirm[k] = v
		}
		createBody, _ := json.Marshal(create)
		confirmBody, _ := json.Marshal(confirm)

		c, err := ValidateCreate(createBody)
		if err != nil || c.BookingID != id {
			rt.Fatalf("create rejected %q: %v", id, err)
		}
		p, err := ValidateConfirm(confirmBody)
		if err != nil || p.PaymentIntentID != id {
			rt.Fatalf("confirm rejected %q: %v", id, err)
		}
	})
}
