package tests

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/event"
	"github.com/innocell/innocell/core/payment"
)

type orderRequest struct {
	EventSlug string `json:"event_slug"`
}

func createCheckout(t *testing.T, token, slug string) payment.Checkout {
	t.Helper()
	rec := do(t, http.MethodPost, "/v1/payments/orders", token, orderRequest{EventSlug: slug})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var checkout payment.Checkout
	decode(t, rec, &checkout)
	return checkout
}

func participationStatus(t *testing.T, evt event.Event, userID string) event.ParticipationStatus {
	t.Helper()
	p, err := evtRepo.GetParticipation(context.Background(), evt.ID, userID)
	require.NoError(t, err)
	return p.Status
}

func Test_paymentApi_createOrder(t *testing.T) {
	resetDB()

	student := createStudent(t, "hero")
	token := getToken(t, student)
	paid := createEvent(t, event.Event{Slug: "workshop", IsPublished: true, Fee: 49900})
	free := createEvent(t, event.Event{Slug: "talk", IsPublished: true})
	createParticipation(t, paid, student, event.StatusPendingPayment)
	createParticipation(t, free, student, event.StatusRegistered)
	nothingToPay := marshalObj(t, httpErr{Error: "no pending payment for this event"})

	runHTTPTests(t, []httpTest{
		{name: "Auth required", method: http.MethodPost, path: "/v1/payments/orders", body: marshalObj(t, orderRequest{EventSlug: "workshop"}), wantCode: http.StatusUnauthorized},
		{
			name: "invalid slug", method: http.MethodPost, path: "/v1/payments/orders", token: token,
			body: marshalObj(t, orderRequest{EventSlug: "not a slug!"}), wantCode: http.StatusBadRequest,
		},
		{
			name: "free event", method: http.MethodPost, path: "/v1/payments/orders", token: token,
			body: marshalObj(t, orderRequest{EventSlug: "talk"}), wantCode: http.StatusBadRequest, wantData: nothingToPay,
		},
		{
			name: "not registered", method: http.MethodPost, path: "/v1/payments/orders", token: getToken(t, createStudent(t, "other")),
			body: marshalObj(t, orderRequest{EventSlug: "workshop"}), wantCode: http.StatusBadRequest, wantData: nothingToPay,
		},
	})

	t.Run("order created", func(t *testing.T) {
		checkout := createCheckout(t, token, "workshop")
		assert.Equal(t, testKeyID, checkout.KeyID)
		assert.Equal(t, int64(49900), checkout.Amount)
		assert.Equal(t, "INR", checkout.Currency)
		assert.Equal(t, "dummy", checkout.Provider)
		assert.Equal(t, payment.StatusCreated, checkout.Status)
		assert.True(t, strings.HasPrefix(checkout.OrderID, "order_"))
		assert.Equal(t, student.ID, checkout.UserID)
		assert.Equal(t, paid.ID, checkout.EventID)

		again := createCheckout(t, token, "workshop")
		assert.Equal(t, checkout.ID, again.ID, "open orders are reused")
	})
}

func Test_paymentApi_verify(t *testing.T) {
	resetDB()

	student := createStudent(t, "hero")
	token := getToken(t, student)
	evt := createEvent(t, event.Event{Slug: "workshop", Title: "Workshop", IsPublished: true, Fee: 49900})
	createParticipation(t, evt, student, event.StatusPendingPayment)
	checkout := createCheckout(t, token, "workshop")
	mailSvc.Reset()

	valid := payment.VerifyRequest{
		OrderID:   checkout.OrderID,
		PaymentID: "pay_123",
		Signature: payment.SignCheckout(testKeySecret, checkout.OrderID, "pay_123"),
	}

	runHTTPTests(t, []httpTest{
		{
			name: "required fields", method: http.MethodPost, path: "/v1/payments/verify", token: token,
			body:     marshalObj(t, payment.VerifyRequest{}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{
				"razorpay_order_id":   "this field is required",
				"razorpay_payment_id": "this field is required",
				"razorpay_signature":  "this field is required",
			}),
		},
		{
			name: "bad signature", method: http.MethodPost, path: "/v1/payments/verify", token: token,
			body: marshalObj(t, payment.VerifyRequest{
				OrderID: checkout.OrderID, PaymentID: "pay_123",
				Signature: payment.SignCheckout("wrong secret", checkout.OrderID, "pay_123"),
			}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "invalid payment signature"}),
		},
		{
			name: "someone else's order", method: http.MethodPost, path: "/v1/payments/verify", token: getToken(t, createStudent(t, "other")),
			body: marshalObj(t, valid), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "this payment belongs to another user"}),
		},
		{
			name: "unknown order", method: http.MethodPost, path: "/v1/payments/verify", token: token,
			body: marshalObj(t, payment.VerifyRequest{
				OrderID: "order_nope", PaymentID: "pay_123",
				Signature: payment.SignCheckout(testKeySecret, "order_nope", "pay_123"),
			}),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "payment not found"}),
		},
	})
	assert.Equal(t, event.StatusPendingPayment, participationStatus(t, evt, student.ID))

	t.Run("verified", func(t *testing.T) {
		rec := do(t, http.MethodPost, "/v1/payments/verify", token, valid)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var pmt payment.Payment
		decode(t, rec, &pmt)
		assert.Equal(t, payment.StatusPaid, pmt.Status)
		assert.Equal(t, "pay_123", pmt.ProviderPaymentID)
		assert.Equal(t, event.StatusRegistered, participationStatus(t, evt, student.ID))

		sent := mailSvc.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "Payment receipt: Workshop", sent[0].Subject)
		data, ok := sent[0].TemplateData.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "499.00", data["Amount"])
	})

	t.Run("verifying twice is harmless", func(t *testing.T) {
		mailSvc.Reset()
		rec := do(t, http.MethodPost, "/v1/payments/verify", token, valid)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Empty(t, mailSvc.Sent())
	})
}

func webhookBody(evt, orderID, paymentID string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":%q,"payload":{"payment":{"entity":{"id":%q,"order_id":%q,"status":"captured"}}}}`,
		evt, paymentID, orderID,
	))
}

func postWebhook(t *testing.T, body []byte, signature string) (int, string) {
	t.Helper()
	req, rec := newRequest(http.MethodPost, "/v1/payments/webhook", body)
	req.Header.Set("X-Razorpay-Signature", signature)
	app.ServeHTTP(rec, req)
	return rec.Code, rec.Body.String()
}

func Test_paymentApi_webhook(t *testing.T) {
	resetDB()

	student := createStudent(t, "hero")
	token := getToken(t, student)
	evt := createEvent(t, event.Event{Slug: "workshop", IsPublished: true, Fee: 10000})
	other := createEvent(t, event.Event{Slug: "bootcamp", IsPublished: true, Fee: 20000})
	createParticipation(t, evt, student, event.StatusPendingPayment)
	createParticipation(t, other, student, event.StatusPendingPayment)
	captured := createCheckout(t, token, "workshop")
	failed := createCheckout(t, token, "bootcamp")

	t.Run("bad signature", func(t *testing.T) {
		body := webhookBody("payment.captured", captured.OrderID, "pay_1")
		code, resp := postWebhook(t, body, payment.Sign("nope", body))
		assert.Equal(t, http.StatusBadRequest, code, resp)
		assert.Equal(t, event.StatusPendingPayment, participationStatus(t, evt, student.ID))
	})

	t.Run("captured", func(t *testing.T) {
		body := webhookBody("payment.captured", captured.OrderID, "pay_1")
		code, resp := postWebhook(t, body, payment.Sign(testWebhookSecret, body))
		require.Equal(t, http.StatusOK, code, resp)
		assert.Equal(t, event.StatusRegistered, participationStatus(t, evt, student.ID))

		pmt, err := pmtRepo.GetPayment(context.Background(), payment.GetFilter{OrderID: captured.OrderID})
		require.NoError(t, err)
		assert.Equal(t, payment.StatusPaid, pmt.Status)
		assert.Equal(t, "pay_1", pmt.ProviderPaymentID)
	})

	t.Run("failed", func(t *testing.T) {
		body := webhookBody("payment.failed", failed.OrderID, "pay_2")
		code, resp := postWebhook(t, body, payment.Sign(testWebhookSecret, body))
		require.Equal(t, http.StatusOK, code, resp)
		assert.Equal(t, event.StatusPendingPayment, participationStatus(t, other, student.ID))

		pmt, err := pmtRepo.GetPayment(context.Background(), payment.GetFilter{OrderID: failed.OrderID})
		require.NoError(t, err)
		assert.Equal(t, payment.StatusFailed, pmt.Status)
	})

	t.Run("failure after capture is ignored", func(t *testing.T) {
		body := webhookBody("payment.failed", captured.OrderID, "pay_1")
		code, resp := postWebhook(t, body, payment.Sign(testWebhookSecret, body))
		require.Equal(t, http.StatusOK, code, resp)
		pmt, err := pmtRepo.GetPayment(context.Background(), payment.GetFilter{OrderID: captured.OrderID})
		require.NoError(t, err)
		assert.Equal(t, payment.StatusPaid, pmt.Status)
	})

	t.Run("unknown orders and events are acknowledged", func(t *testing.T) {
		for _, body := range [][]byte{
			webhookBody("payment.captured", "order_unknown", "pay_3"),
			webhookBody("order.paid", captured.OrderID, "pay_1"),
		} {
			code, resp := postWebhook(t, body, payment.Sign(testWebhookSecret, body))
			assert.Equal(t, http.StatusOK, code, resp)
		}
	})

	t.Run("payments are private", func(t *testing.T) {
		rec := do(t, http.MethodGet, "/v1/payments", getToken(t, createStudent(t, "other")), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, "[]", rec.Body.String())

		rec = do(t, http.MethodGet, "/v1/payments?status=paid", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var pmts []payment.Payment
		decode(t, rec, &pmts)
		require.Len(t, pmts, 1)
		assert.Equal(t, captured.ID, pmts[0].ID)
	})
}

func Test_paymentApi_cancelledWhilePaying(t *testing.T) {
	resetDB()

	student := createStudent(t, "hero")
	token := getToken(t, student)
	evt := createEvent(t, event.Event{Slug: "workshop", Title: "Workshop", IsPublished: true, Fee: 49900})

	rec := do(t, http.MethodPost, "/v1/events/workshop/register", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	checkout := createCheckout(t, token, "workshop")

	rec = do(t, http.MethodPost, "/v1/events/workshop/cancel", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, event.StatusCancelled, participationStatus(t, evt, student.ID))

	valid := payment.VerifyRequest{
		OrderID:   checkout.OrderID,
		PaymentID: "pay_123",
		Signature: payment.SignCheckout(testKeySecret, checkout.OrderID, "pay_123"),
	}

	t.Run("late payment revives the seat", func(t *testing.T) {
		rec := do(t, http.MethodPost, "/v1/payments/verify", token, valid)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var pmt payment.Payment
		decode(t, rec, &pmt)
		assert.Equal(t, payment.StatusPaid, pmt.Status)
		assert.Equal(t, event.StatusRegistered, participationStatus(t, evt, student.ID))

		rec = do(t, http.MethodPost, "/v1/payments/verify", token, valid)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, event.StatusRegistered, participationStatus(t, evt, student.ID))
	})

	runHTTPTests(t, []httpTest{
		{
			name: "paid registration cannot be cancelled", method: http.MethodPost, path: "/v1/events/workshop/cancel", token: token,
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "paid registrations cannot be cancelled, please contact the organisers"}),
		},
		{
			name: "no second order", method: http.MethodPost, path: "/v1/payments/orders", token: token,
			body: marshalObj(t, orderRequest{EventSlug: "workshop"}), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "this event is already paid for"}),
		},
	})
	assert.Equal(t, event.StatusRegistered, participationStatus(t, evt, student.ID))

	t.Run("paid users re-register without paying again", func(t *testing.T) {
		// cancelled out of band
		p, err := evtRepo.GetParticipation(context.Background(), evt.ID, student.ID)
		require.NoError(t, err)
		p.Status = event.StatusCancelled
		_, err = evtRepo.UpdateParticipation(context.Background(), p)
		require.NoError(t, err)

		rec := do(t, http.MethodPost, "/v1/events/workshop/register", token, nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var part event.Participation
		decode(t, rec, &part)
		assert.Equal(t, event.StatusRegistered, part.Status)

		pmts, err := pmtRepo.QueryPayments(context.Background(), &payment.QueryFilter{UserID: student.ID}, core.Pagination{})
		require.NoError(t, err)
		assert.Len(t, pmts, 1)
	})
}
