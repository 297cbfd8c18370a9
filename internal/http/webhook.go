package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/paymentops/payment-processor/internal/metrics"
	"github.com/paymentops/payment-processor/internal/model"
	"github.com/paymentops/payment-processor/internal/repository"
	"github.com/paymentops/payment-processor/internal/service/intake"
)

type webhookReq struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Method   string `json:"method"`
	Status   string `json:"status"`
	EventAt  string `json:"eventAt"`
}

func paymentWebhookHandler(intakeSvc *intake.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req webhookReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		ev, err := model.NewPaymentEvent(req.ID, req.Amount, req.Currency, req.Method, req.Status, req.EventAt)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}

		id, err := intakeSvc.Accept(c.Request().Context(), ev)
		if err != nil {
			if errors.Is(err, repository.ErrDuplicateEvent) {
				return c.JSON(http.StatusOK, map[string]string{
					"status": "duplicate",
					"note":   "event already accepted",
				})
			}

			log.Errorf("accept failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		metrics.EventsTotal.WithLabelValues("received").Inc()

		return c.JSON(http.StatusCreated, map[string]any{
			"status":   "received",
			"id":       id,
			"event_id": ev.ID,
		})
	}
}
