package handlers

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/platinumchess/backend/internal/accounts"
	"github.com/platinumchess/backend/internal/config"
	"github.com/platinumchess/backend/internal/payment"
)

// DepositForm builds a signed PayFast payment form for a USD deposit. The
// amount is converted to ZAR at the current rate; the USD figure travels
// in custom_str2 so the webhook credits what the player actually asked for.
func DepositForm(pf *payment.Client, fx *payment.FXClient, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if pf == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "PayFast not configured"})
			return
		}

		var req struct {
			AmountUSD float64 `json:"amountUsd"`
			UserID    string  `json:"userId"`
			Username  string  `json:"username"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		userID := strings.TrimSpace(req.UserID)
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing userId"})
			return
		}
		if req.AmountUSD <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
			return
		}
		if req.AmountUSD < cfg.MinDepositUSD {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Minimum deposit is %.0f USD", cfg.MinDepositUSD)})
			return
		}

		amountZAR := fx.USDToZAR(c.Request.Context(), req.AmountUSD)

		baseURL := cfg.PublicBaseURL
		if baseURL == "" {
			scheme := "http"
			if c.Request.TLS != nil {
				scheme = "https"
			}
			baseURL = scheme + "://" + c.Request.Host
		}

		fields := pf.DepositForm(userID, strings.TrimSpace(req.Username), req.AmountUSD, amountZAR, baseURL)

		formFields := make(map[string]string, len(fields))
		for _, f := range fields {
			formFields[f.Key] = f.Value
		}
		c.JSON(http.StatusOK, gin.H{
			"processUrl": pf.ProcessURL(),
			"fields":     formFields,
		})
	}
}

// PayFastNotify handles the ITN webhook. PayFast expects a 200 no matter
// what, so the response is committed before any processing; every reject
// path just logs and returns.
func PayFastNotify(db *sqlx.DB, store *accounts.SQLStore, pf *payment.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Status(http.StatusOK)
		if pf == nil {
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			log.Printf("[PAYMENT] Failed to read ITN body: %v", err)
			return
		}

		itn := payment.ParseITN(string(body))
		verified := pf.VerifySignature(itn)
		if !verified {
			// Signature mismatch can mean a field order quirk rather than
			// forgery; ask PayFast directly before giving up.
			verified = pf.ValidateRemote(context.Background(), itn)
		}
		if !verified {
			log.Printf("[PAYMENT] Rejected ITN with invalid signature (pf_payment_id=%s)", itn.Get("pf_payment_id"))
			return
		}

		if itn.Get("payment_status") != "COMPLETE" {
			log.Printf("[PAYMENT] Ignoring ITN with status %q", itn.Get("payment_status"))
			return
		}

		userID := strings.TrimSpace(itn.Get("custom_str1"))
		amountUSD, _ := strconv.ParseFloat(strings.TrimSpace(itn.Get("custom_str2")), 64)
		pfPaymentID := strings.TrimSpace(itn.Get("pf_payment_id"))
		if userID == "" || amountUSD <= 0 {
			log.Printf("[PAYMENT] ITN missing user or amount (pf_payment_id=%s)", pfPaymentID)
			return
		}

		ctx := context.Background()

		// The same ITN can be delivered more than once; the ledger row is
		// the idempotency record.
		if pfPaymentID != "" {
			var seen bool
			err := db.GetContext(ctx, &seen,
				`SELECT EXISTS (SELECT 1 FROM transactions WHERE pf_payment_id=$1)`, pfPaymentID)
			if err == nil && seen {
				log.Printf("[PAYMENT] Duplicate ITN %s ignored", pfPaymentID)
				return
			}
		}

		if err := store.CreditDeposit(ctx, userID, amountUSD, pfPaymentID); err != nil {
			log.Printf("[PAYMENT] Failed to credit deposit for %s: %v", userID, err)
			return
		}
		log.Printf("[PAYMENT] Credited %.2f USD to %s (pf_payment_id=%s)", amountUSD, userID, pfPaymentID)
	}
}

// PayFastReturn redirects the buyer back to the frontend after payment.
func PayFastReturn(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Redirect(http.StatusFound, cfg.FrontendURL+"/deposit/success")
	}
}

// PayFastCancel redirects the buyer back after an abandoned payment.
func PayFastCancel(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Redirect(http.StatusFound, cfg.FrontendURL+"/deposit/cancel")
	}
}

// GetUSDZARRate exposes the deposit conversion rate to the frontend.
func GetUSDZARRate(fx *payment.FXClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		rate := fx.USDZARRate(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"base":  "USD",
			"quote": "ZAR",
			"rate":  rate,
		})
	}
}
