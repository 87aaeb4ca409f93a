package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/platinumchess/backend/internal/config"
	"github.com/platinumchess/backend/internal/payment"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:        "development",
		FrontendURL:        "https://play.example.com",
		PublicBaseURL:      "https://api.example.com",
		MinDepositUSD:      5,
		PayFastMerchantID:  "10000100",
		PayFastMerchantKey: "46f0cd694581a",
		PayFastPassphrase:  "secret",
		PayFastProcessURL:  "https://sandbox.payfast.co.za/eng/process",
	}
}

func depositRouter(t *testing.T, cfg *config.Config, rateBody string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fxSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rateBody))
	}))
	t.Cleanup(fxSrv.Close)

	fx := payment.NewFXClient(nil, fxSrv.URL)
	pf := payment.NewClient(cfg)

	router := gin.New()
	router.POST("/payments/deposit/form", DepositForm(pf, fx, cfg))
	router.GET("/fx/usd-zar", GetUSDZARRate(fx))
	router.GET("/payments/payfast/return", PayFastReturn(cfg))
	router.GET("/payments/payfast/cancel", PayFastCancel(cfg))
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestDepositFormBuildsSignedFields(t *testing.T) {
	router := depositRouter(t, testConfig(), `{"rates":{"ZAR":18.5}}`)

	w := postJSON(router, "/payments/deposit/form", `{"amountUsd":50,"userId":"user-1","username":"magnus"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		ProcessURL string            `json:"processUrl"`
		Fields     map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if resp.ProcessURL != "https://sandbox.payfast.co.za/eng/process" {
		t.Errorf("processUrl = %q", resp.ProcessURL)
	}
	if resp.Fields["amount"] != "925.00" {
		t.Errorf("ZAR amount = %q, want 925.00", resp.Fields["amount"])
	}
	if resp.Fields["custom_str2"] != "50.00" {
		t.Errorf("USD amount = %q", resp.Fields["custom_str2"])
	}
	if resp.Fields["signature"] == "" {
		t.Errorf("form is unsigned")
	}
	if resp.Fields["notify_url"] != "https://api.example.com/payments/payfast/notify" {
		t.Errorf("notify_url = %q", resp.Fields["notify_url"])
	}
}

func TestDepositFormValidation(t *testing.T) {
	router := depositRouter(t, testConfig(), `{"rates":{"ZAR":18.5}}`)

	cases := map[string]string{
		"missing user":  `{"amountUsd":50}`,
		"zero amount":   `{"amountUsd":0,"userId":"user-1"}`,
		"below minimum": `{"amountUsd":2,"userId":"user-1"}`,
		"not json":      `nope`,
	}
	for name, body := range cases {
		if w := postJSON(router, "/payments/deposit/form", body); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, w.Code)
		}
	}
}

func TestDepositFormWithoutPayFastConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	router := gin.New()
	router.POST("/payments/deposit/form", DepositForm(nil, payment.NewFXClient(nil, ""), cfg))

	if w := postJSON(router, "/payments/deposit/form", `{"amountUsd":50,"userId":"u"}`); w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestFXEndpoint(t *testing.T) {
	router := depositRouter(t, testConfig(), `{"rates":{"ZAR":17.75}}`)

	req := httptest.NewRequest("GET", "/fx/usd-zar", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Base  string  `json:"base"`
		Quote string  `json:"quote"`
		Rate  float64 `json:"rate"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Base != "USD" || resp.Quote != "ZAR" || resp.Rate != 17.75 {
		t.Errorf("unexpected payload %+v", resp)
	}
}

func TestPayFastRedirects(t *testing.T) {
	router := depositRouter(t, testConfig(), `{}`)

	for path, target := range map[string]string{
		"/payments/payfast/return": "https://play.example.com/deposit/success",
		"/payments/payfast/cancel": "https://play.example.com/deposit/cancel",
	} {
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusFound {
			t.Errorf("%s: status = %d, want 302", path, w.Code)
		}
		if loc := w.Header().Get("Location"); loc != target {
			t.Errorf("%s: redirect to %q, want %q", path, loc, target)
		}
	}
}
