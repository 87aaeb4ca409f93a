package payment

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/platinumchess/backend/internal/config"
)

// Field is one ordered form pair. PayFast signs fields in the order they
// appear, so a map will not do.
type Field struct {
	Key   string
	Value string
}

// Client handles PayFast form signing and ITN verification.
type Client struct {
	merchantID  string
	merchantKey string
	passphrase  string
	processURL  string
	httpClient  *http.Client
}

// NewClient creates a PayFast client, or nil when the merchant credentials
// are not configured.
func NewClient(cfg *config.Config) *Client {
	if cfg == nil || cfg.PayFastMerchantID == "" || cfg.PayFastMerchantKey == "" {
		log.Printf("[PAYMENT] PayFast not fully configured - skipping initialization")
		return nil
	}

	processURL := cfg.PayFastProcessURL
	if processURL == "" {
		processURL = "https://sandbox.payfast.co.za/eng/process"
	}

	return &Client{
		merchantID:  cfg.PayFastMerchantID,
		merchantKey: cfg.PayFastMerchantKey,
		passphrase:  cfg.PayFastPassphrase,
		processURL:  processURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// ProcessURL returns the payment page the signed form posts to.
func (c *Client) ProcessURL() string {
	return c.processURL
}

// pfEncode urlencodes the PayFast way: spaces become '+', hex escapes are
// uppercase, and the unreserved set matches what their servers sign with.
func pfEncode(val string) string {
	var b strings.Builder
	for i := 0; i < len(val); i++ {
		ch := val[i]
		switch {
		case ch == ' ':
			b.WriteByte('+')
		case ch >= 'A' && ch <= 'Z', ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9':
			b.WriteByte(ch)
		case strings.IndexByte("-_.!~*'()", ch) >= 0:
			b.WriteByte(ch)
		default:
			b.WriteString(fmt.Sprintf("%%%02X", ch))
		}
	}
	return b.String()
}

// BuildParamString joins the fields for signing, skipping the signature
// itself and empty values.
func BuildParamString(fields []Field) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Key == "signature" {
			continue
		}
		value := strings.TrimSpace(f.Value)
		if value == "" {
			continue
		}
		parts = append(parts, f.Key+"="+pfEncode(value))
	}
	return strings.Join(parts, "&")
}

// Signature computes the MD5 signature over a param string, appending the
// passphrase when one is set.
func Signature(paramString, passphrase string) string {
	withPass := paramString
	if passphrase != "" {
		withPass = paramString + "&passphrase=" + pfEncode(strings.TrimSpace(passphrase))
	}
	sum := md5.Sum([]byte(withPass))
	return hex.EncodeToString(sum[:])
}

// DepositForm builds the signed field set for a deposit of amountZAR. The
// USD amount and user id ride along in custom_str fields so the ITN
// webhook can credit the right profile.
func (c *Client) DepositForm(userID, username string, amountUSD, amountZAR float64, baseURL string) []Field {
	mPaymentID := userID + "-" + uuid.NewString()

	description := "Account top-up"
	if username != "" {
		description = "Deposit for " + username
	}

	fields := []Field{
		{"merchant_id", c.merchantID},
		{"merchant_key", c.merchantKey},
		{"return_url", baseURL + "/payments/payfast/return"},
		{"cancel_url", baseURL + "/payments/payfast/cancel"},
		{"notify_url", baseURL + "/payments/payfast/notify"},
		{"m_payment_id", mPaymentID},
		{"amount", fmt.Sprintf("%.2f", amountZAR)},
		{"item_name", "Account Deposit"},
		{"item_description", description},
		{"custom_str1", userID},
		{"custom_str2", fmt.Sprintf("%.2f", amountUSD)},
	}

	signature := Signature(BuildParamString(fields), c.passphrase)
	return append(fields, Field{"signature", signature})
}

// ITN is a parsed Instant Transaction Notification. The original field
// order is preserved for signature verification.
type ITN struct {
	fields []Field
	values map[string]string
}

// ParseITN decodes a urlencoded ITN body. Stray backslashes are stripped
// the way PayFast's own examples do.
func ParseITN(rawBody string) *ITN {
	itn := &ITN{values: make(map[string]string)}
	for _, pair := range strings.Split(rawBody, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		key = urlDecode(key)
		value = strings.ReplaceAll(urlDecode(value), `\`, "")
		itn.fields = append(itn.fields, Field{key, value})
		itn.values[key] = value
	}
	return itn
}

func urlDecode(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// Get returns a decoded ITN value.
func (itn *ITN) Get(key string) string {
	return itn.values[key]
}

// VerifySignature checks the ITN signature against our passphrase.
func (c *Client) VerifySignature(itn *ITN) bool {
	posted := strings.ToLower(itn.Get("signature"))
	if posted == "" {
		return false
	}
	return posted == Signature(BuildParamString(itn.fields), c.passphrase)
}

// ValidateRemote asks PayFast's validate endpoint to confirm an ITN whose
// local signature check failed. Returns false on any transport problem.
func (c *Client) ValidateRemote(ctx context.Context, itn *ITN) bool {
	validateURL := "https://www.payfast.co.za/eng/query/validate"
	if strings.Contains(c.processURL, "sandbox") {
		validateURL = "https://sandbox.payfast.co.za/eng/query/validate"
	}

	body := BuildParamString(itn.fields)
	req, err := http.NewRequestWithContext(ctx, "POST", validateURL, strings.NewReader(body))
	if err != nil {
		log.Printf("[PAYMENT] Failed to create validate request: %v", err)
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[PAYMENT] ITN validate request failed: %v", err)
		return false
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[PAYMENT] Failed to read validate response: %v", err)
		return false
	}
	return strings.EqualFold(strings.TrimSpace(string(text)), "VALID")
}
