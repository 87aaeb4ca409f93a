package payment

import (
	"strings"
	"testing"

	"github.com/platinumchess/backend/internal/config"
)

func testClient(passphrase string) *Client {
	return NewClient(&config.Config{
		PayFastMerchantID:  "10000100",
		PayFastMerchantKey: "46f0cd694581a",
		PayFastPassphrase:  passphrase,
		PayFastProcessURL:  "https://sandbox.payfast.co.za/eng/process",
	})
}

func TestPfEncode(t *testing.T) {
	cases := map[string]string{
		"Account Deposit": "Account+Deposit",
		"user@host.com":   "user%40host.com",
		"a&b=c":           "a%26b%3Dc",
		"plain-1.2_x":     "plain-1.2_x",
		"tilde~ok":        "tilde~ok",
		"R50,00":          "R50%2C00",
	}
	for in, want := range cases {
		if got := pfEncode(in); got != want {
			t.Errorf("pfEncode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildParamStringSkipsSignatureAndEmpties(t *testing.T) {
	fields := []Field{
		{"merchant_id", "10000100"},
		{"item_name", "Account Deposit"},
		{"custom_str1", ""},
		{"signature", "deadbeef"},
		{"amount", " 50.00 "},
	}
	got := BuildParamString(fields)
	want := "merchant_id=10000100&item_name=Account+Deposit&amount=50.00"
	if got != want {
		t.Errorf("BuildParamString = %q, want %q", got, want)
	}
}

func TestSignatureKnownVectors(t *testing.T) {
	param := "amount=50.00&item_name=Account+Deposit"
	if got := Signature(param, ""); got != "5708d783921f74e5f31e29187f2c5747" {
		t.Errorf("unsalted signature = %q", got)
	}
	if got := Signature(param, "secret"); got != "e7958fbfbb1f3b6b9656a0488205f45d" {
		t.Errorf("salted signature = %q", got)
	}
}

func TestDepositFormIsSignedAndOrdered(t *testing.T) {
	c := testClient("secret")
	fields := c.DepositForm("user-1", "magnus", 50, 925.50, "https://api.example.com")

	if fields[0].Key != "merchant_id" || fields[len(fields)-1].Key != "signature" {
		t.Fatalf("unexpected field order: first %s last %s", fields[0].Key, fields[len(fields)-1].Key)
	}

	byKey := make(map[string]string)
	for _, f := range fields {
		byKey[f.Key] = f.Value
	}
	if byKey["amount"] != "925.50" {
		t.Errorf("ZAR amount = %q", byKey["amount"])
	}
	if byKey["custom_str1"] != "user-1" || byKey["custom_str2"] != "50.00" {
		t.Errorf("custom fields wrong: %q %q", byKey["custom_str1"], byKey["custom_str2"])
	}
	if !strings.HasPrefix(byKey["m_payment_id"], "user-1-") {
		t.Errorf("m_payment_id should embed the user id: %q", byKey["m_payment_id"])
	}
	if byKey["notify_url"] != "https://api.example.com/payments/payfast/notify" {
		t.Errorf("notify_url = %q", byKey["notify_url"])
	}

	// The trailing signature must verify over the fields before it.
	want := Signature(BuildParamString(fields), "secret")
	if byKey["signature"] != want {
		t.Errorf("signature does not verify: %q vs %q", byKey["signature"], want)
	}
}

func itnBody(fields []Field) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Key+"="+pfEncode(f.Value))
	}
	return strings.Join(parts, "&")
}

func TestVerifySignatureRoundTrip(t *testing.T) {
	c := testClient("secret")

	fields := []Field{
		{"m_payment_id", "user-1-abc"},
		{"pf_payment_id", "1089250"},
		{"payment_status", "COMPLETE"},
		{"item_name", "Account Deposit"},
		{"amount_gross", "925.50"},
		{"custom_str1", "user-1"},
		{"custom_str2", "50.00"},
	}
	sig := Signature(BuildParamString(fields), "secret")
	body := itnBody(append(fields, Field{"signature", sig}))

	itn := ParseITN(body)
	if !c.VerifySignature(itn) {
		t.Fatalf("genuine ITN failed verification")
	}
	if itn.Get("custom_str2") != "50.00" || itn.Get("item_name") != "Account Deposit" {
		t.Errorf("ITN values decoded wrong: %q %q", itn.Get("custom_str2"), itn.Get("item_name"))
	}
}

func TestVerifySignatureRejectsTampering(t *testing.T) {
	c := testClient("secret")

	fields := []Field{
		{"pf_payment_id", "1089250"},
		{"payment_status", "COMPLETE"},
		{"custom_str1", "user-1"},
		{"custom_str2", "50.00"},
	}
	sig := Signature(BuildParamString(fields), "secret")

	// Inflate the credited amount after signing.
	fields[3].Value = "5000.00"
	body := itnBody(append(fields, Field{"signature", sig}))

	if c.VerifySignature(ParseITN(body)) {
		t.Fatalf("tampered ITN passed verification")
	}
}

func TestVerifySignatureRejectsMissingSignature(t *testing.T) {
	c := testClient("secret")
	itn := ParseITN("payment_status=COMPLETE&custom_str1=user-1")
	if c.VerifySignature(itn) {
		t.Fatalf("ITN without signature passed verification")
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if NewClient(&config.Config{}) != nil {
		t.Errorf("client without merchant credentials should be nil")
	}
	if NewClient(nil) != nil {
		t.Errorf("client without config should be nil")
	}
}
