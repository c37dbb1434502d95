package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/bookverse-backend/pkg/errors"
)

// Gateway redirect parameter names.
const (
	ParamResponseCode  = "vnp_ResponseCode"
	ParamTxnRef        = "vnp_TxnRef"
	ParamAmount        = "vnp_Amount"
	ParamBankCode      = "vnp_BankCode"
	ParamBankTranNo    = "vnp_BankTranNo"
	ParamPayDate       = "vnp_PayDate"
	ParamTransactionNo = "vnp_TransactionNo"
	ParamSecureHash    = "vnp_SecureHash"
	ParamSecureHashAlg = "vnp_SecureHashType"

	paramPrefix    = "vnp_"
	payDateLayout  = "20060102150405"
	minorUnitScale = -2
)

// gatewayZone is the gateway's wall clock (UTC+7).
var gatewayZone = time.FixedZone("ICT", 7*60*60)

// Callback is one gateway redirect, normalised.
type Callback struct {
	ResponseCode  string
	GatewayTxnRef string
	GatewayTxnNo  string
	Amount        decimal.Decimal
	BankCode      string
	BankRef       string
	Timestamp     time.Time
}

// ParseCallback maps redirect query parameters to a Callback. The gateway
// reports amounts in minor units (x100).
func ParseCallback(values url.Values) (Callback, error) {
	cb := Callback{
		ResponseCode:  strings.TrimSpace(values.Get(ParamResponseCode)),
		GatewayTxnRef: strings.TrimSpace(values.Get(ParamTxnRef)),
		GatewayTxnNo:  strings.TrimSpace(values.Get(ParamTransactionNo)),
		BankCode:      strings.TrimSpace(values.Get(ParamBankCode)),
		BankRef:       strings.TrimSpace(values.Get(ParamBankTranNo)),
	}
	if cb.ResponseCode == "" {
		return Callback{}, malformed("response code missing")
	}
	if cb.GatewayTxnRef == "" {
		return Callback{}, malformed("transaction reference missing")
	}

	rawAmount := strings.TrimSpace(values.Get(ParamAmount))
	minor, err := strconv.ParseInt(rawAmount, 10, 64)
	if err != nil || minor < 0 {
		return Callback{}, malformed("amount is not a non-negative integer")
	}
	cb.Amount = decimal.New(minor, minorUnitScale)

	if raw := strings.TrimSpace(values.Get(ParamPayDate)); raw != "" {
		ts, err := time.ParseInLocation(payDateLayout, raw, gatewayZone)
		if err != nil {
			return Callback{}, malformed("pay date is not yyyyMMddHHmmss")
		}
		cb.Timestamp = ts.UTC()
	}
	return cb, nil
}

// PaymentID is the internal payment the callback settles, carried in the txn ref.
func (c Callback) PaymentID() (int64, error) {
	id, err := strconv.ParseInt(c.GatewayTxnRef, 10, 64)
	if err != nil || id <= 0 {
		return 0, malformed("transaction reference is not a payment id")
	}
	return id, nil
}

// Fingerprint identifies one callback instance. Redeliveries of the same
// redirect share a fingerprint.
func (c Callback) Fingerprint() string {
	parts := []string{
		c.ResponseCode,
		c.GatewayTxnRef,
		c.GatewayTxnNo,
		c.Amount.StringFixed(2),
		c.BankCode,
		c.BankRef,
	}
	if !c.Timestamp.IsZero() {
		parts = append(parts, c.Timestamp.UTC().Format(payDateLayout))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// Verifier checks the gateway signature on redirect parameters.
type Verifier struct {
	secret string
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// Enabled reports whether a hash secret is configured.
func (v *Verifier) Enabled() bool {
	return v != nil && v.secret != ""
}

// Verify fails with MALFORMED_CALLBACK when the signature is missing or wrong.
// Without a secret every callback passes.
func (v *Verifier) Verify(values url.Values) error {
	if !v.Enabled() {
		return nil
	}
	got := strings.ToLower(strings.TrimSpace(values.Get(ParamSecureHash)))
	if got == "" {
		return malformed("signature missing")
	}
	want := Sign(v.secret, values)
	if !hmac.Equal([]byte(got), []byte(want)) {
		return malformed("signature mismatch")
	}
	return nil
}

// Sign computes the hex HMAC-SHA512 over the sorted, URL-encoded vnp_*
// parameters, excluding the hash fields and empty values.
func Sign(secret string, values url.Values) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		if !strings.HasPrefix(key, paramPrefix) || key == ParamSecureHash || key == ParamSecureHashAlg {
			continue
		}
		if values.Get(key) == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+url.QueryEscape(values.Get(key)))
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

func malformed(msg string) error {
	return pkgerrors.New(pkgerrors.CodeMalformedCallback, msg)
}
