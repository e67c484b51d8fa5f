package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSign(t *testing.T) {
	// HMAC-SHA256 test vector from RFC 4231 (test case 2)
	assert.Equal(t,
		"5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843",
		Sign("Jefe", []byte("what do ya want for nothing?")),
	)
	assert.Equal(t, Sign("secret", []byte("order_1|pay_1")), SignCheckout("secret", "order_1", "pay_1"))
}

func TestValidSignature(t *testing.T) {
	payload := []byte(`{"event":"payment.captured"}`)
	sig := Sign("whsec", payload)

	assert.True(t, validSignature("whsec", payload, sig))
	assert.False(t, validSignature("other", payload, sig))
	assert.False(t, validSignature("whsec", []byte(`{"event":"payment.failed"}`), sig))
	assert.False(t, validSignature("whsec", payload, "not-hex"))
	assert.False(t, validSignature("whsec", payload, ""))
}

func TestFormatAmount(t *testing.T) {
	tests := map[int64]string{
		0:       "0.00",
		5:       "0.05",
		100:     "1.00",
		25050:   "250.50",
		1234567: "12345.67",
		-150:    "-1.50",
	}
	for amount, want := range tests {
		assert.Equal(t, want, FormatAmount(amount), amount)
	}
}
