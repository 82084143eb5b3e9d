package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaystackService_Currency(t *testing.T) {
	defaulted := NewPaystackService(PaystackConfig{SecretKey: "sk_test"}, testLogger())
	assert.Equal(t, "ZAR", defaulted.Currency())

	configured := NewPaystackService(PaystackConfig{SecretKey: "sk_test", Currency: "USD"}, testLogger())
	assert.Equal(t, "USD", configured.Currency())
}
