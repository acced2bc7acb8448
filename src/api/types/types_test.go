package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alex@example.com", NormalizeEmail(" Alex@Example.com "))
	assert.Equal(t, "alex@example.com", NormalizeEmail("alex@example.com"))
	assert.Equal(t, "", NormalizeEmail("   "))
}

func TestSignatureRowOrder(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	sig := Signature{Timestamp: ts, Name: "Alex Lee", Email: "alex@example.com", District: "IL-13", Rep: "Jane Doe"}
	assert.Equal(t, []string{"2026-01-02T03:04:05Z", "Alex Lee", "alex@example.com", "IL-13", "Jane Doe"}, sig.Row())
}
