package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBatchExpired(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	past := Batch{ExpiryDate: now.Add(-time.Hour)}
	assert.True(t, past.Expired(now))

	future := Batch{ExpiryDate: now.Add(24 * time.Hour)}
	assert.False(t, future.Expired(now))

	// A zero expiry means "no expiry tracked", never expired.
	var open Batch
	assert.False(t, open.Expired(now))
}
