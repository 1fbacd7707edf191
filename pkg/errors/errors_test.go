package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("ftp.host", "feed server host is required")
	assert.Equal(t, "configuration error for ftp.host: feed server host is required", err.Error())
	assert.ErrorIs(t, err, ErrConfigMissing)

	bare := &ConfigError{Message: "nothing configured"}
	assert.Equal(t, "configuration error: nothing configured", bare.Error())
}

func TestRecordError(t *testing.T) {
	err := &RecordError{
		Feed:   "stock.csv",
		Key:    "9780000000001",
		Field:  "stock",
		Raw:    "lots",
		Reason: "invalid-stock",
	}
	assert.Equal(t,
		`record 9780000000001 in stock.csv rejected (invalid-stock): field stock="lots"`,
		err.Error())
	assert.ErrorIs(t, err, ErrInvalidRecord)

	keyless := &RecordError{Feed: "stock.csv", Field: "isbn", Reason: "missing-key"}
	assert.Equal(t,
		`record in stock.csv rejected (missing-key): field isbn=""`,
		keyless.Error())
	assert.ErrorIs(t, keyless, ErrInvalidRecord)
}

func TestAPIError(t *testing.T) {
	cause := New("connection reset")
	err := &APIError{Operation: "ReviseItem", Message: "connection reset", Err: cause}
	assert.Equal(t, "marketplace API error during ReviseItem: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)

	withStatus := &APIError{Operation: "GetSellerList", StatusCode: 503, Message: "unavailable"}
	assert.Equal(t, "marketplace API error during GetSellerList (status 503): unavailable", withStatus.Error())
}

func TestWrapSource(t *testing.T) {
	require.NoError(t, WrapSource("inventory database", nil))

	cause := New("dial refused")
	err := WrapSource("inventory database", cause)
	require.Error(t, err)
	assert.True(t, IsSourceUnavailable(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "inventory database")
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(ErrNotFound))
	assert.True(t, IsNotFound(WrapSource("lookup", ErrNotFound)))
	assert.False(t, IsNotFound(stderrors.New("something else")))
}
