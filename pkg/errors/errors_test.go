package errors_test

import (
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/agentstation/layersync/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := pkgerrors.New("test error")
	assert.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestNotFoundError(t *testing.T) {
	t.Run("basic error", func(t *testing.T) {
		err := &pkgerrors.NotFoundError{Resource: "item", ID: "abc123"}
		assert.Equal(t, "item with ID abc123 not found", err.Error())
		assert.True(t, errors.Is(err, pkgerrors.ErrNotFound))
	})

	t.Run("wrapped error", func(t *testing.T) {
		wrapped := fmt.Errorf("resolve layer: %w", pkgerrors.NewNotFoundError("item", "abc123"))
		assert.True(t, pkgerrors.IsNotFound(wrapped))
	})
}

func TestSchemaMismatchError(t *testing.T) {
	err := pkgerrors.NewSchemaMismatchError("updates.csv", []string{"id", "name"}, []string{"id", "name", "extra"})
	assert.Contains(t, err.Error(), "updates.csv")
	assert.Contains(t, err.Error(), "expected [id,name]")
	assert.Contains(t, err.Error(), "got [id,name,extra]")
	assert.True(t, pkgerrors.IsSchemaMismatch(err))
	assert.False(t, pkgerrors.IsMalformedRecord(err))
}

func TestMalformedRecordError(t *testing.T) {
	t.Run("with line and column", func(t *testing.T) {
		err := pkgerrors.NewMalformedRecordError("cities.csv", 7, "id", "missing key value")
		assert.Equal(t, "malformed record in batch cities.csv at line 7 column id: missing key value", err.Error())
		assert.True(t, pkgerrors.IsMalformedRecord(err))
	})

	t.Run("without position", func(t *testing.T) {
		err := pkgerrors.NewMalformedRecordError("batch-2", 0, "", "wrong field count")
		assert.Equal(t, "malformed record in batch batch-2: wrong field count", err.Error())
	})

	t.Run("unwrap", func(t *testing.T) {
		base := errors.New("strconv.ParseInt: invalid syntax")
		err := &pkgerrors.MalformedRecordError{Batch: "b", Message: "bad integer", Err: base}
		assert.Equal(t, base, errors.Unwrap(err))
	})
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		name   string
		err    *pkgerrors.APIError
		target error
	}{
		{"rate limited", pkgerrors.NewAPIError("portal", 429, "slow down"), pkgerrors.ErrRateLimited},
		{"server error", pkgerrors.NewAPIError("portal", 503, "maintenance"), pkgerrors.ErrPortalUnavailable},
		{"invalid token status", pkgerrors.NewAPIError("portal", 498, "Invalid token."), pkgerrors.ErrCredentialsInvalid},
		{"invalid token envelope code", &pkgerrors.APIError{Service: "portal", Code: 499, Message: "Token Required"}, pkgerrors.ErrCredentialsInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.target))
		})
	}

	t.Run("details in message", func(t *testing.T) {
		err := &pkgerrors.APIError{Service: "portal", StatusCode: 400, Message: "Unable to publish", Details: []string{"field count differs"}}
		assert.Contains(t, err.Error(), "status 400")
		assert.Contains(t, err.Error(), "field count differs")
		assert.False(t, errors.Is(err, pkgerrors.ErrPortalUnavailable))
	})
}

func TestOverwriteError(t *testing.T) {
	err := &pkgerrors.OverwriteError{LayerID: "layer1", JobID: "job9", Status: "failed", Message: "schema differs"}
	assert.Equal(t, "overwrite of layer layer1 failed (status failed): schema differs", err.Error())
	assert.True(t, pkgerrors.IsOverwriteFailed(err))

	wrapped := &pkgerrors.OverwriteError{LayerID: "layer1", Err: pkgerrors.NewAPIError("portal", 500, "boom")}
	assert.True(t, pkgerrors.IsOverwriteFailed(wrapped))
	assert.True(t, pkgerrors.IsPortalUnavailable(wrapped))
}

func TestFileNameMismatchError(t *testing.T) {
	err := &pkgerrors.FileNameMismatchError{Expected: "cities.csv", Got: "merged.csv"}
	assert.Contains(t, err.Error(), "merged.csv")
	assert.Contains(t, err.Error(), "cities.csv")
	assert.True(t, errors.Is(err, pkgerrors.ErrFileNameMismatch))
}

func TestConfigError(t *testing.T) {
	base := errors.New("missing")
	err := pkgerrors.NewConfigError("portal", "portal_url cannot be empty", base)
	assert.Contains(t, err.Error(), "portal")
	assert.Contains(t, err.Error(), "portal_url cannot be empty")
	assert.Equal(t, base, err.Unwrap())
}

func TestIOError(t *testing.T) {
	t.Run("unwrap", func(t *testing.T) {
		baseErr := errors.New("disk full")
		err := pkgerrors.NewIOError("write", "/data/output.csv", baseErr)
		assert.Equal(t, baseErr, err.Unwrap())
		assert.Contains(t, err.Error(), "/data/output.csv")
	})

	t.Run("wrap helper", func(t *testing.T) {
		err := pkgerrors.WrapIO("open", "s3://bucket/key.csv", errors.New("access denied"))
		ioErr, ok := err.(*pkgerrors.IOError)
		require.True(t, ok)
		assert.Equal(t, "open", ioErr.Operation)
		assert.Equal(t, "s3://bucket/key.csv", ioErr.Path)
		assert.Nil(t, pkgerrors.WrapIO("open", "x", nil))
	})
}

func TestParseError(t *testing.T) {
	t.Run("with file and position", func(t *testing.T) {
		err := &pkgerrors.ParseError{Format: "csv", File: "a.csv", Line: 10, Column: 5, Message: "bare quote"}
		assert.Contains(t, err.Error(), "a.csv:10:5")
	})

	t.Run("wrap", func(t *testing.T) {
		baseErr := errors.New("EOF")
		wrapped := pkgerrors.WrapParse("yaml", "schema.yaml", baseErr)
		parseErr, ok := wrapped.(*pkgerrors.ParseError)
		require.True(t, ok)
		assert.Equal(t, "yaml", parseErr.Format)
		assert.Equal(t, baseErr, parseErr.Unwrap())
	})
}

func TestAuthenticationError(t *testing.T) {
	err := &pkgerrors.AuthenticationError{Portal: "https://www.arcgis.com", Method: "token", Message: "Invalid username or password."}
	assert.Contains(t, err.Error(), "token")
	assert.True(t, pkgerrors.IsCredentialError(err))
}

func TestTimeoutError(t *testing.T) {
	err := &pkgerrors.TimeoutError{Operation: "overwrite", Duration: "10m0s", Message: "job still processing"}
	assert.Contains(t, err.Error(), "10m0s")
	assert.True(t, pkgerrors.IsTimeout(err))
}
