package result_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/imgvault/imgvault/fault"
	"github.com/imgvault/imgvault/result"
)

func TestNewSuccess(t *testing.T) {
	value := "success value"
	successResult := result.NewSuccess(&value)

	assert.True(t, successResult.IsSuccess())
	assert.False(t, successResult.IsError())

	val, err := successResult.Value()
	assert.Nil(t, err)
	assert.Equal(t, value, *val)
	assert.Equal(t, value, *successResult.ToValue())
}

func TestNewFailure(t *testing.T) {
	testErr := fault.NewTerminal("upload-failed", "upload failed after retries")
	errorResult := result.NewFailure[string](testErr)

	assert.False(t, errorResult.IsSuccess())
	assert.True(t, errorResult.IsError())

	val, err := errorResult.Value()
	assert.Nil(t, val)
	assert.Error(t, err)
	assert.Equal(t, testErr, err)

	assert.Equal(t, testErr, errorResult.Error())
	assert.Nil(t, errorResult.ToValue())
}

func TestNewFailureWithValue(t *testing.T) {
	partial := 42
	testErr := fault.NewTransient("network", "connection reset")
	r := result.NewFailureWithValue(&partial, testErr)

	val, err := r.Value()
	assert.Equal(t, 42, *val)
	assert.Equal(t, testErr, err)
	assert.Nil(t, r.ToValue())
}

func TestToResult(t *testing.T) {
	value := "success value"
	successResult := result.ToResult(&value, nil)
	assert.IsType(t, &result.Success[string]{}, successResult)

	errorResult := result.ToResult[string](nil, fault.NewTerminal("test-error", ""))
	assert.IsType(t, &result.Failure[string]{}, errorResult)
}

func TestCastFailure(t *testing.T) {
	testErr := fault.NewMutation("remote-rejected", "remote rejected the mutation")
	errorResult := result.NewFailure[string](testErr)

	cast := result.CastFailure[string, int](errorResult)
	assert.IsType(t, &result.Failure[int]{}, cast)
	assert.Equal(t, testErr, cast.Error())

	value := "ok"
	successResult := result.NewSuccess(&value)
	castSuccess := result.CastFailure[string, int](successResult)
	assert.True(t, castSuccess.IsError())
	assert.EqualError(t, castSuccess.Error(), "cannot cast a success result")
}

func TestFaultClassification(t *testing.T) {
	transient := fault.NewTransient("timeout", "request timed out")
	assert.True(t, transient.IsRetryable())
	assert.Equal(t, fault.Transient, transient.FetchKind())

	validation := fault.NewValidation("file-too-large", "file exceeds allowed size")
	assert.False(t, validation.IsRetryable())
	assert.Equal(t, "file-too-large", validation.FetchCode())
}
