package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorConfiguration, "configuration"},
		{ErrorIO, "io"},
		{ErrorData, "data"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			assert.Equal(t, test.expected, test.class.String())
		})
	}
}

func TestWrapHelpers(t *testing.T) {
	base := fmt.Errorf("permission denied")

	err := WrapIO(base, "Writer", "WriteHeader", "create directory")
	require.Error(t, err)
	assert.Equal(t, "Writer.WriteHeader: create directory failed: permission denied", err.Error())
	assert.True(t, IsIO(err))
	assert.False(t, IsConfig(err))
	assert.ErrorIs(t, err, base)

	var ce *ClassifiedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "Writer", ce.Component)
	assert.Equal(t, "WriteHeader", ce.Operation)

	assert.Nil(t, WrapConfig(nil, "a", "b", "c"))
	assert.Nil(t, Wrap(nil, "a", "b", "c"))
}

func TestClassificationSurvivesFurtherWrapping(t *testing.T) {
	err := WrapConfig(ErrUnknownTimezone, "Resolver", "New", "load location")
	outer := fmt.Errorf("stream users: %w", err)

	assert.True(t, IsConfig(outer))
	assert.ErrorIs(t, outer, ErrUnknownTimezone)
	assert.Equal(t, ErrorConfiguration, Classify(outer))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"bare missing properties", ErrMissingProperties, ErrorConfiguration},
		{"bare append mode", fmt.Errorf("validate: %w", ErrAppendNotSupported), ErrorConfiguration},
		{"bare unknown stream", ErrUnknownStream, ErrorData},
		{"classified data", WrapData(ErrInvalidMessage, "Parser", "Parse", "decode"), ErrorData},
		{"unclassified", fmt.Errorf("disk full"), ErrorIO},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, Classify(test.err))
		})
	}
}
