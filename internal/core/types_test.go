package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() *StreamingRequest {
	return &StreamingRequest{
		Messages:    []Message{{Role: RoleUser, Content: "Hi"}},
		MaxTokens:   10,
		Temperature: 0.7,
	}
}

func TestStreamingRequestValidate(t *testing.T) {
	require.NoError(t, validRequest().Validate())
}

func TestStreamingRequestValidate_EmptyMessages(t *testing.T) {
	req := validRequest()
	req.Messages = nil

	err := req.Validate()
	require.Error(t, err)

	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, ErrorTypeInvalidRequest, gwErr.Type)
}

func TestStreamingRequestValidate_UnknownRole(t *testing.T) {
	req := validRequest()
	req.Messages = []Message{{Role: "robot", Content: "beep"}}

	err := req.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}

func TestStreamingRequestValidate_MaxTokens(t *testing.T) {
	for _, tokens := range []int{0, -1} {
		req := validRequest()
		req.MaxTokens = tokens
		assert.Error(t, req.Validate(), "max_tokens=%d", tokens)
	}
}

func TestStreamingRequestValidate_TemperatureRange(t *testing.T) {
	cases := []struct {
		temp  float64
		valid bool
	}{
		{0.0, true},
		{0.7, true},
		{2.0, true},
		{-0.1, false},
		{2.1, false},
	}

	for _, tc := range cases {
		req := validRequest()
		req.Temperature = tc.temp
		err := req.Validate()
		if tc.valid {
			assert.NoError(t, err, "temperature=%v", tc.temp)
		} else {
			assert.Error(t, err, "temperature=%v", tc.temp)
		}
	}
}
