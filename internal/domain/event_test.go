package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_EmptyPayload(t *testing.T) {
	assert.ErrorIs(t, Validate(nil), ErrNoData)
	assert.ErrorIs(t, Validate(map[string]interface{}{}), ErrNoData)
}

func TestValidate_MissingFieldOrder(t *testing.T) {
	testCases := []struct {
		name     string
		payload  map[string]interface{}
		expected string
	}{
		{
			name:     "全缺时先报 business_id",
			payload:  map[string]interface{}{"extra": "x"},
			expected: "business_id",
		},
		{
			name: "缺 response_time_ms 和 tokens_used 时先报前者",
			payload: map[string]interface{}{
				"business_id": "b1",
			},
			expected: "response_time_ms",
		},
		{
			name: "只缺 tokens_used",
			payload: map[string]interface{}{
				"business_id":      "b1",
				"response_time_ms": float64(1000),
			},
			expected: "tokens_used",
		},
		{
			name: "必填字段为 null 按缺失处理",
			payload: map[string]interface{}{
				"business_id":      nil,
				"response_time_ms": float64(1000),
				"tokens_used":      float64(50),
			},
			expected: "business_id",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.payload)
			require.Error(t, err)

			var missing *MissingFieldError
			require.True(t, errors.As(err, &missing))
			assert.Equal(t, tc.expected, missing.Field)
		})
	}
}

func TestValidate_ValidPayload(t *testing.T) {
	payload := map[string]interface{}{
		"business_id":      "b1",
		"response_time_ms": float64(1000),
		"tokens_used":      float64(50),
	}

	assert.NoError(t, Validate(payload))
}

func TestFromMap_Defaults(t *testing.T) {
	ev := FromMap(map[string]interface{}{
		"business_id":      "b1",
		"response_time_ms": float64(1000),
		"tokens_used":      float64(50),
	})

	assert.Equal(t, "b1", ev.BusinessID)
	assert.Equal(t, 1000, ev.ResponseTimeMs)
	assert.Equal(t, 50, ev.TokensUsed)
	assert.Equal(t, 1.0, ev.SuccessRate)
	assert.Equal(t, DefaultModelName, ev.ModelName)
	assert.False(t, ev.AppointmentRequested)
	assert.False(t, ev.AppointmentBooked)
	assert.False(t, ev.HumanHandoffRequested)
	assert.Nil(t, ev.ConversationID)
	assert.Nil(t, ev.APICostUSD)
	assert.Nil(t, ev.IntentDetected)
	assert.Nil(t, ev.ResponseType)
}

func TestFromMap_FullEvent(t *testing.T) {
	ev := FromMap(map[string]interface{}{
		"business_id":             "b1",
		"conversation_id":         "conv-1",
		"session_id":              "sess-1",
		"response_time_ms":        float64(1250),
		"success_rate":            0.9,
		"tokens_used":             float64(150),
		"api_cost_usd":            0.002,
		"model_name":              "gemini-1.5-pro",
		"intent_detected":         "appointment",
		"appointment_requested":   true,
		"appointment_booked":      false,
		"human_handoff_requested": true,
		"user_message_length":     float64(45),
		"ai_response_length":      float64(120),
		"response_type":           "appointment_booking",
	})

	require.NotNil(t, ev.ConversationID)
	assert.Equal(t, "conv-1", *ev.ConversationID)
	assert.Equal(t, 0.9, ev.SuccessRate)
	require.NotNil(t, ev.APICostUSD)
	assert.Equal(t, 0.002, *ev.APICostUSD)
	assert.Equal(t, "gemini-1.5-pro", ev.ModelName)
	assert.True(t, ev.AppointmentRequested)
	assert.True(t, ev.HumanHandoffRequested)
	require.NotNil(t, ev.UserMessageLength)
	assert.Equal(t, 45, *ev.UserMessageLength)
	assert.Equal(t, "appointment", ev.Intent())
	assert.Equal(t, "appointment_booking", ev.ResponseTypeLabel())
}

func TestFromMap_MistypedOptionalFields(t *testing.T) {
	// 类型不对的可选字段按缺失处理，不拒绝请求
	ev := FromMap(map[string]interface{}{
		"business_id":           "b1",
		"response_time_ms":      float64(1000),
		"tokens_used":           float64(50),
		"success_rate":          "not-a-float",
		"model_name":            float64(42),
		"appointment_requested": "yes",
		"api_cost_usd":          "free",
	})

	assert.Equal(t, 1.0, ev.SuccessRate)
	assert.Equal(t, DefaultModelName, ev.ModelName)
	assert.False(t, ev.AppointmentRequested)
	assert.Nil(t, ev.APICostUSD)
}

func TestFromMap_EmptyStringsKeptVerbatim(t *testing.T) {
	// 存在但为空串的字段原样保留，不落到 unknown 或默认模型
	ev := FromMap(map[string]interface{}{
		"business_id":      "b1",
		"response_time_ms": float64(1000),
		"tokens_used":      float64(50),
		"intent_detected":  "",
		"response_type":    "",
		"model_name":       "",
	})

	assert.Equal(t, "", ev.ModelName)
	assert.Equal(t, "", ev.Intent())
	assert.Equal(t, "", ev.ResponseTypeLabel())
}

func TestEvent_Labels(t *testing.T) {
	ev := FromMap(map[string]interface{}{
		"business_id":      "b1",
		"response_time_ms": float64(500),
		"tokens_used":      float64(10),
	})

	assert.Equal(t, UnknownLabel, ev.Intent())
	assert.Equal(t, UnknownLabel, ev.ResponseTypeLabel())
	assert.Equal(t, 0.5, ev.ResponseTimeSeconds())
}
