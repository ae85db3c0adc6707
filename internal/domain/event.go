package domain

// DefaultModelName 事件未携带模型名时的默认值
const DefaultModelName = "gemini-1.5-flash"

// UnknownLabel 缺失的标签维度统一归为 unknown
const UnknownLabel = "unknown"

// RequiredFields 必填字段，校验按此顺序进行，第一个缺失的字段决定错误信息
var RequiredFields = []string{"business_id", "response_time_ms", "tokens_used"}

// TrackedEvent 一次 AI 交互的性能事件
//
// 指针字段表示可选且入库时允许为 NULL；带默认值的可选字段用值类型表示。
type TrackedEvent struct {
	BusinessID            string
	ConversationID        *string
	SessionID             *string
	ResponseTimeMs        int
	SuccessRate           float64
	TokensUsed            int
	APICostUSD            *float64
	ModelName             string
	IntentDetected        *string
	AppointmentRequested  bool
	AppointmentBooked     bool
	HumanHandoffRequested bool
	UserMessageLength     *int
	AIResponseLength      *int
	ResponseType          *string
}

// Validate 校验原始载荷
//
// 只检查必填字段存在且非 null，不做类型校验：多余字段、类型不对的
// 可选字段都不会导致请求被拒绝。
func Validate(payload map[string]interface{}) error {
	if len(payload) == 0 {
		return ErrNoData
	}

	for _, field := range RequiredFields {
		v, ok := payload[field]
		if !ok || v == nil {
			return &MissingFieldError{Field: field}
		}
	}

	return nil
}

// FromMap 把已通过校验的原始载荷转换为强类型事件
//
// 转换是尽力而为的：类型不匹配的字段按缺失处理，落到零值或默认值。
func FromMap(payload map[string]interface{}) *TrackedEvent {
	ev := &TrackedEvent{
		BusinessID:            asString(payload["business_id"]),
		ConversationID:        asStringPtr(payload["conversation_id"]),
		SessionID:             asStringPtr(payload["session_id"]),
		ResponseTimeMs:        asInt(payload["response_time_ms"]),
		SuccessRate:           1.0,
		TokensUsed:            asInt(payload["tokens_used"]),
		APICostUSD:            asFloatPtr(payload["api_cost_usd"]),
		ModelName:             DefaultModelName,
		IntentDetected:        asStringPtr(payload["intent_detected"]),
		AppointmentRequested:  asBool(payload["appointment_requested"]),
		AppointmentBooked:     asBool(payload["appointment_booked"]),
		HumanHandoffRequested: asBool(payload["human_handoff_requested"]),
		UserMessageLength:     asIntPtr(payload["user_message_length"]),
		AIResponseLength:      asIntPtr(payload["ai_response_length"]),
		ResponseType:          asStringPtr(payload["response_type"]),
	}

	if rate, ok := payload["success_rate"]; ok {
		if f, ok := toFloat(rate); ok {
			ev.SuccessRate = f
		}
	}
	// 字段存在即生效，空串也原样保留；只有缺失或类型不对才落默认值
	if model, ok := payload["model_name"].(string); ok {
		ev.ModelName = model
	}

	return ev
}

// Intent 返回用于指标标签的意图值，字段存在时原样使用（包括空串）
func (e *TrackedEvent) Intent() string {
	if e.IntentDetected != nil {
		return *e.IntentDetected
	}
	return UnknownLabel
}

// ResponseTypeLabel 返回用于指标标签的响应类型，字段存在时原样使用
func (e *TrackedEvent) ResponseTypeLabel() string {
	if e.ResponseType != nil {
		return *e.ResponseType
	}
	return UnknownLabel
}

// ResponseTimeSeconds 毫秒转秒
func (e *TrackedEvent) ResponseTimeSeconds() float64 {
	return float64(e.ResponseTimeMs) / 1000.0
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asStringPtr(v interface{}) *string {
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}

func asInt(v interface{}) int {
	if f, ok := toFloat(v); ok {
		return int(f)
	}
	return 0
}

func asIntPtr(v interface{}) *int {
	if f, ok := toFloat(v); ok {
		i := int(f)
		return &i
	}
	return nil
}

func asFloatPtr(v interface{}) *float64 {
	if f, ok := toFloat(v); ok {
		return &f
	}
	return nil
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

// toFloat 处理 JSON 解码后的数字表示
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
