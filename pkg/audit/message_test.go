package audit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeMessage(t *testing.T) {
	t.Run("nil is an empty object", func(t *testing.T) {
		assert.Equal(t, "{}", string(EncodeMessage(nil)))
	})

	t.Run("numeric strings become numbers", func(t *testing.T) {
		got := EncodeMessage(Message{"num_posts": "3", "reassigned_user": "12", "tag": "v150i3", "zip": "007"})
		assert.JSONEq(t, `{"num_posts":3,"reassigned_user":12,"tag":"v150i3","zip":"007"}`, string(got))
	})

	t.Run("long digit strings stay strings", func(t *testing.T) {
		got := EncodeMessage(Message{
			"exact":  "123456789012345",
			"long":   "12345678901234567",
			"frac":   "0.000000000000001",
			"digits": "3.14159265358979323",
		})
		assert.JSONEq(t,
			`{"exact":123456789012345,"long":"12345678901234567","frac":0.000000000000001,"digits":"3.14159265358979323"}`,
			string(got))
		assert.Equal(t, "12345678901234567", DecodeMessage(got)["long"])
	})

	t.Run("nested values are normalized", func(t *testing.T) {
		got := EncodeMessage(Message{
			"deltas": map[string]interface{}{
				"tags":   map[string]interface{}{"added": []string{"v150i3"}, "removed": []string{}},
				"status": map[string]interface{}{"old": "pending", "new": "draft"},
			},
		})
		assert.JSONEq(t, `{"deltas":{"tags":{"added":["v150i3"],"removed":[]},"status":{"old":"pending","new":"draft"}}}`, string(got))
	})

	t.Run("unencodable values fall back to text", func(t *testing.T) {
		got := EncodeMessage(Message{"ch": make(chan int), "nan": math.NaN(), "ok": true})
		decoded := DecodeMessage(got)
		assert.Equal(t, true, decoded["ok"])
		assert.IsType(t, "", decoded["ch"])
		assert.Equal(t, "NaN", decoded["nan"])
	})
}

func TestDecodeMessage(t *testing.T) {
	assert.Equal(t, Message{}, DecodeMessage(nil))
	assert.Equal(t, Message{"a": float64(1)}, DecodeMessage([]byte(`{"a":1}`)))
	assert.Equal(t, Message{"raw": "not json"}, DecodeMessage([]byte("not json")))
	assert.Equal(t, Message{"raw": "[1,2]"}, DecodeMessage([]byte("[1,2]")))
}
