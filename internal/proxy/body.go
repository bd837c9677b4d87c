package proxy

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// parseBody validates that the request body is present and a JSON object,
// and returns the parsed view. The view is read-only; mutations go through
// setBodyField so the body bytes are only ever replaced wholesale.
func parseBody(body []byte) (gjson.Result, error) {
	if len(body) == 0 {
		return gjson.Result{}, BadRequest(ErrBodyRequired)
	}
	if !sonic.Valid(body) {
		return gjson.Result{}, BadRequest(fmt.Errorf("%w: invalid json", ErrBodyMustBeJSONObject))
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return gjson.Result{}, BadRequest(ErrBodyMustBeJSONObject)
	}
	return parsed, nil
}

// setBodyField returns a new body with field set to value. All other fields
// keep their original bytes.
func setBodyField(body []byte, field, value string) ([]byte, error) {
	out, err := sjson.SetBytes(body, field, value)
	if err != nil {
		return nil, BadRequest(fmt.Errorf("failed to set field %s: %w", field, err))
	}
	return out, nil
}
