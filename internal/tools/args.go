package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/boxcoder/boxcoder/internal/sandbox"
)

// validator is implemented by argument structs with required fields.
type validator interface {
	validate() error
}

// decodeArgs converts the model's loosely typed argument map into T.
// Unknown keys and wrong types are validation errors.
func decodeArgs[T any](params map[string]any) (T, error) {
	var args T
	data, err := json.Marshal(params)
	if err != nil {
		return args, sandbox.Wrap(sandbox.KindValidation, "", err, "invalid arguments")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&args); err != nil {
		return args, sandbox.Errorf(sandbox.KindValidation, "", "invalid arguments: %s", describeDecodeError(err))
	}
	if v, ok := any(&args).(validator); ok {
		if err := v.validate(); err != nil {
			return args, err
		}
	}
	return args, nil
}

func describeDecodeError(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("%s must be %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)
	}
	return strings.TrimPrefix(err.Error(), "json: ")
}

func missingArg(name string) error {
	return sandbox.Errorf(sandbox.KindValidation, "", "missing required argument %q", name)
}

// stringSlice accepts any JSON value and keeps it raw so the caller decides
// when to validate it. Null and absent both mean empty.
func stringSlice(raw json.RawMessage) ([]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var values []any
	if err := json.Unmarshal(trimmed, &values); err != nil {
		return nil, sandbox.Errorf(sandbox.KindValidation, "", "args must be a list of strings")
	}
	out := make([]string, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, sandbox.Errorf(sandbox.KindValidation, "", "args[%d] must be a string, got %T", i, v)
		}
		out[i] = s
	}
	return out, nil
}
