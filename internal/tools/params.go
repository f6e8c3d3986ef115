package tools

import (
	"fmt"
	"math"
	"time"
)

// DateLayout формат дат во входных параметрах
const DateLayout = "2006-01-02"

// Параметры приходят из JSON, поэтому числа всегда float64.

func floatParam(params map[string]interface{}, name string) (float64, error) {
	v, ok := params[name].(float64)
	if !ok {
		return 0, fmt.Errorf("invalid parameter: %s", name)
	}
	return v, nil
}

func optFloatParam(params map[string]interface{}, name string) (*float64, error) {
	raw, present := params[name]
	if !present || raw == nil {
		return nil, nil
	}
	v, ok := raw.(float64)
	if !ok {
		return nil, fmt.Errorf("invalid parameter: %s", name)
	}
	return &v, nil
}

func intParam(params map[string]interface{}, name string) (int, error) {
	v, err := floatParam(params, name)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("invalid parameter: %s must be an integer", name)
	}
	return int(v), nil
}

func optIntParam(params map[string]interface{}, name string) (*int, error) {
	v, err := optFloatParam(params, name)
	if err != nil || v == nil {
		return nil, err
	}
	if *v != math.Trunc(*v) {
		return nil, fmt.Errorf("invalid parameter: %s must be an integer", name)
	}
	n := int(*v)
	return &n, nil
}

func stringParam(params map[string]interface{}, name string) (string, error) {
	v, ok := params[name].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("invalid parameter: %s", name)
	}
	return v, nil
}

func optStringParam(params map[string]interface{}, name string) (string, error) {
	raw, present := params[name]
	if !present || raw == nil {
		return "", nil
	}
	v, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("invalid parameter: %s", name)
	}
	return v, nil
}

func boolParam(params map[string]interface{}, name string) (bool, error) {
	raw, present := params[name]
	if !present || raw == nil {
		return false, nil
	}
	v, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("invalid parameter: %s", name)
	}
	return v, nil
}

func dateParam(params map[string]interface{}, name string) (time.Time, error) {
	s, err := stringParam(params, name)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid parameter: %s: %w", name, err)
	}
	return t, nil
}

// optDateParam возвращает def, если параметр не задан
func optDateParam(params map[string]interface{}, name string, def time.Time) (time.Time, error) {
	if raw, present := params[name]; !present || raw == nil {
		return def, nil
	}
	return dateParam(params, name)
}

func floatSliceParam(params map[string]interface{}, name string) ([]float64, error) {
	raw, ok := params[name].([]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid parameter: %s", name)
	}
	out := make([]float64, 0, len(raw))
	for i, item := range raw {
		v, ok := item.(float64)
		if !ok {
			return nil, fmt.Errorf("invalid parameter: %s[%d]", name, i)
		}
		out = append(out, v)
	}
	return out, nil
}

func objectSliceParam(params map[string]interface{}, name string) ([]map[string]interface{}, error) {
	raw, ok := params[name].([]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid parameter: %s", name)
	}
	out := make([]map[string]interface{}, 0, len(raw))
	for i, item := range raw {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("invalid parameter: %s[%d]", name, i)
		}
		out = append(out, obj)
	}
	return out, nil
}
