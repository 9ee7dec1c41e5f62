package transport

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseConfig builds a Config from a loosely typed JSON object, as submitted by a browser form.
// args accepts an array or a newline separated string; headers and env accept an object or
// a JSON object string.
func ParseConfig(raw map[string]any) (*Config, error) {
	ret := &Config{}
	var err error
	if ret.ID, err = stringField(raw, "id"); err != nil {
		return nil, err
	}
	if ret.Name, err = stringField(raw, "name"); err != nil {
		return nil, err
	}
	ret.Name = strings.TrimSpace(ret.Name)
	if ret.Name == "" {
		return nil, &ConfigurationError{Field: "name", Reason: "name is required"}
	}
	kind, err := stringField(raw, "transport")
	if err != nil {
		return nil, err
	}
	ret.Transport = Type(kind)
	if !ret.Transport.IsValid() {
		return nil, &ConfigurationError{Field: "transport", Reason: fmt.Sprintf("transport must be one of %v", Types)}
	}
	if ret.Command, err = stringField(raw, "command"); err != nil {
		return nil, err
	}
	ret.Command = strings.TrimSpace(ret.Command)
	if ret.URL, err = stringField(raw, "url"); err != nil {
		return nil, err
	}
	ret.URL = strings.TrimSpace(ret.URL)
	if ret.BearerToken, err = stringField(raw, "bearerToken"); err != nil {
		return nil, err
	}
	if v, ok := raw["autoConnect"]; ok && v != nil {
		b, ok := v.(bool)
		if !ok {
			return nil, &ConfigurationError{Field: "autoConnect", Reason: "must be a boolean"}
		}
		ret.AutoConnect = b
	}
	if ret.Args, err = parseArgs(raw["args"]); err != nil {
		return nil, err
	}
	if ret.Headers, err = parseObject("headers", raw["headers"]); err != nil {
		return nil, err
	}
	if ret.Env, err = parseObject("env", raw["env"]); err != nil {
		return nil, err
	}
	switch ret.Transport {
	case Stdio:
		ret.URL, ret.Headers, ret.BearerToken = "", nil, ""
	default:
		ret.Command, ret.Args, ret.Env = "", nil, nil
	}
	if err = ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}

func stringField(raw map[string]any, key string) (string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &ConfigurationError{Field: key, Reason: "must be a string"}
	}
	return s, nil
}

func parseArgs(v any) ([]string, error) {
	switch actual := v.(type) {
	case nil:
		return nil, nil
	case string:
		var ret []string
		for _, line := range strings.Split(actual, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				ret = append(ret, line)
			}
		}
		return ret, nil
	case []string:
		return actual, nil
	case []any:
		ret := make([]string, 0, len(actual))
		for _, item := range actual {
			s, ok := item.(string)
			if !ok {
				return nil, &ConfigurationError{Field: "args", Reason: "must be an array of strings"}
			}
			ret = append(ret, s)
		}
		return ret, nil
	default:
		return nil, &ConfigurationError{Field: "args", Reason: "must be an array or a newline separated string"}
	}
}

func parseObject(field string, v any) (map[string]string, error) {
	switch actual := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(actual) == "" {
			return nil, nil
		}
		var decoded any
		if err := json.Unmarshal([]byte(actual), &decoded); err != nil {
			return nil, &ConfigurationError{Field: field, Reason: "must be a valid JSON object"}
		}
		obj, ok := decoded.(map[string]any)
		if !ok {
			return nil, &ConfigurationError{Field: field, Reason: "must be a JSON object"}
		}
		return objectValues(field, obj)
	case map[string]string:
		return actual, nil
	case map[string]any:
		return objectValues(field, actual)
	default:
		return nil, &ConfigurationError{Field: field, Reason: "must be an object"}
	}
}

func objectValues(field string, obj map[string]any) (map[string]string, error) {
	ret := make(map[string]string, len(obj))
	for k, v := range obj {
		switch actual := v.(type) {
		case string:
			ret[k] = actual
		case bool, float64, json.Number:
			ret[k] = fmt.Sprint(actual)
		default:
			return nil, &ConfigurationError{Field: field, Reason: fmt.Sprintf("value of %q must be a scalar", k)}
		}
	}
	return ret, nil
}
