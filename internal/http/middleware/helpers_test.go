package middleware

import "encoding/json"

// jsonHasField decodes body and reports whether field equals want.
func jsonHasField(body, field, want string) bool {
	var m map[string]any
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return false
	}
	s, _ := m[field].(string)
	return s == want
}
