package imaging

import (
	"encoding/base64"
	"errors"
	"strings"
)

var ErrEmptyPayload = errors.New("imaging: empty image payload")

// DecodePayload accepts a data URI ("data:image/png;base64,...") or bare
// base64 and returns the raw bytes plus the declared mime type, if any. The
// declared type is only a hint; Detect decides the real one.
func DecodePayload(payload string) ([]byte, string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, "", ErrEmptyPayload
	}

	var hint string
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 {
			return nil, "", errors.New("imaging: malformed data uri")
		}
		meta := payload[len("data:"):comma]
		hint, _, _ = strings.Cut(meta, ";")
		payload = payload[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, hint, errors.New("imaging: payload is not valid base64")
		}
	}
	if len(data) == 0 {
		return nil, hint, ErrEmptyPayload
	}
	return data, hint, nil
}
