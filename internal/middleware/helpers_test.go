package middleware

import (
	"encoding/json"
	"errors"
	"net/http/httptest"

	"postline-server/pkg/jwt"
)

func jsonDecode(rec *httptest.ResponseRecorder, v interface{}) error {
	return json.NewDecoder(rec.Body).Decode(v)
}

func errorsIsExpired(err error) bool {
	return errors.Is(err, jwt.ErrExpired)
}
