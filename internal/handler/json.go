package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var errMalformedBody = errors.New("malformed JSON body")

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// readBody reads at most maxBodyBytes of the request body.
func readBody(w http.ResponseWriter, r *http.Request) (*jx.Decoder, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(errMalformedBody, err.Error())
	}
	return jx.DecodeBytes(body), nil
}

// decodeObject walks the fields of a JSON object body.
func decodeObject(w http.ResponseWriter, r *http.Request, field func(d *jx.Decoder, key string) error) error {
	d, err := readBody(w, r)
	if err != nil {
		return err
	}
	if err := d.Obj(field); err != nil {
		return errors.Wrap(errMalformedBody, err.Error())
	}
	return nil
}

func encodeMoney(e *jx.Encoder, field string, d decimal.Decimal) {
	e.FieldStart(field)
	e.Str(d.StringFixed(2))
}

func encodeOptMoney(e *jx.Encoder, field string, d *decimal.Decimal) {
	e.FieldStart(field)
	if d == nil {
		e.Null()
		return
	}
	e.Str(d.StringFixed(2))
}

func encodeStr(e *jx.Encoder, field, v string) {
	e.FieldStart(field)
	e.Str(v)
}

func encodeInt(e *jx.Encoder, field string, v int) {
	e.FieldStart(field)
	e.Int(v)
}

func encodeBool(e *jx.Encoder, field string, v bool) {
	e.FieldStart(field)
	e.Bool(v)
}

func encodeTime(e *jx.Encoder, field string, t time.Time) {
	e.FieldStart(field)
	e.Str(t.UTC().Format(time.RFC3339))
}

// sessionID returns the shopper session from the header or the cookie.
func sessionID(r *http.Request) string {
	if id := r.Header.Get(HeaderSessionID); id != "" {
		return id
	}
	if c, err := r.Cookie(CookieSession); err == nil {
		return c.Value
	}
	return ""
}

// ensureSession returns the request session, starting a new one when the
// request has none.
func (h *Handler) ensureSession(w http.ResponseWriter, r *http.Request) string {
	if id := sessionID(r); id != "" {
		return id
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieSession,
		Value:    id,
		Path:     "/",
		MaxAge:   int((30 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(HeaderSessionID, id)
	return id
}
