package sessionx

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// segmentCount is the number of dot separated parts of a compact token.
const segmentCount = 3

// Decode splits raw into header, payload and signature and returns the
// claims carried by the payload. The header and signature are never looked
// at, so no signature is verified.
//
// Failures are returned as *Error with ErrCodeMalformedToken when raw is not
// exactly three segments and ErrCodeDecode for every other step.
func Decode(raw string) (ClaimSet, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != segmentCount {
		return nil, newError(ErrCodeMalformedToken, fmt.Errorf("expected %d segments, got %d", segmentCount, len(parts)))
	}

	payload, err := decodeSegment(parts[1])
	if err != nil {
		return nil, newError(ErrCodeDecode, err)
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var claims ClaimSet
	if err := dec.Decode(&claims); err != nil {
		return nil, newError(ErrCodeDecode, fmt.Errorf("parse payload: %w", err))
	}
	if claims == nil {
		return nil, newError(ErrCodeDecode, errors.New("payload is not an object"))
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, newError(ErrCodeDecode, errors.New("trailing data after payload"))
	}
	return claims, nil
}

// decodeSegment maps the URL-safe alphabet onto the standard one, restores
// padding and base64 decodes.
func decodeSegment(seg string) ([]byte, error) {
	s := strings.NewReplacer("-", "+", "_", "/").Replace(seg)
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}
	out, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode payload segment: %w", err)
	}
	return out, nil
}

// EncodeSegment is the inverse of the payload decoding step: unpadded
// base64url of b.
func EncodeSegment(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
