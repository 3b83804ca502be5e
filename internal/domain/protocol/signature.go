package protocol

import (
	"crypto/md5" //nolint:gosec // wire-compatible request digest, not a password hash
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"slices"
	"strconv"
	"strings"

	"authgate/internal/errors"
)

const signKey = "sign"

// Algorithm names the digest used for request signatures.
type Algorithm string

const (
	AlgorithmMD5    Algorithm = "md5"
	AlgorithmSHA256 Algorithm = "sha256"
)

// ParseAlgorithm validates a configured algorithm name.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch alg := Algorithm(strings.ToLower(strings.TrimSpace(name))); alg {
	case AlgorithmMD5, AlgorithmSHA256:
		return alg, nil
	default:
		return "", errors.Errorf("unsupported sign algorithm: %s", name)
	}
}

func (a Algorithm) newHash() hash.Hash {
	if a == AlgorithmSHA256 {
		return sha256.New()
	}

	return md5.New() //nolint:gosec
}

// Canonicalize flattens params into sorted key=value pairs.
//
// Keys named "sign" (any case), nil values, false, numeric zero and empty strings are dropped.
// Arrays become key=a,b. Nested objects are flattened in place without a key prefix.
func Canonicalize(params map[string]any) []string {
	pairs := make([]string, 0, len(params))
	pairs = appendPairs(pairs, params)
	slices.Sort(pairs)

	return pairs
}

func appendPairs(pairs []string, params map[string]any) []string {
	for key, value := range params {
		if strings.EqualFold(key, signKey) {
			continue
		}

		switch v := value.(type) {
		case nil:
			continue
		case map[string]any:
			pairs = appendPairs(pairs, v)
		case []any:
			items := make([]string, len(v))
			for i, item := range v {
				items[i] = formatValue(item)
			}
			pairs = append(pairs, key+"="+strings.Join(items, ","))
		default:
			if isZero(v) {
				continue
			}
			if s := formatValue(v); s != "" {
				pairs = append(pairs, key+"="+s)
			}
		}
	}

	return pairs
}

func isZero(v any) bool {
	switch n := v.(type) {
	case bool:
		return !n
	case json.Number:
		f, err := n.Float64()
		return err == nil && f == 0
	case float64:
		return n == 0
	case float32:
		return n == 0
	case int:
		return n == 0
	case int64:
		return n == 0
	case int32:
		return n == 0
	default:
		return false
	}
}

func formatValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case map[string]any, []any:
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Sprint(s)
		}
		return string(data)
	default:
		return fmt.Sprint(s)
	}
}

// Sign computes the hex digest of the canonical form of params followed by secret.
// It fails when params flatten to nothing.
func Sign(params map[string]any, secret string, alg Algorithm) (string, error) {
	pairs := Canonicalize(params)
	if len(pairs) == 0 {
		return "", errors.New("no parameters to sign")
	}

	h := alg.newHash()
	h.Write([]byte(strings.Join(pairs, "&") + secret))

	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifySign reports whether sign matches the digest of params, ignoring hex case.
func VerifySign(params map[string]any, secret, sign string, alg Algorithm) bool {
	expected, err := Sign(params, secret, alg)
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(sign))) == 1
}
