package aliyun

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"hash"
	"sort"
	"strings"

	"workshop-backend/domain"
)

// Algorithm is the SignatureMethod tag sent along with a signed request.
type Algorithm string

const (
	HMACSHA1   Algorithm = "HMAC-SHA1"
	HMACSHA256 Algorithm = "HMAC-SHA256"
)

func (a Algorithm) hashFunc() (func() hash.Hash, error) {
	switch a {
	case HMACSHA1:
		return sha1.New, nil
	case HMACSHA256:
		return sha256.New, nil
	default:
		return nil, fmt.Errorf("unsupported signature method %q", string(a))
	}
}

// CanonicalQuery drops empty values, sorts by key and joins the encoded pairs.
func CanonicalQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(PercentEncode(k))
		b.WriteByte('=')
		b.WriteString(PercentEncode(params[k]))
	}
	return b.String()
}

// StringToSign joins method, the encoded base path and the encoded canonical query.
func StringToSign(method, canonicalQuery string) string {
	return strings.ToUpper(method) + "&" + PercentEncode("/") + "&" + PercentEncode(canonicalQuery)
}

// Sign returns the base64 HMAC signature of params. The key is secret + "&".
func Sign(method string, params map[string]string, secret string, alg Algorithm) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("%w: access key secret is empty", domain.ErrConfigMissing)
	}
	newHash, err := alg.hashFunc()
	if err != nil {
		return "", err
	}

	mac := hmac.New(newHash, []byte(secret+"&"))
	mac.Write([]byte(StringToSign(method, CanonicalQuery(params))))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// SignedQuery returns the canonical query with the Signature parameter appended.
func SignedQuery(method string, params map[string]string, secret string, alg Algorithm) (string, error) {
	sig, err := Sign(method, params, secret, alg)
	if err != nil {
		return "", err
	}
	return CanonicalQuery(params) + "&Signature=" + PercentEncode(sig), nil
}
