package aliyun

import (
	"net/url"
	"strings"
)

// RFC 3986 leaves only ALPHA / DIGIT / "-" / "_" / "." unescaped for these APIs.
// QueryEscape already escapes ! ' ( ) * but emits "+" for space and keeps "~".
var encodeReplacer = strings.NewReplacer("+", "%20", "~", "%7E")

// PercentEncode encodes s the way the RPC signature algorithm expects.
func PercentEncode(s string) string {
	return encodeReplacer.Replace(url.QueryEscape(s))
}
