// Package credential pulls bearer tokens out of connection handshake metadata.
package credential

import (
	"strings"
)

const (
	queryKey     = "token"
	authKey      = "token"
	headerKey    = "authorization"
	bearerScheme = "Bearer"
)

// Metadata is the part of a handshake a token can travel in.
type Metadata struct {
	Query   map[string][]string
	Auth    any
	Headers map[string][]string
}

// Extract returns the bearer token, trying the `token` query parameter, then
// the `token` field of the auth payload, then an `Authorization: Bearer` header.
func Extract(md Metadata) (string, bool) {
	if token := firstValue(md.Query, queryKey, false); token != "" {
		return token, true
	}
	if token := fromAuth(md.Auth); token != "" {
		return token, true
	}
	if token := fromHeader(firstValue(md.Headers, headerKey, true)); token != "" {
		return token, true
	}
	return "", false
}

func fromAuth(auth any) string {
	switch v := auth.(type) {
	case map[string]any:
		s, _ := v[authKey].(string)
		return s
	case map[string]string:
		return v[authKey]
	}
	return ""
}

// fromHeader accepts exactly "Bearer <token>"; the scheme is case-sensitive.
func fromHeader(raw string) string {
	scheme, token, ok := strings.Cut(raw, " ")
	if !ok || scheme != bearerScheme {
		return ""
	}
	if token == "" || strings.ContainsAny(token, " \t") {
		return ""
	}
	return token
}

// firstValue returns the first non-empty value for key. Header names compare
// case-insensitively, query keys do not.
func firstValue(values map[string][]string, key string, foldCase bool) string {
	if len(values) == 0 {
		return ""
	}
	if list, ok := values[key]; ok {
		if v := firstNonEmpty(list); v != "" {
			return v
		}
	}
	if !foldCase {
		return ""
	}
	for k, list := range values {
		if !strings.EqualFold(k, key) {
			continue
		}
		if v := firstNonEmpty(list); v != "" {
			return v
		}
	}
	return ""
}

func firstNonEmpty(list []string) string {
	for _, v := range list {
		if v != "" {
			return v
		}
	}
	return ""
}
