package auth

import (
	"slices"
	"strings"
)

// Registry は設定済みの検証器と、検証なしで受け入れるプロバイダを保持する。
// 検証器が登録されたラベルは、許可リストに含まれていても検証を必須とする。
type Registry struct {
	verifiers  map[string]TokenVerifier
	unverified map[string]struct{}
}

// NewRegistry は検証器をラベルで登録する。ラベルは一意であること。
func NewRegistry(unverified []string, verifiers ...TokenVerifier) *Registry {
	r := &Registry{
		verifiers:  make(map[string]TokenVerifier, len(verifiers)),
		unverified: make(map[string]struct{}, len(unverified)),
	}
	for _, v := range verifiers {
		r.verifiers[normalizeProvider(v.Provider())] = v
	}
	for _, p := range unverified {
		p = normalizeProvider(p)
		if _, ok := r.verifiers[p]; ok || p == "" {
			continue
		}
		r.unverified[p] = struct{}{}
	}
	return r
}

// Verifier はプロバイダの検証器を返す。未登録の場合はfalse。
func (r *Registry) Verifier(provider string) (TokenVerifier, bool) {
	v, ok := r.verifiers[normalizeProvider(provider)]
	return v, ok
}

// AllowsUnverified はプロバイダを検証なしで受け入れてよいかを返す。
func (r *Registry) AllowsUnverified(provider string) bool {
	_, ok := r.unverified[normalizeProvider(provider)]
	return ok
}

// Providers は受け入れ可能な全ラベルをソートして返す。
func (r *Registry) Providers() []string {
	out := make([]string, 0, len(r.verifiers)+len(r.unverified))
	for p := range r.verifiers {
		out = append(out, p)
	}
	for p := range r.unverified {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

func normalizeProvider(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}
