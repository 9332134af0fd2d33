package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v4"
)

const testClientID = "test-client-id.apps.googleusercontent.com"

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

// testKey はテスト用のRSA鍵とkid。
type testKey struct {
	kid  string
	priv *rsa.PrivateKey
}

func newTestKey(t *testing.T, kid string) *testKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	return &testKey{kid: kid, priv: priv}
}

// sign はRS256でIDトークンに署名する。
func (k *testKey) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = k.kid
	s, err := tok.SignedString(k.priv)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return s
}

// googleClaims は有効なGoogle IDトークンのクレームを返す。
func googleClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":     "https://accounts.google.com",
		"aud":     testClientID,
		"sub":     "google-sub-12345",
		"email":   "a@x.com",
		"name":    "Alice",
		"picture": "https://lh3.googleusercontent.com/a/p.jpg",
		"iat":     testNow.Add(-5 * time.Minute).Unix(),
		"exp":     testNow.Add(55 * time.Minute).Unix(),
	}
}

// jwksServer はkeysを公開するJWKSエンドポイントを起動する。
// statusに200以外を設定するとそのステータスを返す。
type jwksServer struct {
	*httptest.Server
	status   atomic.Int32
	requests atomic.Int32
}

func newJWKSServer(t *testing.T, keys ...*testKey) *jwksServer {
	t.Helper()

	set := jose.JSONWebKeySet{}
	for _, k := range keys {
		set.Keys = append(set.Keys, jose.JSONWebKey{
			Key:       &k.priv.PublicKey,
			KeyID:     k.kid,
			Algorithm: string(jose.RS256),
			Use:       "sig",
		})
	}
	body, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("failed to marshal JWKS: %v", err)
	}

	s := &jwksServer{}
	s.status.Store(http.StatusOK)
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		if code := int(s.status.Load()); code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
	t.Cleanup(s.Close)
	return s
}
