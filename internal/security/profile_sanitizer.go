package security

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ProfileSanitizerService はクライアント申告のプロフィール値を保存前に正規化する。
type ProfileSanitizerService interface {
	// SanitizeName は表示名からHTMLを除去し、空白を1つにまとめる。
	SanitizeName(name string) string

	// ValidatePicture はプロフィール画像の参照を検証する。
	// 相対パスはそのまま許可し、絶対URLはSSRFガードで検証する。
	ValidatePicture(picture string) error
}

// profileSanitizer はProfileSanitizerServiceの実装。
type profileSanitizer struct {
	policy *bluemonday.Policy
	guard  SSRFGuardService
}

// NewProfileSanitizer はProfileSanitizerServiceを生成する。
// 表示名にはbluemondayのStrictPolicy（全タグ除去）を適用する。
func NewProfileSanitizer(guard SSRFGuardService) *profileSanitizer {
	return &profileSanitizer{
		policy: bluemonday.StrictPolicy(),
		guard:  guard,
	}
}

var angleBrackets = strings.NewReplacer("<", "", ">", "")

// SanitizeName は表示名からタグを除去する。
// エンティティは元の文字に戻すが、戻した結果の山括弧は残さない。
func (s *profileSanitizer) SanitizeName(name string) string {
	cleaned := html.UnescapeString(s.policy.Sanitize(name))
	cleaned = angleBrackets.Replace(cleaned)
	return strings.Join(strings.Fields(cleaned), " ")
}

// ValidatePicture はプロフィール画像の参照を検証する。
func (s *profileSanitizer) ValidatePicture(picture string) error {
	if picture == "" {
		return nil
	}
	parsed, err := url.Parse(picture)
	if err != nil {
		return err
	}
	if !parsed.IsAbs() && parsed.Host == "" {
		return nil
	}
	return s.guard.ValidateURL(picture)
}
