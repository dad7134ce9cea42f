// Package security は外部入力と外部通信に関する安全対策を提供する。
// 応募記録に保存するリンクの検証、SSRF防止付きHTTPクライアント、
// メッセージに埋め込むユーザー入力テキストの無害化を含む。
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// MaxLinkLength は保存できるリンクの最大長。
const MaxLinkLength = 2048

// LinkGuard はリンク検証と安全なHTTPクライアント生成のインターフェース。
type LinkGuard interface {
	// ValidateLink はユーザーが入力した求人リンクを静的に検証する。
	// http/https以外のスキーム、認証情報付きURL、内部ネットワーク宛てのURLを拒否する。
	ValidateLink(rawURL string) error

	// NewSafeClient は接続先IPを検証するHTTPクライアントを生成する。
	// 送信ゲートウェイの外向き通信に使用する。
	NewSafeClient(timeout time.Duration) *http.Client
}

var allowedSchemes = []string{"http", "https"}

// blockedNetworks はリンク先として許可しないネットワーク範囲。
var blockedNetworks []net.IPNet

func init() {
	cidrs := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		// クラウドメタデータIP (169.254.169.254) を含む
		"169.254.0.0/16",
		"0.0.0.0/8",
		"::1/128",
		"fe80::/10",
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		blockedNetworks = append(blockedNetworks, *network)
	}
}

type linkGuard struct{}

// NewLinkGuard はLinkGuardを生成する。
func NewLinkGuard() LinkGuard {
	return linkGuard{}
}

// ValidateLink はリンクを検証する。DNS解決は行わない。
func (linkGuard) ValidateLink(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}
	if len(rawURL) > MaxLinkLength {
		return fmt.Errorf("URL exceeds %d characters", MaxLinkLength)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !isAllowedScheme(scheme) {
		return fmt.Errorf("disallowed scheme: %q (allowed: %v)", scheme, allowedSchemes)
	}
	if parsed.User != nil {
		return fmt.Errorf("URL must not contain credentials")
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}
	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("blocked IP address: %s", ip.String())
		}
		return nil
	}
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".localhost") {
		return fmt.Errorf("blocked host: %s", host)
	}
	return nil
}

// NewSafeClient はsafeurlでラップしたHTTPクライアントを返す。
// safeurlはDialerのControlフックで解決後のIPを検証するため、
// DNS再バインディングで内部ネットワークへ誘導されることもない。
func (linkGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

func isAllowedScheme(scheme string) bool {
	for _, allowed := range allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
