// Package auth はshiftkeeperの認証コアを提供する。
//
// 3つの部品で構成される。
//
//   - Hasher: パスワードのbcryptハッシュ化と照合（資格情報ストア）
//   - TokenService: HS256署名付きセッショントークンの発行と検証
//   - Gate: Authorizationヘッダーから認証済みの利用者を解決するアクセスゲート
//
// いずれもリクエスト間で可変状態を共有しない。署名鍵は起動時に一度だけ注入され、
// 以後は読み取り専用として並行に参照される。
package auth
