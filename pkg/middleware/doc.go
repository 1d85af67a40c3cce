// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// アクセスゲートによる保護ルートの認証、CORS、パニックリカバリ、
// Prometheusメトリクスの記録を含む。
package middleware
