// Package upload はアバター画像や証明書類のオブジェクトストレージへの
// アップロードを提供する。
//
// ストレージはS3互換API（Cloudflare R2を含む）で、エンドポイントの
// 上書きによりどのS3互換サービスでも利用できる。
package upload
