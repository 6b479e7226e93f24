// Package model はドメインモデルを定義する。
package model

import "time"

// 文字数の上限。usersテーブルの列定義と一致させる。
const (
	MaxEmailLength = 320
	MaxNameLength  = 255
)

// User はサービス利用ユーザーを表す。
// PasswordHashはリポジトリ層と認証サービスの間でのみ扱い、APIレスポンスには含めない。
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser はクライアントに公開してよいユーザー情報。
type PublicUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Public はパスワードハッシュを除いた公開情報を返す。
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
	}
}

// Identity は検証済みベアラートークンから取り出した認証済みユーザーを表す。
// 保護された操作はすべてこの値を明示的な引数として受け取る。
type Identity struct {
	UserID string
	Email  string
}
