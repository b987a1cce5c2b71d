// Package storage はサンプル音声のローカルファイル保存を提供する。
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ファイル・ディレクトリのパーミッション。
const (
	filePermissions = 0o600
	dirPermissions  = 0o750
)

// SampleStore はサンプル音声ファイルの保存と削除を管理する。
// ルートディレクトリ配下にユーザーごとのサブディレクトリを作成し、
// ファイル名は "{userID}_{ランダムトークン}.wav" の形式で生成する。
type SampleStore struct {
	rootDir string
}

// NewSampleStore はSampleStoreを生成する。
// ルートディレクトリが存在しない場合は作成する。
func NewSampleStore(rootDir string) (*SampleStore, error) {
	if rootDir == "" {
		return nil, fmt.Errorf("storage root directory is empty")
	}
	if err := os.MkdirAll(rootDir, dirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &SampleStore{rootDir: rootDir}, nil
}

// Save はサンプル音声をユーザーのサブディレクトリに保存し、
// 保存先のパスを返す。ファイル名にはUUIDを含むため衝突は実質発生しない。
func (s *SampleStore) Save(userID int64, audio []byte) (string, error) {
	userDir := filepath.Join(s.rootDir, fmt.Sprintf("%d", userID))
	if err := os.MkdirAll(userDir, dirPermissions); err != nil {
		return "", fmt.Errorf("failed to create user directory: %w", err)
	}

	filename := fmt.Sprintf("%d_%s.wav", userID, uuid.New().String())
	path := filepath.Join(userDir, filename)

	if err := os.WriteFile(path, audio, filePermissions); err != nil {
		return "", fmt.Errorf("failed to write sample audio: %w", err)
	}

	return path, nil
}

// Remove は保存済みのサンプル音声を削除する。
// ファイルが存在しない場合はエラーにしない（冪等）。
func (s *SampleStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove sample audio: %w", err)
	}
	return nil
}
