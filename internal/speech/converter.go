package speech

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// AudioConverter は音声フォーマット変換の外部コラボレータインターフェース。
// 変換ロジック自体はこのリポジトリのスコープ外で、実装は薄いラッパーに留める。
type AudioConverter interface {
	// Convert は入力フォーマットの音声データをWAVに変換する。
	Convert(ctx context.Context, audio []byte, inputFormat string) ([]byte, error)
}

// FFmpegConverter はffmpegコマンドを使用したAudioConverter実装。
type FFmpegConverter struct {
	binary string
}

// NewFFmpegConverter はFFmpegConverterを生成する。
// binaryが空の場合は "ffmpeg" を使用する。
func NewFFmpegConverter(binary string) *FFmpegConverter {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegConverter{binary: binary}
}

// Convert は標準入出力経由でffmpegを起動し、WAVに変換した結果を返す。
func (c *FFmpegConverter) Convert(ctx context.Context, audio []byte, inputFormat string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.binary,
		"-f", inputFormat,
		"-i", "pipe:0",
		"-f", "wav",
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(audio)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("音声フォーマット変換に失敗しました: %w: %s", err, stderr.String())
	}

	return stdout.Bytes(), nil
}

// NopConverter は変換を行わず入力をそのまま返すAudioConverter実装。
// 入力が既にWAVの場合やテスト時に使用する。
type NopConverter struct{}

// Convert は入力データをそのまま返す。
func (NopConverter) Convert(_ context.Context, audio []byte, _ string) ([]byte, error) {
	return audio, nil
}

// compile-time interface checks
var (
	_ AudioConverter = (*FFmpegConverter)(nil)
	_ AudioConverter = NopConverter{}
)
