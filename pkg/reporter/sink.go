package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Sink 每次抓取得到的 exposition 文本的去向
type Sink interface {
	Write(text string) error
}

// NewSink "stdout" 输出到标准输出，其余按文件路径处理
func NewSink(output string) Sink {
	if output == "" || output == "stdout" {
		return &writerSink{w: os.Stdout}
	}
	return &fileSink{path: output}
}

// writerSink 追加写入任意 io.Writer
type writerSink struct {
	w io.Writer
}

func (s *writerSink) Write(text string) error {
	_, err := io.WriteString(s.w, text)
	return err
}

// fileSink 每次整体替换文件内容（先写临时文件再 rename），读取方不会看到半截内容
type fileSink struct {
	path string
}

func (s *fileSink) Write(text string) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
