package build

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

func joinSlash(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}

func fileExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}

func writeFile(dest string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	defer in.Close()
	return copyReader(in, dest)
}

func copyFS(fsys fs.FS, name, dest string) error {
	in, err := fsys.Open(name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	defer in.Close()
	return copyReader(in, dest)
}

func copyReader(in io.Reader, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}
