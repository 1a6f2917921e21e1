package executor

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
)

// SourceBundleName is the archive name framework containers unpack
const SourceBundleName = "sourcedir.tar.gz"

// PackageSourceDir writes dir as a gzipped tar to w. Paths in the archive are
// relative to dir and walked in lexical order.
func PackageSourceDir(fs afero.Fs, dir string, w io.Writer) error {
	info, err := fs.Stat(dir)
	if err != nil {
		return fmt.Errorf("failed to stat source dir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source dir %s is not a directory", dir)
	}

	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	err = afero.Walk(fs, dir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		header, err := tar.FileInfoHeader(fi, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if fi.IsDir() {
			header.Name += "/"
		}
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if !fi.Mode().IsRegular() {
			return nil
		}

		file, err := fs.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = io.Copy(tw, file)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to package %s: %w", dir, err)
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}
