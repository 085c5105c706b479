package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// maxCollisionSuffix bounds the " (n)" search in UniquePath.
const maxCollisionSuffix = 1000

// CopyFileVerified streams src to dst with SHA256 + size integrity verification.
// The source mode is preserved. Removes dst on mismatch.
func CopyFileVerified(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, srcInfo.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, dstHasher), io.TeeReader(in, srcHasher))
	if err != nil {
		_ = os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}

	if written != srcInfo.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return errors.New("copy hash mismatch: file corrupted during copy")
	}
	return nil
}

// UniquePath returns dir/name, or dir/"stem (n).ext" for the first n that
// does not exist yet.
func UniquePath(dir, name string) (string, error) {
	candidate := filepath.Join(dir, name)
	if _, err := os.Lstat(candidate); errors.Is(err, fs.ErrNotExist) {
		return candidate, nil
	} else if err != nil {
		return "", err
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; n <= maxCollisionSuffix; n++ {
		candidate = filepath.Join(dir, stem+" ("+strconv.Itoa(n)+")"+ext)
		if _, err := os.Lstat(candidate); errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		} else if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no free name for %q in %s", name, dir)
}

// removeFile is swapped in tests to simulate an unremovable source.
var removeFile = os.Remove

// MoveFile moves src into destDir keeping its base name (suffixed on
// collision) and returns the final path. A src that already lives in destDir
// is returned unchanged. Moves across filesystems fall back to a verified
// copy followed by removal of the source; if the source cannot be removed
// the copy is discarded so the file exists at exactly one path.
func MoveFile(src, destDir string) (string, error) {
	if sameDir(filepath.Dir(src), destDir) {
		return src, nil
	}
	target, err := UniquePath(destDir, filepath.Base(src))
	if err != nil {
		return "", err
	}
	err = os.Rename(src, target)
	if err == nil {
		return target, nil
	}
	if !errors.Is(err, unix.EXDEV) {
		return "", err
	}
	return copyThenRemove(src, target)
}

func copyThenRemove(src, target string) (string, error) {
	if err := CopyFileVerified(src, target); err != nil {
		return "", fmt.Errorf("cross-device copy: %w", err)
	}
	if err := removeFile(src); err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("remove source after copy: %w", err)
	}
	return target, nil
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	if absA == absB {
		return true
	}
	infoA, errA := os.Stat(absA)
	infoB, errB := os.Stat(absB)
	return errA == nil && errB == nil && os.SameFile(infoA, infoB)
}
