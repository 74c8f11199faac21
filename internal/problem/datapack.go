package problem

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	"vexoj/internal/common/storage"
	"vexoj/internal/judge"
	appErr "vexoj/pkg/errors"
)

const (
	readyMarkerName = "ready"
	tempPackName    = "pack.tmp"
	testsDirName    = "tests"
	inputExt        = ".in"
	answerExt       = ".ans"
)

// DataPackManager fetches problem test data packs from object storage
// and caches them extracted on local disk. Packs are zstd-compressed
// tarballs holding tests/<ordinal>.in and tests/<ordinal>.ans files.
type DataPackManager struct {
	rootDir string
	bucket  string
	storage storage.ObjectStorage

	mu       sync.Mutex
	inflight map[string]*sync.Mutex
}

func NewDataPackManager(rootDir, bucket string, store storage.ObjectStorage) *DataPackManager {
	return &DataPackManager{
		rootDir:  rootDir,
		bucket:   bucket,
		storage:  store,
		inflight: make(map[string]*sync.Mutex),
	}
}

// packKey is the object storage key for one pack version.
func packKey(problemID, version string) string {
	return fmt.Sprintf("packs/%s/%s.tar.zst", problemID, version)
}

// LoadTests returns the test cases for a problem version, fetching and
// extracting the pack on first use.
func (m *DataPackManager) LoadTests(ctx context.Context, problemID, version string) ([]judge.TestCase, error) {
	if problemID == "" || version == "" {
		return nil, appErr.ValidationError("problem_id", "problem id and data version are required")
	}

	dir, err := m.ensurePack(ctx, problemID, version)
	if err != nil {
		return nil, err
	}
	return readTests(filepath.Join(dir, testsDirName))
}

func (m *DataPackManager) ensurePack(ctx context.Context, problemID, version string) (string, error) {
	dir := filepath.Join(m.rootDir, problemID, version)

	// Serialize concurrent fetches of the same pack version.
	lock := m.packLock(problemID + ":" + version)
	lock.Lock()
	defer lock.Unlock()

	if _, err := os.Stat(filepath.Join(dir, readyMarkerName)); err == nil {
		return dir, nil
	}

	if err := os.RemoveAll(dir); err != nil {
		return "", appErr.Wrapf(err, appErr.StorageError, "clean pack dir %s", dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", appErr.Wrapf(err, appErr.StorageError, "create pack dir %s", dir)
	}

	tempPath := filepath.Join(dir, tempPackName)
	if err := m.download(ctx, packKey(problemID, version), tempPath); err != nil {
		return "", err
	}
	if err := extractPack(tempPath, dir); err != nil {
		return "", err
	}
	_ = os.Remove(tempPath)

	if err := os.WriteFile(filepath.Join(dir, readyMarkerName), nil, 0644); err != nil {
		return "", appErr.Wrapf(err, appErr.StorageError, "write ready marker")
	}
	return dir, nil
}

func (m *DataPackManager) packLock(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.inflight[key]
	if !ok {
		lock = &sync.Mutex{}
		m.inflight[key] = lock
	}
	return lock
}

func (m *DataPackManager) download(ctx context.Context, objectKey, dstPath string) error {
	reader, err := m.storage.GetObject(ctx, m.bucket, objectKey)
	if err != nil {
		return appErr.Wrapf(err, appErr.DataPackMissing, "fetch pack %s", objectKey)
	}
	defer reader.Close()

	file, err := os.Create(dstPath)
	if err != nil {
		return appErr.Wrapf(err, appErr.StorageError, "create pack file %s", dstPath)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return appErr.Wrapf(err, appErr.StorageError, "write pack file %s", dstPath)
	}
	return nil
}

func extractPack(srcPath, dstDir string) error {
	file, err := os.Open(srcPath)
	if err != nil {
		return appErr.Wrapf(err, appErr.DataPackInvalid, "open pack")
	}
	defer file.Close()

	zstdReader, err := zstd.NewReader(file)
	if err != nil {
		return appErr.Wrapf(err, appErr.DataPackInvalid, "create zstd reader")
	}
	defer zstdReader.Close()

	tr := tar.NewReader(zstdReader)
	cleanRoot := filepath.Clean(dstDir)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return appErr.Wrapf(err, appErr.DataPackInvalid, "read tar entry")
		}
		if hdr.Name == "" {
			continue
		}
		cleanName := filepath.Clean(hdr.Name)
		if strings.HasPrefix(cleanName, "..") || filepath.IsAbs(cleanName) {
			return appErr.New(appErr.DataPackInvalid).WithMessage("invalid tar entry path")
		}
		target := filepath.Join(dstDir, cleanName)
		if !strings.HasPrefix(target, cleanRoot+string(filepath.Separator)) {
			return appErr.New(appErr.DataPackInvalid).WithMessage("tar entry escape detected")
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return appErr.Wrapf(err, appErr.DataPackInvalid, "create dir")
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return appErr.Wrapf(err, appErr.DataPackInvalid, "create parent dir")
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fs.FileMode(hdr.Mode))
			if err != nil {
				return appErr.Wrapf(err, appErr.DataPackInvalid, "create file")
			}
			if _, err := io.Copy(out, tr); err != nil {
				_ = out.Close()
				return appErr.Wrapf(err, appErr.DataPackInvalid, "write file")
			}
			_ = out.Close()
		default:
			// skip other types
		}
	}
	return nil
}

// readTests loads <ordinal>.in/<ordinal>.ans pairs sorted by ordinal.
func readTests(dir string) ([]judge.TestCase, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DataPackInvalid, "read tests dir %s", dir)
	}

	var ordinals []int
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, inputExt) {
			continue
		}
		ordinal, err := strconv.Atoi(strings.TrimSuffix(name, inputExt))
		if err != nil {
			continue
		}
		ordinals = append(ordinals, ordinal)
	}
	sort.Ints(ordinals)

	if len(ordinals) == 0 {
		return nil, appErr.New(appErr.DataPackInvalid).WithMessage("data pack contains no tests")
	}

	tests := make([]judge.TestCase, 0, len(ordinals))
	for _, ordinal := range ordinals {
		base := strconv.Itoa(ordinal)
		input, err := os.ReadFile(filepath.Join(dir, base+inputExt))
		if err != nil {
			return nil, appErr.Wrapf(err, appErr.DataPackInvalid, "read test %d input", ordinal)
		}
		answer, err := os.ReadFile(filepath.Join(dir, base+answerExt))
		if err != nil {
			return nil, appErr.Wrapf(err, appErr.DataPackInvalid, "read test %d answer", ordinal)
		}
		tests = append(tests, judge.TestCase{
			ID:       ordinal,
			Input:    string(input),
			Expected: string(answer),
		})
	}
	return tests, nil
}
