package cache

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/Luismorlan/honeybee/utils"
	"github.com/pkg/errors"
)

const (
	TmpFileDirPrefix = "_tmp_cache_store_"
)

// LocalFileStore keeps each record as a file in one folder. Writes go through
// a temp file and a rename so readers never see half a corpus.
type LocalFileStore struct {
	folderName string
}

func NewLocalFileStore(bucket string) (*LocalFileStore, error) {
	folderName, err := CreateFolder(bucket)
	if err != nil {
		return nil, err
	}
	return &LocalFileStore{folderName: folderName}, nil
}

// CreateFolder creates the store folder. An absolute bucket is used as-is,
// otherwise the folder is created in the working directory with a prefix.
func CreateFolder(bucket string) (string, error) {
	folderName := bucket
	if !filepath.IsAbs(bucket) {
		folderName = TmpFileDirPrefix + bucket
	}
	err := os.MkdirAll(folderName, os.ModePerm)
	if err != nil && strings.Contains(err.Error(), "file exists") {
		return folderName, nil
	}
	return folderName, err
}

func (s *LocalFileStore) CleanUp() {
	os.RemoveAll(s.folderName)
}

func (s *LocalFileStore) path(key string) (string, error) {
	name, err := utils.TextToMd5Hash(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.folderName, name+".json"), nil
}

func (s *LocalFileStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, false, err
	}
	body, err := ioutil.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(ErrStoreUnavailable, err.Error())
	}
	return body, true, nil
}

func (s *LocalFileStore) Set(ctx context.Context, key string, value []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	tmp, err := ioutil.TempFile(s.folderName, "write-*")
	if err != nil {
		return errors.Wrap(ErrStoreUnavailable, err.Error())
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return errors.Wrap(ErrStoreUnavailable, err.Error())
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(ErrStoreUnavailable, err.Error())
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return errors.Wrap(ErrStoreUnavailable, err.Error())
	}
	return nil
}

func (s *LocalFileStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(ErrStoreUnavailable, err.Error())
	}
	return nil
}
