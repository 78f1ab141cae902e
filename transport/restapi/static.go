package restapi

import (
	"io/fs"
	"net/http"
)

// filesOnly serves regular files by name only. Opening a directory reports fs.ErrNotExist,
// so http.FileServer answers 404 instead of rendering its index.
type filesOnly struct {
	http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.FileSystem.Open(name)
	if err != nil {
		return nil, err
	}

	stat, err := file.Stat()
	if err != nil || stat.IsDir() {
		_ = file.Close()
		return nil, fs.ErrNotExist
	}

	return file, nil
}
