package pdfresolver_test

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yusufsyaifudin/pdfmailer/internal/svc/pdfresolver"
)

// countingFS counts directory listing so test can assert that exact match never scan.
type countingFS struct {
	fstest.MapFS
	readDir int
}

func (c *countingFS) ReadDir(name string) ([]fs.DirEntry, error) {
	c.readDir++
	return c.MapFS.ReadDir(name)
}

func newResolver(fsys fs.FS) *pdfresolver.DirResolver {
	return pdfresolver.New(pdfresolver.WithFS(func(string) fs.FS { return fsys }))
}

func file() *fstest.MapFile {
	return &fstest.MapFile{Data: []byte("%PDF"), Mode: 0o644}
}

func TestResolve_ExactMatchWithoutScan(t *testing.T) {
	fsys := &countingFS{MapFS: fstest.MapFS{
		"ABCDE1234F.pdf":     file(),
		"ABCDE1234F-old.pdf": file(),
	}}

	match, err := newResolver(fsys).Resolve(context.Background(), " ABCDE1234F ", "/data/pdfs", pdfresolver.SourcePrimary)
	require.NoError(t, err)
	assert.Equal(t, pdfresolver.Match{
		Source:   pdfresolver.SourcePrimary,
		Filename: "ABCDE1234F.pdf",
		FullPath: filepath.Join("/data/pdfs", "ABCDE1234F.pdf"),
	}, match)
	assert.Equal(t, 0, fsys.readDir)
}

func TestResolve_Fuzzy(t *testing.T) {
	testCases := []struct {
		name       string
		files      []string
		identifier string
		want       string
	}{
		{name: "case insensitive equality", files: []string{"abcde1234f.pdf"}, identifier: "ABCDE1234F", want: "abcde1234f.pdf"},
		{name: "file contains identifier", files: []string{"2023_ABCDE1234F_form16.pdf"}, identifier: "abcde1234f", want: "2023_ABCDE1234F_form16.pdf"},
		{name: "identifier contains file (truncated file name)", files: []string{"ABCDE12.pdf"}, identifier: "ABCDE1234F", want: "ABCDE12.pdf"},
		{name: "identifier is file name with extension", files: []string{"report.pdf"}, identifier: "report.pdf", want: "report.pdf"},
		{name: "non pdf file is candidate too", files: []string{"ABCDE1234F.PDF"}, identifier: "abcde1234f", want: "ABCDE1234F.PDF"},
		{name: "first in sorted order wins", files: []string{"b-XYZ.pdf", "a-XYZ.pdf", "c-XYZ.pdf"}, identifier: "xyz", want: "a-XYZ.pdf"},
		{name: "file with empty stem never wins", files: []string{".pdf", "a-XYZ.pdf"}, identifier: "xyz", want: "a-XYZ.pdf"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fsys := &countingFS{MapFS: fstest.MapFS{}}
			for _, f := range tc.files {
				fsys.MapFS[f] = file()
			}

			match, err := newResolver(fsys).Resolve(context.Background(), tc.identifier, "dir", pdfresolver.SourceSecondary)
			require.NoError(t, err)
			assert.Equal(t, tc.want, match.Filename)
			assert.Equal(t, pdfresolver.SourceSecondary, match.Source)
			assert.Equal(t, filepath.Join("dir", tc.want), match.FullPath)
		})
	}
}

func TestResolve_NotFound(t *testing.T) {
	t.Run("no candidate", func(t *testing.T) {
		fsys := &countingFS{MapFS: fstest.MapFS{"OTHER.pdf": file()}}

		_, err := newResolver(fsys).Resolve(context.Background(), "ABCDE1234F", "dir", pdfresolver.SourcePrimary)
		assert.ErrorIs(t, err, pdfresolver.ErrNotFound)
		assert.Equal(t, 1, fsys.readDir)
	})

	t.Run("file with empty stem matches nothing", func(t *testing.T) {
		fsys := &countingFS{MapFS: fstest.MapFS{".pdf": file()}}

		_, err := newResolver(fsys).Resolve(context.Background(), "ABCDE1234F", "dir", pdfresolver.SourcePrimary)
		assert.ErrorIs(t, err, pdfresolver.ErrNotFound)
	})

	t.Run("sub directory is skipped", func(t *testing.T) {
		fsys := &countingFS{MapFS: fstest.MapFS{"ABCDE1234F/inner.pdf": file()}}

		_, err := newResolver(fsys).Resolve(context.Background(), "ABCDE1234F", "dir", pdfresolver.SourcePrimary)
		assert.ErrorIs(t, err, pdfresolver.ErrNotFound)
	})

	t.Run("directory does not exist", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "missing")

		_, err := pdfresolver.New().Resolve(context.Background(), "ABCDE1234F", dir, pdfresolver.SourcePrimary)
		assert.ErrorIs(t, err, pdfresolver.ErrNotFound)
	})

	t.Run("identifier cannot escape directory", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, "secret.pdf"), []byte("x"), 0o600))
		dir := filepath.Join(root, "pdfs")
		require.NoError(t, os.Mkdir(dir, 0o700))

		_, err := pdfresolver.New().Resolve(context.Background(), "../secret", dir, pdfresolver.SourcePrimary)
		assert.ErrorIs(t, err, pdfresolver.ErrNotFound)
	})
}

func TestResolve_BlankIdentifier(t *testing.T) {
	fsys := &countingFS{MapFS: fstest.MapFS{"a.pdf": file()}}

	_, err := newResolver(fsys).Resolve(context.Background(), "   ", "dir", pdfresolver.SourcePrimary)
	assert.ErrorIs(t, err, pdfresolver.ErrNoIdentifier)
	assert.Equal(t, 0, fsys.readDir)
}

func TestResolve_RealDirectoryNoCaching(t *testing.T) {
	dir := t.TempDir()
	r := pdfresolver.New()

	_, err := r.Resolve(context.Background(), "NEW1", dir, pdfresolver.SourcePrimary)
	assert.ErrorIs(t, err, pdfresolver.ErrNotFound)

	// file appears between two lookups
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2024-NEW1.pdf"), []byte("%PDF"), 0o600))

	match, err := r.Resolve(context.Background(), "NEW1", dir, pdfresolver.SourcePrimary)
	require.NoError(t, err)
	assert.Equal(t, "2024-NEW1.pdf", match.Filename)
}
