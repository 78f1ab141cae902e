package pdfresolver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yusufsyaifudin/pdfmailer/pkg/tracer"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const pdfExt = ".pdf"

var (
	// ErrNotFound no file matches the identifier, or the directory cannot be read.
	ErrNotFound = errors.New("no matching document found")

	// ErrNoIdentifier is returned for blank identifier, it means "not provided" rather than a failed lookup.
	ErrNoIdentifier = errors.New("identifier not provided")
)

type Source string

const (
	SourcePrimary   Source = "primary"
	SourceSecondary Source = "secondary"
)

// Match is the resolved file of one identifier.
type Match struct {
	Source   Source
	Filename string
	FullPath string
}

// Resolver finds the pdf file of an identifier inside a directory.
type Resolver interface {
	Resolve(ctx context.Context, identifier, directory string, source Source) (Match, error)
}

// FS open directory as filesystem. Default is os.DirFS.
type FS func(directory string) fs.FS

type DirResolver struct {
	openFS FS
}

var _ Resolver = (*DirResolver)(nil)

type Option func(*DirResolver)

// WithFS replace the way directory is opened, mostly for tests.
func WithFS(openFS FS) Option {
	return func(r *DirResolver) {
		if openFS != nil {
			r.openFS = openFS
		}
	}
}

func New(opts ...Option) *DirResolver {
	r := &DirResolver{
		openFS: os.DirFS,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve tries, in order, exact "{identifier}.pdf" and then a case-insensitive scan
// over the lexicographically sorted directory listing where the file stem equals, contains,
// or is contained by the identifier. The scan is never cached.
func (r *DirResolver) Resolve(ctx context.Context, identifier, directory string, source Source) (match Match, err error) {
	var span trace.Span
	ctx, span = tracer.StartSpan(ctx, "pdfresolver.Resolve")
	defer span.End()

	identifier = strings.TrimSpace(identifier)
	span.SetAttributes(
		attribute.String("identifier", identifier),
		attribute.String("source", string(source)),
	)

	if identifier == "" {
		err = ErrNoIdentifier
		return
	}

	dirFS := r.openFS(directory)

	// ** Strategy 1: exact
	// identifier must stay inside directory, never walk into sub or parent dir
	exactName := identifier + pdfExt
	if !strings.ContainsAny(exactName, `/\`) && fs.ValidPath(exactName) {
		stat, statErr := fs.Stat(dirFS, exactName)
		if statErr == nil && !stat.IsDir() {
			match = newMatch(source, directory, exactName)
			return
		}
	}

	// ** Strategy 2: scan
	entries, readErr := fs.ReadDir(dirFS, ".")
	if readErr != nil {
		err = fmt.Errorf("%w: identifier '%s' in %s: %s", ErrNotFound, identifier, directory, readErr)
		return
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		names = append(names, entry.Name())
	}

	// fs.ReadDir already sorts by name, keep it explicit since ordering decides the winner
	sort.Strings(names)

	needle := strings.ToLower(identifier)
	for _, name := range names {
		if matchName(name, needle) {
			match = newMatch(source, directory, name)
			return
		}
	}

	err = fmt.Errorf("%w: identifier '%s' in %s", ErrNotFound, identifier, directory)
	return
}

// matchName compare lower-cased identifier against file name without its first ".pdf".
func matchName(fileName, needle string) bool {
	stem := strings.ToLower(strings.Replace(fileName, pdfExt, "", 1))
	// bare ".pdf" is contained in every identifier
	if stem == "" {
		return false
	}

	return stem == needle ||
		strings.Contains(stem, needle) ||
		strings.Contains(needle, stem)
}

func newMatch(source Source, directory, name string) Match {
	return Match{
		Source:   source,
		Filename: name,
		FullPath: filepath.Join(directory, name),
	}
}
