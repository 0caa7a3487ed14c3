package manifest

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/api"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// ManifestFileName is the packer manifest at the root of the sources
const ManifestFileName = ".packer.yml"

const includeKey = "include"

var (
	// ErrManifestMissing is returned if the sources have no .packer.yml at their root
	ErrManifestMissing = errors.New("file .packer.yml not found")

	// ErrInvalidManifest is returned if a manifest isn't a yaml mapping or has a malformed include list
	ErrInvalidManifest = errors.New("invalid packer manifest")
)

// Manifest maps distro names to their build configuration
type Manifest map[string]api.BuildConfig

// Distros returns the distro names in lexical order
func (m Manifest) Distros() []string {
	distros := make([]string, 0, len(m))
	for distro := range m {
		distros = append(distros, distro)
	}
	sort.Strings(distros)
	return distros
}

// Resolve reads the manifest at the root of sourceDir and calls fn for every manifest it resolves to.
// A manifest with an include list expands each glob against sourceDir, in the listed order, and calls fn for every
// matching file with its directory relative to sourceDir; any other manifest is passed as is with root folder ".".
// An error returned by fn stops resolution and is returned.
func Resolve(sourceDir string, fn func(m Manifest, rootFolder string) error) error {
	doc, err := readDocument(filepath.Join(sourceDir, ManifestFileName))
	if os.IsNotExist(errors.Cause(err)) {
		return errors.Wrapf(ErrManifestMissing, "in %v", sourceDir)
	}
	if err != nil {
		return err
	}

	includes, ok := doc[includeKey]
	if !ok {
		m, err := toManifest(doc)
		if err != nil {
			return errors.Wrap(err, ManifestFileName)
		}
		return fn(m, ".")
	}

	patterns, err := includePatterns(includes)
	if err != nil {
		return err
	}

	fsys := os.DirFS(sourceDir)
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return errors.Wrapf(ErrInvalidManifest, "include %q: %v", pattern, err)
		}
		sort.Strings(matches)

		for _, match := range matches {
			// ** matches zero directories, so the including manifest itself can match
			if match == ManifestFileName {
				continue
			}

			info, err := fs.Stat(fsys, match)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}

			doc, err := readDocument(filepath.Join(sourceDir, filepath.FromSlash(match)))
			if err != nil {
				return err
			}
			m, err := toManifest(doc)
			if err != nil {
				return errors.Wrap(err, match)
			}

			err = fn(m, RootFolder(match))
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// RootFolder returns the directory of an included manifest relative to the sources, "" for the sources root
func RootFolder(match string) string {
	dir := path.Dir(strings.Trim(filepath.ToSlash(match), "/"))
	if dir == "." {
		return ""
	}
	return dir
}

func readDocument(fileName string) (map[interface{}]interface{}, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %v", fileName)
	}

	var doc map[interface{}]interface{}
	err = yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidManifest, "%v: %v", fileName, err)
	}
	if doc == nil {
		return nil, errors.Wrapf(ErrInvalidManifest, "%v is empty", fileName)
	}

	return doc, nil
}

func includePatterns(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case string:
		return []string{cleanPattern(v)}, nil
	case []interface{}:
		patterns := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, errors.Wrapf(ErrInvalidManifest, "include entry %v is not a string", item)
			}
			patterns = append(patterns, cleanPattern(s))
		}
		return patterns, nil
	case nil:
		return nil, nil
	}

	return nil, errors.Wrapf(ErrInvalidManifest, "include has to be a list of globs")
}

// cleanPattern makes a glob relative to the sources root, as io/fs paths can't start with / or ./
func cleanPattern(pattern string) string {
	pattern = filepath.ToSlash(pattern)
	for strings.HasPrefix(pattern, "./") {
		pattern = strings.TrimPrefix(pattern, "./")
	}
	return strings.TrimLeft(pattern, "/")
}

func toManifest(doc map[interface{}]interface{}) (Manifest, error) {
	m := make(Manifest, len(doc))
	for distro, value := range api.CleanUpInterfaceMap(doc) {
		switch v := value.(type) {
		case map[string]interface{}:
			m[distro] = api.BuildConfig(v)
		case nil:
			// an entry without settings has no type and fails at dispatch
			m[distro] = api.BuildConfig{}
		default:
			return nil, errors.Wrapf(ErrInvalidManifest, "entry %v is not a mapping", distro)
		}
	}
	return m, nil
}
