package crawler

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Crawler scans a directory for Python source files.
type Crawler struct {
	include []string
	exclude []string
	ignored []string
}

// NewCrawler creates a new crawler instance. Include and exclude are glob
// patterns matched against paths relative to the scan root; an empty include
// list accepts every .py and .pyi file.
func NewCrawler(include, exclude []string) *Crawler {
	return &Crawler{
		include: include,
		exclude: exclude,
		ignored: []string{".git", ".venv", "venv", "node_modules", "__pycache__"},
	}
}

// SourceFile is one discovered file with its contents.
type SourceFile struct {
	Path string
	Src  []byte
}

// ScanProject walks the root directory and streams every matching source
// file through onFile, preventing large memory buildup.
func (c *Crawler) ScanProject(root string, onFile func(SourceFile)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip ignored directories
		if d.IsDir() {
			for _, ign := range c.ignored {
				if d.Name() == ign {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if !strings.HasSuffix(d.Name(), ".py") && !strings.HasSuffix(d.Name(), ".pyi") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		if !c.matches(rel) {
			return nil
		}

		src, err := os.ReadFile(path)
		if err != nil {
			// Log and continue instead of failing the whole scan
			return nil
		}

		onFile(SourceFile{Path: path, Src: src})
		return nil
	})
}

func (c *Crawler) matches(rel string) bool {
	for _, pat := range c.exclude {
		if ok, _ := filepath.Match(pat, rel); ok {
			return false
		}
		if ok, _ := filepath.Match(pat, filepath.Base(rel)); ok {
			return false
		}
	}
	if len(c.include) == 0 {
		return true
	}
	for _, pat := range c.include {
		if ok, _ := filepath.Match(pat, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pat, filepath.Base(rel)); ok {
			return true
		}
	}
	return false
}
