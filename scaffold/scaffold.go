// Package scaffold creates new folio sites from embedded template files.
package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"
	"time"
)

// Templates contains all scaffold template files.
// Files use Go text/template syntax; a .tmpl suffix is stripped on output.
//
//go:embed all:templates
var Templates embed.FS

const root = "templates"

// renamed maps template names that cannot be embedded or would be picked up
// by tooling under their real name.
var renamed = map[string]string{
	"dotenv":    ".env.example",
	"gitignore": ".gitignore",
}

// Data holds the template variables passed to every scaffold template.
type Data struct {
	ProjectName  string
	ModuleName   string
	SiteName     string
	Date         string
	FolioVersion string
}

// NewData derives the template variables from a project name, which may be
// a bare directory name or a module path.
func NewData(name, folioVersion string) Data {
	dir := name
	if i := strings.LastIndex(name, "/"); i >= 0 {
		dir = name[i+1:]
	}
	if folioVersion == "dev" {
		folioVersion = ""
	}
	return Data{
		ProjectName:  dir,
		ModuleName:   name,
		SiteName:     Title(dir),
		Date:         time.Now().Format("2006-01-02"),
		FolioVersion: folioVersion,
	}
}

// Generate writes a new project into parent/<ProjectName> and returns the
// project directory and the files it created. It refuses to touch an
// existing directory.
func Generate(parent string, data Data) (string, []string, error) {
	if data.ProjectName == "" {
		return "", nil, fmt.Errorf("scaffold: project name is required")
	}
	dir := filepath.Join(parent, data.ProjectName)
	if _, err := os.Stat(dir); err == nil {
		return dir, nil, fmt.Errorf("scaffold: directory %q already exists", dir)
	}

	var created []string
	err := fs.WalkDir(Templates, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
		out := filepath.Join(dir, filepath.FromSlash(outputName(rel)))
		if d.IsDir() {
			return os.MkdirAll(out, 0o755)
		}

		src, err := Templates.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		tmpl, err := template.New(path.Base(p)).Option("missingkey=error").Parse(string(src))
		if err != nil {
			return fmt.Errorf("parse template %s: %w", p, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return fmt.Errorf("execute template %s: %w", p, err)
		}
		if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		created = append(created, out)
		return nil
	})
	return dir, created, err
}

func outputName(rel string) string {
	rel = strings.TrimSuffix(rel, ".tmpl")
	dir, base := path.Split(rel)
	if r, ok := renamed[base]; ok {
		base = r
	}
	return dir + base
}

// Title converts a hyphenated or lowercase name to a title-case string,
// e.g. "my-blog" becomes "My Blog".
func Title(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '_' })
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
