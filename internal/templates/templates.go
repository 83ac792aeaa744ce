// Package templates создает каркас нового репозитория и файлы новых скриптов.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"go/format"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// VersionsPackage - имя Go-пакета каталога versions.
const VersionsPackage = "versions"

const (
	repositoryRoot = "repository"
	nativeScript   = "script/native.go.tmpl"
	templateExt    = ".tmpl"
)

//go:embed repository script
var files embed.FS

var funcs = template.FuncMap{"yaml": inlineYAML}

type RepositoryData struct {
	Name         string
	RepositoryID string
	VersionTable string
	RequiredDBs  []string
	Package      string
}

type ScriptData struct {
	Package     string
	Version     string
	Description string
}

// WriteRepository создает каталог dir и раскладывает в нем шаблон репозитория.
func WriteRepository(dir string, data RepositoryData) error {
	if data.Package == "" {
		data.Package = VersionsPackage
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return fs.WalkDir(files, repositoryRoot, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(name, repositoryRoot), "/")
		target := filepath.Join(dir, filepath.FromSlash(strings.TrimSuffix(rel, templateExt)))
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		out, err := render(name, data)
		if err != nil {
			return err
		}
		return os.WriteFile(target, out, 0o644)
	})
}

// NativeScript формирует текст нового Go-скрипта.
func NativeScript(data ScriptData) ([]byte, error) {
	data.Description = strings.Join(strings.Fields(data.Description), " ")
	out, err := render(nativeScript, data)
	if err != nil {
		return nil, err
	}
	return format.Source(out)
}

func render(name string, data any) ([]byte, error) {
	tmpl, err := template.New(path.Base(name)).Funcs(funcs).ParseFS(files, name)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// inlineYAML выводит значение в одну строку, списки в flow-стиле.
func inlineYAML(v any) (string, error) {
	var node yaml.Node
	if err := node.Encode(v); err != nil {
		return "", err
	}
	if node.Kind == yaml.SequenceNode || node.Kind == yaml.MappingNode {
		node.Style = yaml.FlowStyle
	}
	out, err := yaml.Marshal(&node)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
