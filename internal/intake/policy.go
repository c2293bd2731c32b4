package intake

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/dharsanguruparan/intake/internal/model"
)

var (
	DefaultExtensions = []string{".html", ".txt"}
	DefaultBlacklist  = []string{"index.html", "lapor.html", "tutorial.html"}
)

// Policy is the immutable set of rules applied to uploaded file names.
type Policy struct {
	extensions map[string]struct{}
	blacklist  map[string]struct{}
}

// NewPolicy builds a Policy. Extensions are normalized to a lower-case
// ".ext" form and blacklist entries are compared case-insensitively.
func NewPolicy(extensions, blacklist []string) Policy {
	p := Policy{
		extensions: make(map[string]struct{}, len(extensions)),
		blacklist:  make(map[string]struct{}, len(blacklist)),
	}
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		p.extensions[ext] = struct{}{}
	}
	for _, name := range blacklist {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			p.blacklist[name] = struct{}{}
		}
	}
	return p
}

// DefaultPolicy allows .html and .txt and protects the three system pages.
func DefaultPolicy() Policy {
	return NewPolicy(DefaultExtensions, DefaultBlacklist)
}

// Extension returns the lower-cased extension of name. Dot-files such as
// ".html" have no extension.
func Extension(name string) string {
	trimmed := strings.TrimLeft(name, ".")
	if !strings.Contains(trimmed, ".") {
		return ""
	}
	return strings.ToLower(filepath.Ext(trimmed))
}

// AllowsExtension reports whether name carries one of the allowed extensions.
func (p Policy) AllowsExtension(name string) bool {
	_, ok := p.extensions[Extension(name)]
	return ok
}

// Blacklisted reports whether name collides with a protected page.
func (p Policy) Blacklisted(name string) bool {
	_, ok := p.blacklist[strings.ToLower(name)]
	return ok
}

// Extensions returns the allowed extensions in sorted order.
func (p Policy) Extensions() []string {
	out := make([]string, 0, len(p.extensions))
	for ext := range p.extensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// CheckUpload validates an uploaded file name in the order the rules are
// reported to clients: extension first, then name safety, then blacklist.
func (p Policy) CheckUpload(name string) (model.UploadedFile, error) {
	ext := Extension(name)
	if _, ok := p.extensions[ext]; !ok {
		return model.UploadedFile{}, Reject(ReasonExtension, ext)
	}
	if !SafeName(name) {
		return model.UploadedFile{}, Reject(ReasonUnsafeName, name)
	}
	if p.Blacklisted(name) {
		return model.UploadedFile{}, Reject(ReasonBlacklisted, name)
	}
	return model.UploadedFile{OriginalName: name, Extension: ext}, nil
}

// SafeName reports whether name can be joined to a directory without
// escaping it.
func SafeName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return false
	}
	return filepath.Base(name) == name
}
