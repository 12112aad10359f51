package export

import (
	"archive/zip"
	"fmt"
	"io"
	"time"
)

// File is one output file of an export.
type File struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

// Artifact is the result of an export: one PNG per slide, or a single PDF.
type Artifact struct {
	Format    Format    `json:"format"`
	Files     []File    `json:"files"`
	CreatedAt time.Time `json:"createdAt"`
}

// File returns the file with the given name.
func (a *Artifact) File(name string) (File, bool) {
	for _, f := range a.Files {
		if f.Name == name {
			return f, true
		}
	}
	return File{}, false
}

// Size is the total number of bytes across all files.
func (a *Artifact) Size() int {
	n := 0
	for _, f := range a.Files {
		n += len(f.Data)
	}
	return n
}

// WriteZip bundles every file into a zip archive.
func (a *Artifact) WriteZip(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, f := range a.Files {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Store,
			Modified: a.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("zip %s: %w", f.Name, err)
		}
		if _, err := fw.Write(f.Data); err != nil {
			return fmt.Errorf("zip %s: %w", f.Name, err)
		}
	}
	return zw.Close()
}
