package filesystem

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/GriffinCanCode/tenantfs/internal/shared/paths"
	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"
	"github.com/zeebo/blake3"
)

// newEntry builds a listing row from a stat result
func (ops *FilesystemOps) newEntry(p paths.SandboxedPath, info os.FileInfo) Entry {
	entry := Entry{
		Name:     info.Name(),
		Path:     p.Logical,
		Kind:     KindFile,
		Size:     info.Size(),
		Modified: info.ModTime(),
	}
	if info.IsDir() {
		entry.Kind = KindDirectory
		entry.Size = 0
		return entry
	}

	entry.Extension = strings.ToLower(strings.TrimPrefix(filepath.Ext(entry.Name), "."))
	entry.Editable = ops.isEditable(entry.Name)
	return entry
}

// isEditable checks the extension allow-list
func (ops *FilesystemOps) isEditable(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	return ext != "" && ops.editable[ext]
}

// detectMIME sniffs content, falling back to application/octet-stream
func detectMIME(data []byte) string {
	return mimetype.Detect(data).String()
}

// hasMIME reports whether m or one of its parents is want
func hasMIME(m *mimetype.MIME, want string) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is(want) {
			return true
		}
	}
	return false
}

// detectCharset detects the text encoding of data
func detectCharset(data []byte) string {
	if len(data) == 0 {
		return "utf-8"
	}
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

// checksum returns the hex BLAKE3 digest of data
func checksum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
