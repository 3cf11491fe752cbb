package filemgr

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"meridia/config"
	"meridia/utils"

	"github.com/disintegration/imaging"

	_ "image/gif"
	_ "image/png"
)

type EntityType string

const (
	EntityProduct EntityType = "product"
	EntityChat    EntityType = "chat"
	EntityUser    EntityType = "user"
)

const maxUploadSize = 10 << 20

var allowedMIMEs = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
}

var filenameRe = regexp.MustCompile(`[^\w.\-]`)

// SanitizeFilename removes potentially dangerous characters
func SanitizeFilename(name string) string {
	clean := filenameRe.ReplaceAllString(filepath.Base(name), "_")
	if clean == "" {
		return "file"
	}
	return clean
}

func uploadRoot() string {
	if config.C != nil && config.C.UploadDir != "" {
		return config.C.UploadDir
	}
	if dir := os.Getenv("UPLOAD_DIR"); dir != "" {
		return dir
	}
	return filepath.Join("static", "uploads")
}

func resolvePath(entity EntityType, subfolder string) string {
	return filepath.Join(uploadRoot(), strings.ToLower(string(entity)), subfolder)
}

// SaveFormFile stores one uploaded file under the entity's directory and
// returns the stored name. Non-image files (e.g. PDFs in chat) pass through
// untouched.
func SaveFormFile(form *multipart.Form, formKey string, entity EntityType, required bool) (string, error) {
	files := form.File[formKey]
	if len(files) == 0 {
		if required {
			return "", fmt.Errorf("missing required file: %s", formKey)
		}
		return "", nil
	}

	header := files[0]
	if header.Size > maxUploadSize {
		return "", fmt.Errorf("file %s exceeds size limit", header.Filename)
	}
	if mime := header.Header.Get("Content-Type"); !allowedMIMEs[mime] {
		return "", fmt.Errorf("unsupported file type %q", mime)
	}

	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", formKey, err)
	}
	defer file.Close()

	destDir := resolvePath(entity, "files")
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", destDir, err)
	}

	ext := filepath.Ext(header.Filename)
	name := utils.GenerateRandomString(16) + ext
	name = SanitizeFilename(name)

	out, err := os.Create(filepath.Join(destDir, name))
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return name, nil
}

// SaveImageWithThumb saves an original image plus a resized jpeg thumbnail
// and returns both stored names.
func SaveImageWithThumb(file multipart.File, header *multipart.FileHeader, entity EntityType, thumbWidth int) (string, string, error) {
	defer file.Close()

	buf, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		return "", "", fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(buf)) > maxUploadSize {
		return "", "", fmt.Errorf("file %s exceeds size limit", header.Filename)
	}

	img, _, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		return "", "", fmt.Errorf("failed to decode image %q: %w", header.Filename, err)
	}

	origDir := resolvePath(entity, "photo")
	if err := os.MkdirAll(origDir, 0o755); err != nil {
		return "", "", fmt.Errorf("mkdir %s: %w", origDir, err)
	}

	base := utils.GenerateRandomString(16)
	origName := SanitizeFilename(base + filepath.Ext(header.Filename))
	if err := os.WriteFile(filepath.Join(origDir, origName), buf, 0o644); err != nil {
		return "", "", fmt.Errorf("failed to save original image: %w", err)
	}

	thumbImg := imaging.Resize(img, thumbWidth, 0, imaging.Lanczos) // maintain aspect ratio
	thumbDir := resolvePath(entity, "thumb")
	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		return origName, "", fmt.Errorf("mkdir %s: %w", thumbDir, err)
	}

	thumbName := base + ".jpg"
	out, err := os.Create(filepath.Join(thumbDir, thumbName))
	if err != nil {
		return origName, "", fmt.Errorf("create thumbnail: %w", err)
	}
	defer out.Close()

	if err := jpeg.Encode(out, thumbImg, &jpeg.Options{Quality: 85}); err != nil {
		return origName, "", fmt.Errorf("encode thumbnail: %w", err)
	}

	return origName, thumbName, nil
}
