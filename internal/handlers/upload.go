package handlers

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var errNoFile = errors.New("no file in request")

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

func isAllowedImage(filename string) bool {
	return allowedImageExts[strings.ToLower(filepath.Ext(filename))]
}

// saveTempUpload stores the named multipart file under tmpDir with a random
// name and returns the local path. The caller hands the path to the media
// uploader, which removes the temp file after the upload attempt.
func saveTempUpload(c *gin.Context, field, tmpDir string) (string, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return "", errNoFile
	}

	if !isAllowedImage(file.Filename) {
		return "", fmt.Errorf("unsupported file type: %s", filepath.Ext(file.Filename))
	}

	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", err
	}

	localPath := filepath.Join(tmpDir, uuid.NewString()+strings.ToLower(filepath.Ext(file.Filename)))
	if err := c.SaveUploadedFile(file, localPath); err != nil {
		return "", err
	}
	return localPath, nil
}
