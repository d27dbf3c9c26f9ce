package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestIsAllowedImage(t *testing.T) {
	allowed := []string{"photo.jpg", "photo.JPEG", "cover.png", "anim.gif", "modern.webp"}
	for _, name := range allowed {
		if !isAllowedImage(name) {
			t.Fatalf("expected %s to be allowed", name)
		}
	}

	blocked := []string{"script.sh", "archive.zip", "noext", "double.jpg.exe"}
	for _, name := range blocked {
		if isAllowedImage(name) {
			t.Fatalf("expected %s to be blocked", name)
		}
	}
}

func TestSaveTempUploadWritesFile(t *testing.T) {
	gin.SetMode(gin.TestMode)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("avatar", "me.png")
	if err != nil {
		t.Fatalf("CreateFormFile returned error: %v", err)
	}
	if _, err := part.Write([]byte("fake png bytes")); err != nil {
		t.Fatalf("write part failed: %v", err)
	}
	_ = writer.Close()

	req := httptest.NewRequest("POST", "/register", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req

	tmpDir := t.TempDir()
	localPath, err := saveTempUpload(c, "avatar", tmpDir)
	if err != nil {
		t.Fatalf("saveTempUpload returned error: %v", err)
	}
	if !strings.HasPrefix(localPath, tmpDir) {
		t.Fatalf("expected file under %s, got %s", tmpDir, localPath)
	}
	if !strings.HasSuffix(localPath, ".png") {
		t.Fatalf("expected .png suffix, got %s", localPath)
	}

	content, err := os.ReadFile(localPath)
	if err != nil {
		t.Fatalf("reading saved file failed: %v", err)
	}
	if string(content) != "fake png bytes" {
		t.Fatalf("unexpected file content: %q", content)
	}
}

func TestSaveTempUploadMissingField(t *testing.T) {
	gin.SetMode(gin.TestMode)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	_ = writer.WriteField("fullName", "No Files Here")
	_ = writer.Close()

	req := httptest.NewRequest("POST", "/register", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req

	if _, err := saveTempUpload(c, "avatar", t.TempDir()); err != errNoFile {
		t.Fatalf("expected errNoFile, got %v", err)
	}
}

func TestSaveTempUploadRejectsBadExtension(t *testing.T) {
	gin.SetMode(gin.TestMode)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("avatar", "payload.exe")
	_, _ = part.Write([]byte("binary"))
	_ = writer.Close()

	req := httptest.NewRequest("POST", "/register", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req

	if _, err := saveTempUpload(c, "avatar", t.TempDir()); err == nil || err == errNoFile {
		t.Fatalf("expected extension rejection, got %v", err)
	}
}
