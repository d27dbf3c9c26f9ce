package media

import (
	"context"
	"errors"
	"log"
	"os"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Uploader pushes local files to the media host and removes superseded
// assets. Profile images live on the host, only their URLs are stored.
type Uploader struct {
	cld *cloudinary.Cloudinary
}

func NewUploader(cloudName, apiKey, apiSecret string) (*Uploader, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	return &Uploader{cld: cld}, nil
}

// Upload sends the file at localPath to the media host and returns the hosted
// URL. The temp file is removed whether or not the upload succeeds.
func (u *Uploader) Upload(ctx context.Context, localPath string) (string, error) {
	if strings.TrimSpace(localPath) == "" {
		return "", errors.New("no file to upload")
	}
	defer func() {
		if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
			log.Println("[MEDIA] [ERROR] temp file cleanup failed:", err)
		}
	}()

	result, err := u.cld.Upload.Upload(ctx, localPath, uploader.UploadParams{
		ResourceType: "auto",
	})
	if err != nil {
		return "", err
	}
	return result.SecureURL, nil
}

// Delete removes a previously uploaded asset by its hosted URL. A blank URL
// is a no-op so callers can pass the old value unconditionally.
func (u *Uploader) Delete(ctx context.Context, hostedURL string) error {
	publicID := PublicIDFromURL(hostedURL)
	if publicID == "" {
		return nil
	}

	_, err := u.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		log.Println("[MEDIA] [ERROR] asset delete failed:", err)
	}
	return err
}

// PublicIDFromURL extracts the asset public id from a hosted delivery URL,
// which is the final path segment without its extension.
func PublicIDFromURL(hostedURL string) string {
	trimmed := strings.TrimSpace(hostedURL)
	if trimmed == "" {
		return ""
	}

	segment := path.Base(trimmed)
	if segment == "." || segment == "/" {
		return ""
	}
	return strings.TrimSuffix(segment, path.Ext(segment))
}
