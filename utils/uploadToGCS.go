package utils

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"github.com/disintegration/imaging"
	"google.golang.org/api/option"
)

const maxReceiptWidth = 1280

var (
	gcsClient     *storage.Client
	gcsClientOnce sync.Once
	gcsClientErr  error
)

func getGoogleClient(ctx context.Context) (*storage.Client, error) {
	gcsClientOnce.Do(func() {
		credsJSON := os.Getenv("GOOGLE_CREDENTIALS_JSON")
		if credsJSON != "" {
			gcsClient, gcsClientErr = storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credsJSON)))
			return
		}
		// Application default credentials (Cloud Run service account).
		gcsClient, gcsClientErr = storage.NewClient(ctx)
	})
	return gcsClient, gcsClientErr
}

func getBucketName() string {
	bucket := os.Getenv("GCS_BUCKET")
	if bucket == "" {
		bucket = "pos-receipt-images"
	}
	return bucket
}

// SaveReceiptImage decodes a base64 data-URI image, downscales it and writes
// it to GCS. Returns the object name to store on the ledger/order record.
//
// Receipt photos from phones are routinely 5-10MB; resizing before upload
// keeps storage and scan-API costs bounded.
func SaveReceiptImage(ctx context.Context, objectPrefix string, imageData string) (string, error) {
	if imageData == "" {
		return "", errors.New("image data is required")
	}

	// Strip "data:image/...;base64," prefix if present.
	if idx := strings.Index(imageData, ","); idx >= 0 && strings.HasPrefix(imageData, "data:") {
		imageData = imageData[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(imageData)
	if err != nil {
		return "", fmt.Errorf("invalid base64 image: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("unsupported image format: %v", err)
	}
	if img.Bounds().Dx() > maxReceiptWidth {
		img = imaging.Resize(img, maxReceiptWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return "", err
	}

	objectName := objectPrefix + "/" + GenerateUniqueFilename() + ".jpg"
	if err := UploadBytesToGCS(ctx, objectName, buf.Bytes(), "image/jpeg"); err != nil {
		return "", err
	}
	return objectName, nil
}

func UploadBytesToGCS(ctx context.Context, objectName string, data []byte, contentType string) error {
	client, err := getGoogleClient(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*50)
	defer cancel()

	wc := client.Bucket(getBucketName()).Object(objectName).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return err
	}
	return wc.Close()
}

func DeleteImageFromGCS(ctx context.Context, objectName string) error {
	client, err := getGoogleClient(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	return client.Bucket(getBucketName()).Object(objectName).Delete(ctx)
}

func ObjectExistsInGCS(ctx context.Context, objectName string) (bool, error) {
	client, err := getGoogleClient(ctx)
	if err != nil {
		return false, err
	}
	_, err = client.Bucket(getBucketName()).Object(objectName).Attrs(ctx)
	if err == storage.ErrObjectNotExist {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
