package media

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/utafrali/SocialGo/pkg/httpclient"
)

// CloudinaryConfig holds the Cloudinary account settings.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	BaseURL   string
}

// CloudinaryUploader performs signed uploads to the Cloudinary upload API.
type CloudinaryUploader struct {
	cfg    CloudinaryConfig
	client *httpclient.CircuitBreakerClient
	now    func() time.Time
}

// NewCloudinaryUploader creates an uploader sending requests through client.
func NewCloudinaryUploader(cfg CloudinaryConfig, client *httpclient.CircuitBreakerClient) *CloudinaryUploader {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &CloudinaryUploader{cfg: cfg, client: client, now: time.Now}
}

type cloudinaryResponse struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
}

// Upload streams the staged file as a signed multipart request.
func (u *CloudinaryUploader) Upload(ctx context.Context, file *StagedFile, folder string) (*Asset, error) {
	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open staged file: %w", err)
	}
	defer f.Close()

	params := map[string]string{
		"folder":    folder,
		"timestamp": strconv.FormatInt(u.now().Unix(), 10),
	}

	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeCloudinaryForm(mw, f, file.Name, params, u.cfg.APIKey, signParams(params, u.cfg.APISecret)))
	}()

	endpoint := fmt.Sprintf("%s/v1_1/%s/image/upload", u.cfg.BaseURL, u.cfg.CloudName)
	resp, err := u.client.Post(ctx, endpoint, mw.FormDataContentType(), pr)
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if !httpclient.IsSuccess(resp.StatusCode) {
		return nil, fmt.Errorf("cloudinary upload: %w", httpclient.ParseResponseError(resp, "cloudinary"))
	}
	defer resp.Body.Close()

	var out cloudinaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode cloudinary response: %w", err)
	}
	if out.SecureURL == "" {
		return nil, fmt.Errorf("cloudinary upload: response has no secure_url")
	}

	return &Asset{Key: out.PublicID, URL: out.SecureURL}, nil
}

func writeCloudinaryForm(mw *multipart.Writer, src io.Reader, filename string, params map[string]string, apiKey, signature string) error {
	for k, v := range params {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	if err := mw.WriteField("api_key", apiKey); err != nil {
		return err
	}
	if err := mw.WriteField("signature", signature); err != nil {
		return err
	}

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, src); err != nil {
		return err
	}
	return mw.Close()
}

// signParams returns the Cloudinary signature: the SHA-1 hex digest of the
// alphabetically sorted key=value pairs joined by '&', followed by the secret.
func signParams(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}
