package blobsvc

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/iamthanushgowdap/apsconnect/core"
)

// cloudinaryStore uploads assignment attachments to Cloudinary via their
// REST API, keyed by "{resourceID}/{filename}" inside a configured folder.
type cloudinaryStore struct {
	cloudName string
	apiKey    string
	apiSecret string
	folder    string
	http      *http.Client
}

var _ core.BlobStore = (*cloudinaryStore)(nil)

func NewCloudinaryStore(conf *core.Config) *cloudinaryStore {
	return &cloudinaryStore{
		cloudName: conf.Storage.CloudName,
		apiKey:    conf.Storage.APIKey,
		apiSecret: conf.Storage.APISecret,
		folder:    conf.Storage.Folder,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

type uploadResult struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	Bytes     int    `json:"bytes"`
}

func (s *cloudinaryStore) Upload(ctx context.Context, key string, data []byte) (string, error) {
	params := map[string]string{
		"timestamp": strconv.FormatInt(time.Now().Unix(), 10),
		"public_id": s.publicID(key),
	}
	params["signature"] = s.sign(params)
	params["api_key"] = s.apiKey

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range params {
		_ = w.WriteField(k, v)
	}
	part, err := w.CreateFormFile("file", key)
	if err != nil {
		return "", errors.Wrap(err, "creating form file")
	}
	if _, err = io.Copy(part, bytes.NewReader(data)); err != nil {
		return "", errors.Wrap(err, "writing file")
	}
	_ = w.Close()

	url := fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/raw/upload", s.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", errors.Wrap(err, "creating request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := s.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "uploading")
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return "", errors.Errorf("upload failed (%d): %s", resp.StatusCode, string(body))
	}

	var result uploadResult
	if err = json.Unmarshal(body, &result); err != nil {
		return "", errors.Wrap(err, "decoding response")
	}
	return result.SecureURL, nil
}

func (s *cloudinaryStore) Delete(ctx context.Context, key string) error {
	params := map[string]string{
		"timestamp": strconv.FormatInt(time.Now().Unix(), 10),
		"public_id": s.publicID(key),
	}
	params["signature"] = s.sign(params)
	params["api_key"] = s.apiKey

	form := make([]string, 0, len(params))
	for k, v := range params {
		form = append(form, k+"="+v)
	}
	url := fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/raw/destroy", s.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(strings.Join(form, "&")))
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "deleting")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return errors.Errorf("delete failed (%d): %s", resp.StatusCode, string(body))
	}
	return nil
}

func (s *cloudinaryStore) publicID(key string) string {
	if s.folder == "" {
		return key
	}
	return s.folder + "/" + key
}

// sign computes the Cloudinary API signature from the given params.
// api_key and file are excluded from the signature per Cloudinary spec.
func (s *cloudinaryStore) sign(params map[string]string) string {
	excludeKeys := map[string]bool{"api_key": true, "file": true, "resource_type": true}

	pairs := make([]string, 0, len(params))
	for k, v := range params {
		if !excludeKeys[k] && v != "" {
			pairs = append(pairs, k+"="+v)
		}
	}
	sort.Strings(pairs)

	payload := strings.Join(pairs, "&") + s.apiSecret
	h := sha1.New()
	h.Write([]byte(payload))
	return fmt.Sprintf("%x", h.Sum(nil))
}
