package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// TryDownloadJSON try download url and decode json response into value
func TryDownloadJSON(ctx context.Context, url string, headers map[string]string, retry int, retryInterval time.Duration, value interface{}) error {
	code, buffer, err := TryDownloadBytesWithHeader(ctx, url, headers, retry, retryInterval)
	if err != nil {
		return err
	}

	if code != http.StatusOK {
		zap.L().Warn("unexpected response status", zap.Int("code", code), zap.String("url", url))
		return fmt.Errorf("unexpected response status (%d)%s", code, http.StatusText(code))
	}

	err = sonic.Unmarshal(buffer, value)
	if err != nil {
		zap.L().Warn("decode json response failed", zap.Error(err), zap.String("url", url), zap.ByteString("body", buffer))
		return err
	}

	return nil
}

// TryDownloadBytesWithHeader try download bytes by url
func TryDownloadBytesWithHeader(ctx context.Context, url string, headers map[string]string, retry int, retryInterval time.Duration) (int, []byte, error) {
	var code int
	var buffer []byte
	var err error
	for index := 0; index < retry; index++ {
		code, buffer, err = tryDownloadBytesOnce(ctx, url, headers)
		if err == nil && code == http.StatusOK {
			return code, buffer, nil
		}

		zap.L().Debug("download failed, retry later",
			zap.Error(err),
			zap.Int("code", code),
			zap.String("url", url),
			zap.Int("retry", index+1))

		if index < retry-1 {
			select {
			case <-ctx.Done():
				return code, buffer, ctx.Err()
			case <-time.After(retryInterval):
			}
		}
	}

	return code, buffer, err
}

func tryDownloadBytesOnce(ctx context.Context, url string, headers map[string]string) (int, []byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		zap.L().Warn("create http request failed", zap.Error(err), zap.String("url", url))
		return 0, nil, err
	}

	for key, value := range headers {
		request.Header.Set(key, value)
	}

	response, err := http.DefaultClient.Do(request)
	if err != nil {
		return 0, nil, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return response.StatusCode, nil, nil
	}

	buffer, err := io.ReadAll(response.Body)
	if err != nil {
		zap.L().Warn("read http response body failed", zap.Error(err), zap.String("url", url))
		return 0, nil, err
	}

	return response.StatusCode, buffer, nil
}
